package ussd

// Flow names the dialog branch a step belongs to.
type Flow string

const (
	FlowOnboarding Flow = "onboarding"
	FlowMenu       Flow = "menu"
	FlowHelp       Flow = "help"
	FlowBalance    Flow = "balance"
	FlowDeposit    Flow = "deposit"
	FlowTransfer   Flow = "transfer"
	FlowBuy        Flow = "buy"
	FlowSell       Flow = "sell"
)

// Action is the work the engine performs for a step.
type Action uint8

const (
	// ActionReply answers with Step.Reply and touches no collaborator.
	ActionReply Action = iota
	ActionProvision
	ActionVerifiedBalance
	ActionChainAddress
	ActionDeposit
	ActionTransferPreview
	ActionTransferCommit
	ActionBuyQuote
	ActionBuyCommit
	ActionSellQuote
	ActionSellResolve
	ActionSellCommit
)

var actionNames = map[Action]string{
	ActionReply:           "reply",
	ActionProvision:       "provision",
	ActionVerifiedBalance: "verified_balance",
	ActionChainAddress:    "chain_address",
	ActionDeposit:         "deposit",
	ActionTransferPreview: "transfer_preview",
	ActionTransferCommit:  "transfer_commit",
	ActionBuyQuote:        "buy_quote",
	ActionBuyCommit:       "buy_commit",
	ActionSellQuote:       "sell_quote",
	ActionSellResolve:     "sell_resolve",
	ActionSellCommit:      "sell_commit",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Commits reports whether the action mutates an external system.
func (a Action) Commits() bool {
	switch a {
	case ActionProvision, ActionTransferCommit, ActionBuyCommit, ActionSellCommit:
		return true
	default:
		return false
	}
}

// RecipientKind selects how a transfer recipient is addressed.
type RecipientKind string

const (
	RecipientPhone   RecipientKind = "1"
	RecipientAddress RecipientKind = "2"
)

type TransferIntent struct {
	Kind   RecipientKind
	Ref    string
	Amount string
	PIN    string
}

type SellIntent struct {
	Amount      string
	BankAccount string
	BankCode    string
	PIN         string
}

// Step is the single logical dialog step encoded by a token sequence.
type Step struct {
	Flow   Flow
	Action Action
	// Reply is set for ActionReply.
	Reply Response
	// PIN is the confirmed onboarding PIN for ActionProvision.
	PIN string
	// Amount is the fiat amount for ActionBuyCommit.
	Amount   string
	Transfer TransferIntent
	Sell     SellIntent
}

func reply(flow Flow, r Response) Step {
	return Step{Flow: flow, Action: ActionReply, Reply: r}
}

// Reduce folds a token sequence into its step. It is pure: the same inputs
// always give the same step and nothing outside the return value changes.
// registered reports whether an identity record exists for the caller.
func Reduce(registered bool, tokens Tokens) Step {
	if len(tokens) == 0 {
		tokens = Tokens{""}
	}
	if !registered && len(tokens) <= 2 {
		return reduceOnboarding(tokens)
	}
	if !registered {
		// Caller finished onboarding earlier in this same history; the
		// first two fields are the PIN and its confirmation.
		tokens = tokens.From(2)
	}
	return reduceMenu(tokens)
}

func reduceOnboarding(t Tokens) Step {
	switch {
	case t.Empty():
		return reply(FlowOnboarding, Con(textWelcome))
	case len(t) == 1:
		if !validPIN(t[0]) {
			return reply(FlowOnboarding, Con(textInvalidPINRetry))
		}
		return reply(FlowOnboarding, Con(textConfirmPIN))
	case len(t) == 2:
		pin, confirm := t[0], t[1]
		if !validPIN(pin) {
			return reply(FlowOnboarding, End(textInvalidPINRestart))
		}
		if pin != confirm {
			return reply(FlowOnboarding, End(textPINMismatch))
		}
		return Step{Flow: FlowOnboarding, Action: ActionProvision, PIN: pin}
	default:
		return reply(FlowOnboarding, End(textSessionExpired))
	}
}

func reduceMenu(t Tokens) Step {
	if t.Empty() {
		return reply(FlowMenu, Con(textMainMenu))
	}
	switch t[0] {
	case "0":
		return reply(FlowHelp, End(textHelp))
	case "1":
		return reduceBalance(t)
	case "2":
		return Step{Flow: FlowDeposit, Action: ActionDeposit}
	case "3":
		return reduceTransfer(t)
	case "4":
		return reduceBuy(t)
	case "5":
		return reduceSell(t)
	default:
		return reply(FlowMenu, End(textInvalidOption))
	}
}

func reduceBalance(t Tokens) Step {
	switch t.At(1) {
	case "":
		return reply(FlowBalance, Con(textChainMenu))
	case "1":
		return Step{Flow: FlowBalance, Action: ActionVerifiedBalance}
	case "2":
		return Step{Flow: FlowBalance, Action: ActionChainAddress}
	default:
		return reply(FlowBalance, End(textInvalidChain))
	}
}

func reduceTransfer(t Tokens) Step {
	intent := TransferIntent{
		Kind:   RecipientKind(t.At(1)),
		Ref:    t.At(2),
		Amount: t.At(3),
		PIN:    t.At(4),
	}
	if intent.Kind == "" {
		return reply(FlowTransfer, Con(textTransferMenu))
	}
	if intent.Kind != RecipientPhone && intent.Kind != RecipientAddress {
		return reply(FlowTransfer, End(textInvalidSelection))
	}
	if intent.Ref == "" {
		if intent.Kind == RecipientPhone {
			return reply(FlowTransfer, Con(textRecipientPhone))
		}
		return reply(FlowTransfer, Con(textRecipientAddress))
	}
	if intent.Amount == "" {
		return reply(FlowTransfer, Con(textTransferAmount))
	}
	if _, ok := ParseAmount(intent.Amount); !ok {
		return reply(FlowTransfer, End(textInvalidAmount))
	}
	if intent.PIN == "" {
		return Step{Flow: FlowTransfer, Action: ActionTransferPreview, Transfer: intent}
	}
	return Step{Flow: FlowTransfer, Action: ActionTransferCommit, Transfer: intent}
}

const minimumPurchaseNGN = 100

func reduceBuy(t Tokens) Step {
	amount := t.At(1)
	if amount == "" {
		return Step{Flow: FlowBuy, Action: ActionBuyQuote}
	}
	v, ok := ParseAmount(amount)
	if !ok || v < minimumPurchaseNGN {
		return reply(FlowBuy, End(textMinimumPurchase))
	}
	return Step{Flow: FlowBuy, Action: ActionBuyCommit, Amount: amount}
}

func reduceSell(t Tokens) Step {
	intent := SellIntent{
		Amount:      t.At(1),
		BankAccount: t.At(2),
		BankCode:    t.At(3),
		PIN:         t.At(4),
	}
	if intent.Amount == "" {
		return Step{Flow: FlowSell, Action: ActionSellQuote}
	}
	if _, ok := ParseAmount(intent.Amount); !ok {
		return reply(FlowSell, End(textInvalidSale))
	}
	if intent.BankAccount == "" {
		return reply(FlowSell, Con(textBankAccount))
	}
	if intent.BankCode == "" {
		return reply(FlowSell, Con(textBankCode))
	}
	if intent.PIN == "" {
		return Step{Flow: FlowSell, Action: ActionSellResolve, Sell: intent}
	}
	return Step{Flow: FlowSell, Action: ActionSellCommit, Sell: intent}
}
