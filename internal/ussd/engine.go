package ussd

import (
	"context"
	"errors"
	"log/slog"
)

// Deps are the collaborators of an Engine. Auditor, Observer, Ledger and
// Logger are optional.
type Deps struct {
	Identities IdentityStore
	Keys       PhoneKeyer
	Custody    Custody
	Directory  Directory
	Chain      Chain
	Payments   Payments
	Notifier   Notifier
	Auditor    Auditor
	Observer   Observer
	Ledger     *CommitLedger
	Logger     *slog.Logger
}

type Engine struct {
	identities IdentityStore
	keys       PhoneKeyer
	custody    Custody
	directory  Directory
	chain      Chain
	payments   Payments
	notifier   Notifier
	auditor    Auditor
	observer   Observer
	ledger     *CommitLedger
	log        *slog.Logger
}

func NewEngine(d Deps) (*Engine, error) {
	switch {
	case d.Identities == nil:
		return nil, errors.New("ussd: identity store is required")
	case d.Keys == nil:
		return nil, errors.New("ussd: phone keyer is required")
	case d.Custody == nil:
		return nil, errors.New("ussd: custody is required")
	case d.Directory == nil:
		return nil, errors.New("ussd: directory is required")
	case d.Chain == nil:
		return nil, errors.New("ussd: chain is required")
	case d.Payments == nil:
		return nil, errors.New("ussd: payments is required")
	case d.Notifier == nil:
		return nil, errors.New("ussd: notifier is required")
	}
	e := &Engine{
		identities: d.Identities,
		keys:       d.Keys,
		custody:    d.Custody,
		directory:  d.Directory,
		chain:      d.Chain,
		payments:   d.Payments,
		notifier:   d.Notifier,
		auditor:    d.Auditor,
		observer:   d.Observer,
		ledger:     d.Ledger,
		log:        d.Logger,
	}
	if e.auditor == nil {
		e.auditor = nopAuditor{}
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.ledger == nil {
		e.ledger = NewCommitLedger(0, 0)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e, nil
}

// Handle processes one dial event. Collaborator failures become a terminal
// response; a returned error means the event itself could not be handled.
func (e *Engine) Handle(ctx context.Context, ev DialEvent) (Response, error) {
	if !ev.complete() {
		return End(textSystemError), ErrIncompleteEvent
	}
	key := CommitKey(ev)
	if r, ok := e.ledger.Lookup(key); ok {
		e.log.Info("replaying committed response", "session_id", ev.SessionID)
		return r, nil
	}

	_, registered, err := e.identities.Get(ctx, e.keys.PhoneKey(ev.PhoneNumber))
	if err != nil {
		return e.settle(ev, Step{Flow: FlowMenu}, upstream("identity", "get", err))
	}
	step := Reduce(registered, Decode(ev.Text))
	e.observer.ObserveStep(step.Flow, step.Action)

	var resp Response
	if step.Action.Commits() {
		resp, err = e.ledger.Do(key, func() (Response, bool, error) {
			return e.commit(ctx, ev, step)
		})
	} else {
		resp, err = e.execute(ctx, ev, step)
	}
	if err != nil {
		return e.settle(ev, step, err)
	}
	return resp, nil
}

func (e *Engine) settle(ev DialEvent, step Step, err error) (Response, error) {
	var up *UpstreamError
	if !errors.As(err, &up) {
		return Response{}, err
	}
	e.observer.ObserveUpstreamFailure(up.Collaborator)
	e.log.Warn("upstream call failed",
		"flow", string(step.Flow),
		"action", step.Action.String(),
		"collaborator", up.Collaborator,
		"op", up.Op,
		"session_id", ev.SessionID,
		"err", up.Err,
	)
	return End(textUpstreamFailed), nil
}

func (e *Engine) execute(ctx context.Context, ev DialEvent, step Step) (Response, error) {
	switch step.Action {
	case ActionReply:
		return step.Reply, nil
	case ActionVerifiedBalance:
		return e.verifiedBalance(ctx, ev)
	case ActionChainAddress:
		return e.chainAddress(ctx, ev)
	case ActionDeposit:
		return e.deposit(ctx, ev)
	case ActionTransferPreview:
		return e.transferPreview(ctx, ev, step.Transfer)
	case ActionBuyQuote:
		return e.buyQuote(ctx)
	case ActionSellQuote:
		return e.sellQuote(ctx)
	case ActionSellResolve:
		return e.sellPreview(ctx, step.Sell)
	default:
		return Response{}, errors.New("ussd: unhandled action " + step.Action.String())
	}
}

func (e *Engine) commit(ctx context.Context, ev DialEvent, step Step) (Response, bool, error) {
	switch step.Action {
	case ActionProvision:
		return e.provision(ctx, ev, step.PIN)
	case ActionTransferCommit:
		return e.transferCommit(ctx, ev, step.Transfer)
	case ActionBuyCommit:
		return e.buyCommit(ctx, ev, step.Amount)
	case ActionSellCommit:
		return e.sellCommit(ctx, ev, step.Sell)
	default:
		return Response{}, false, errors.New("ussd: unhandled commit " + step.Action.String())
	}
}

// verifyPIN gates a commit. It returns a terminal response when the PIN does
// not unlock the wallet.
func (e *Engine) verifyPIN(ctx context.Context, ev DialEvent, pin, wrongText string) (*Response, error) {
	ok, err := e.custody.VerifyPin(ctx, ev.PhoneNumber, pin)
	switch {
	case errors.Is(err, ErrPINLocked):
		r := End(textPINLocked)
		return &r, nil
	case err != nil:
		return nil, upstream("custody", "verify_pin", err)
	case !ok:
		e.auditor.Publish("pin_rejected", map[string]string{"phone": ev.PhoneNumber, "session_id": ev.SessionID})
		r := End(wrongText)
		return &r, nil
	default:
		return nil, nil
	}
}

type nopAuditor struct{}

func (nopAuditor) Publish(string, map[string]string) {}

type nopObserver struct{}

func (nopObserver) ObserveStep(Flow, Action) {}

func (nopObserver) ObserveUpstreamFailure(string) {}
