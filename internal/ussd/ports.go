package ussd

import (
	"context"

	"olink/go-backend/internal/identity"
)

// IdentityStore is the registration source of truth.
type IdentityStore interface {
	Get(ctx context.Context, key string) (identity.Record, bool, error)
	Create(ctx context.Context, rec identity.Record) error
}

// PhoneKeyer derives the one-way store key of a phone number.
type PhoneKeyer interface {
	PhoneKey(phone string) string
}

// Custody owns wallet keys and PIN verifiers.
type Custody interface {
	CreateWallet(ctx context.Context, phone, pin string) (identity.Record, error)
	VerifyPin(ctx context.Context, phone, pin string) (bool, error)
	WalletAddress(ctx context.Context, phone string) (string, error)
}

// Directory resolves registered phone numbers to settlement addresses.
type Directory interface {
	LookupAddressByPhone(ctx context.Context, phone string) (string, bool, error)
}

type Balance struct {
	Amount  string
	Symbol  string
	ProofID string
}

type TransferReceipt struct {
	TxHash  string
	ProofID string
}

// Chain reads and writes the settlement chain on behalf of a phone's wallet.
type Chain interface {
	VerifiedBalance(ctx context.Context, phone string) (Balance, error)
	EstimateFee(ctx context.Context, from, to, amount string) (string, error)
	Transfer(ctx context.Context, phone, to, amount string) (TransferReceipt, error)
}

type Rate struct {
	// FiatPerUnit is the NGN price of one native token.
	FiatPerUnit float64
}

type Charge struct {
	Reference      string
	PaymentURL     string
	CryptoEstimate string
}

type Payout struct {
	Reference string
}

// Payments is the fiat gateway.
type Payments interface {
	Rate(ctx context.Context) (Rate, error)
	Charge(ctx context.Context, phone, fiatAmount string) (Charge, error)
	ResolveAccount(ctx context.Context, account, bankCode string) (string, error)
	Payout(ctx context.Context, phone, account, bankCode, accountName, fiatAmount string) (Payout, error)
}

// Notifier delivers out-of-band messages. Every method returns immediately;
// delivery failures never reach the dialog.
type Notifier interface {
	SendWalletCreated(phone, address string)
	SendDepositAddress(phone, address string)
	SendTransferConfirmation(phone, amount, txHash, proofID string)
	SendPaymentLink(phone, paymentURL, fiatAmount, cryptoEstimate string)
	SendPayoutInitiated(phone, fiatAmount, accountName, reference string)
}

// Auditor records session milestones.
type Auditor interface {
	Publish(kind string, attrs map[string]string)
}

// Observer receives per-step and per-failure signals for metrics.
type Observer interface {
	ObserveStep(flow Flow, action Action)
	ObserveUpstreamFailure(collaborator string)
}
