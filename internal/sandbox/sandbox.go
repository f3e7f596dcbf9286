// Package sandbox provides fixed-answer chain and payment collaborators so
// the gateway can run end to end without upstream credentials.
package sandbox

import (
	"context"
	"log/slog"

	"olink/go-backend/internal/ussd"
)

type Chain struct {
	Logger *slog.Logger
}

var _ ussd.Chain = Chain{}

func (Chain) VerifiedBalance(context.Context, string) (ussd.Balance, error) {
	return ussd.Balance{Amount: "100.5", Symbol: "A0GI", ProofID: "proof-xyz987"}, nil
}

func (Chain) EstimateFee(context.Context, string, string, string) (string, error) {
	return "0.01", nil
}

func (c Chain) Transfer(_ context.Context, phone, to, amount string) (ussd.TransferReceipt, error) {
	logger(c.Logger).Info("sandbox transfer", "phone", phone, "to", to, "amount", amount)
	return ussd.TransferReceipt{TxHash: "0xtx-hash-123", ProofID: "proof-abc456"}, nil
}

type Payments struct {
	Logger *slog.Logger
}

var _ ussd.Payments = Payments{}

func (Payments) Rate(context.Context) (ussd.Rate, error) {
	return ussd.Rate{FiatPerUnit: 1500}, nil
}

func (p Payments) Charge(_ context.Context, phone, fiatAmount string) (ussd.Charge, error) {
	logger(p.Logger).Info("sandbox charge", "phone", phone, "fiat", fiatAmount)
	return ussd.Charge{Reference: "ref-sub-123", PaymentURL: "https://paystack.com/pay/xyz", CryptoEstimate: "0.06"}, nil
}

func (Payments) ResolveAccount(context.Context, string, string) (string, error) {
	return "John Doe", nil
}

func (p Payments) Payout(_ context.Context, phone, _, bankCode, _, fiatAmount string) (ussd.Payout, error) {
	logger(p.Logger).Info("sandbox payout", "phone", phone, "bank_code", bankCode, "fiat", fiatAmount)
	return ussd.Payout{Reference: "ref-payout-456"}, nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
