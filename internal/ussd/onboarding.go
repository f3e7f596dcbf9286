package ussd

import (
	"context"
	"errors"

	"olink/go-backend/internal/identity"
)

// provision is the onboarding commit: create the wallet, then persist the
// identity record. A concurrent duplicate loses on the exclusive create and
// its freshly generated wallet is discarded unseen.
func (e *Engine) provision(ctx context.Context, ev DialEvent, pin string) (Response, bool, error) {
	rec, err := e.custody.CreateWallet(ctx, ev.PhoneNumber, pin)
	if err != nil {
		return Response{}, false, upstream("custody", "create_wallet", err)
	}
	if err := e.identities.Create(ctx, rec); err != nil {
		if errors.Is(err, identity.ErrAlreadyExists) {
			return End(textAlreadyRegistered), false, nil
		}
		return Response{}, false, upstream("identity", "create", err)
	}
	e.notifier.SendWalletCreated(ev.PhoneNumber, rec.Address)
	e.auditor.Publish("onboard_complete", map[string]string{
		"phone":      ev.PhoneNumber,
		"session_id": ev.SessionID,
		"address":    rec.Address,
	})
	e.log.Info("wallet provisioned", "phone", ev.PhoneNumber, "address", rec.Address)
	return End(textWalletCreated), true, nil
}
