package ussd

import (
	"context"
	"errors"
)

func (e *Engine) sellQuote(ctx context.Context) (Response, error) {
	rate, err := e.payments.Rate(ctx)
	if err != nil {
		return Response{}, upstream("payments", "rate", err)
	}
	return Con(textSellQuote(rate)), nil
}

// sellTerms resolves the account holder and prices the payout. A non-nil
// response ends the dialog.
func (e *Engine) sellTerms(ctx context.Context, intent SellIntent) (accountName, fiat string, stop *Response, err error) {
	accountName, err = e.payments.ResolveAccount(ctx, intent.BankAccount, intent.BankCode)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.log.Info("bank account not resolved", "bank_code", intent.BankCode)
		} else {
			e.observer.ObserveUpstreamFailure("payments")
			e.log.Warn("bank account resolution failed", "bank_code", intent.BankCode, "err", err)
		}
		r := End(textAccountUnchecked)
		return "", "", &r, nil
	}
	rate, err := e.payments.Rate(ctx)
	if err != nil {
		return "", "", nil, upstream("payments", "rate", err)
	}
	amount, _ := ParseAmount(intent.Amount)
	fiat = FiatPayout(amount, rate.FiatPerUnit)
	if _, ok := ParseAmount(fiat); !ok {
		r := End(textInvalidSale)
		return "", "", &r, nil
	}
	return accountName, fiat, nil, nil
}

func (e *Engine) sellPreview(ctx context.Context, intent SellIntent) (Response, error) {
	name, fiat, stop, err := e.sellTerms(ctx, intent)
	if err != nil || stop != nil {
		return deref(stop), err
	}
	return Con(textConfirmSale(intent.Amount, fiat, name)), nil
}

func (e *Engine) sellCommit(ctx context.Context, ev DialEvent, intent SellIntent) (Response, bool, error) {
	name, fiat, stop, err := e.sellTerms(ctx, intent)
	if err != nil || stop != nil {
		return deref(stop), false, err
	}
	stop, err = e.verifyPIN(ctx, ev, intent.PIN, textWrongPINSale)
	if err != nil || stop != nil {
		return deref(stop), false, err
	}
	payout, err := e.payments.Payout(ctx, ev.PhoneNumber, intent.BankAccount, intent.BankCode, name, fiat)
	if err != nil {
		return Response{}, false, upstream("payments", "payout", err)
	}
	e.notifier.SendPayoutInitiated(ev.PhoneNumber, fiat, name, payout.Reference)
	e.auditor.Publish("payout", map[string]string{
		"phone":      ev.PhoneNumber,
		"session_id": ev.SessionID,
		"reference":  payout.Reference,
	})
	return End(textSaleDone(intent.Amount, fiat, name, payout.Reference)), true, nil
}
