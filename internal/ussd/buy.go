package ussd

import "context"

func (e *Engine) buyQuote(ctx context.Context) (Response, error) {
	rate, err := e.payments.Rate(ctx)
	if err != nil {
		return Response{}, upstream("payments", "rate", err)
	}
	return Con(textBuyQuote(rate)), nil
}

// buyCommit starts an inbound charge. No PIN is asked: money flows towards
// the caller's wallet only after the gateway confirms payment.
func (e *Engine) buyCommit(ctx context.Context, ev DialEvent, fiat string) (Response, bool, error) {
	charge, err := e.payments.Charge(ctx, ev.PhoneNumber, fiat)
	if err != nil {
		return Response{}, false, upstream("payments", "charge", err)
	}
	e.notifier.SendPaymentLink(ev.PhoneNumber, charge.PaymentURL, fiat, charge.CryptoEstimate)
	e.auditor.Publish("charge", map[string]string{
		"phone":      ev.PhoneNumber,
		"session_id": ev.SessionID,
		"reference":  charge.Reference,
	})
	return End(textBuyStarted(charge, fiat)), true, nil
}
