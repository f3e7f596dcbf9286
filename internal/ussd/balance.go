package ussd

import "context"

func (e *Engine) verifiedBalance(ctx context.Context, ev DialEvent) (Response, error) {
	b, err := e.chain.VerifiedBalance(ctx, ev.PhoneNumber)
	if err != nil {
		return Response{}, upstream("chain", "verified_balance", err)
	}
	return End(textVerifiedBalance(b)), nil
}

func (e *Engine) chainAddress(ctx context.Context, ev DialEvent) (Response, error) {
	addr, err := e.custody.WalletAddress(ctx, ev.PhoneNumber)
	if err != nil {
		return Response{}, upstream("custody", "wallet_address", err)
	}
	return End(textSecondaryChain(addr)), nil
}

func (e *Engine) deposit(ctx context.Context, ev DialEvent) (Response, error) {
	addr, err := e.custody.WalletAddress(ctx, ev.PhoneNumber)
	if err != nil {
		return Response{}, upstream("custody", "wallet_address", err)
	}
	e.notifier.SendDepositAddress(ev.PhoneNumber, addr)
	e.auditor.Publish("deposit_view", map[string]string{"phone": ev.PhoneNumber, "session_id": ev.SessionID})
	return End(textDeposit(addr)), nil
}
