package ussd

import (
	"context"

	"olink/go-backend/internal/identity"
)

// resolveRecipient turns the intent into a settlement address. A non-nil
// response ends the dialog.
func (e *Engine) resolveRecipient(ctx context.Context, intent TransferIntent) (string, *Response, error) {
	to := intent.Ref
	if intent.Kind == RecipientPhone {
		addr, ok, err := e.directory.LookupAddressByPhone(ctx, identity.NormalizePhone(intent.Ref))
		if err != nil {
			return "", nil, upstream("directory", "lookup", err)
		}
		if !ok {
			r := End(textRecipientNotFound(intent.Ref))
			return "", &r, nil
		}
		to = addr
	}
	// Directory answers are checked too; a malformed stored address must
	// never reach the chain.
	if !ValidAddress(to) {
		r := End(textInvalidAddress)
		return "", &r, nil
	}
	return to, nil, nil
}

func (e *Engine) transferPreview(ctx context.Context, ev DialEvent, intent TransferIntent) (Response, error) {
	to, stop, err := e.resolveRecipient(ctx, intent)
	if err != nil || stop != nil {
		return deref(stop), err
	}
	from, err := e.custody.WalletAddress(ctx, ev.PhoneNumber)
	if err != nil {
		return Response{}, upstream("custody", "wallet_address", err)
	}
	fee, err := e.chain.EstimateFee(ctx, from, to, intent.Amount)
	if err != nil {
		return Response{}, upstream("chain", "estimate_fee", err)
	}
	return Con(textConfirmTransfer(to, intent.Amount, fee)), nil
}

func (e *Engine) transferCommit(ctx context.Context, ev DialEvent, intent TransferIntent) (Response, bool, error) {
	to, stop, err := e.resolveRecipient(ctx, intent)
	if err != nil || stop != nil {
		return deref(stop), false, err
	}
	stop, err = e.verifyPIN(ctx, ev, intent.PIN, textWrongPINTransfer)
	if err != nil || stop != nil {
		return deref(stop), false, err
	}
	receipt, err := e.chain.Transfer(ctx, ev.PhoneNumber, to, intent.Amount)
	if err != nil {
		return Response{}, false, upstream("chain", "transfer", err)
	}
	e.notifier.SendTransferConfirmation(ev.PhoneNumber, intent.Amount, receipt.TxHash, receipt.ProofID)
	e.auditor.Publish("transfer", map[string]string{
		"phone":      ev.PhoneNumber,
		"session_id": ev.SessionID,
		"tx_hash":    receipt.TxHash,
		"proof_id":   receipt.ProofID,
	})
	return End(textTransferDone(intent.Amount, receipt.ProofID)), true, nil
}

func deref(r *Response) Response {
	if r == nil {
		return Response{}
	}
	return *r
}
