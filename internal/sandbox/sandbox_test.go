package sandbox

import (
	"context"
	"testing"
)

func TestFixedAnswers(t *testing.T) {
	ctx := context.Background()
	b, _ := Chain{}.VerifiedBalance(ctx, "+234")
	if b.Amount != "100.5" || b.ProofID != "proof-xyz987" {
		t.Fatalf("balance %+v", b)
	}
	r, _ := Chain{}.Transfer(ctx, "+234", "0x0", "1")
	if r.TxHash != "0xtx-hash-123" || r.ProofID != "proof-abc456" {
		t.Fatalf("receipt %+v", r)
	}
	name, _ := Payments{}.ResolveAccount(ctx, "0123456789", "058")
	p, _ := Payments{}.Payout(ctx, "+234", "0123456789", "058", "John Doe", "3000.00")
	if name != "John Doe" || p.Reference != "ref-payout-456" {
		t.Fatalf("name %q payout %+v", name, p)
	}
}
