package ussd

import (
	"context"
	"fmt"
	"sync"

	"olink/go-backend/internal/identity"
)

// world is the shared state behind the fake collaborators. Every call that
// changes something outside the engine is appended to mutations.
type world struct {
	mu            sync.Mutex
	records       map[string]identity.Record
	pins          map[string]string
	directory     map[string]string
	accounts      map[string]string
	mutations     []string
	notifications []string
	audits        []string
	reads         []string

	storeErr  error
	chainErr  error
	resolveEr error
	walletSeq int
	// payoutName is the holder name passed to the last payout.
	payoutName string
}

func newWorld() *world {
	return &world{
		records:   make(map[string]identity.Record),
		pins:      make(map[string]string),
		directory: make(map[string]string),
		accounts:  make(map[string]string),
	}
}

func (w *world) mutate(name string) {
	w.mu.Lock()
	w.mutations = append(w.mutations, name)
	w.mu.Unlock()
}

func (w *world) read(name string) {
	w.mu.Lock()
	w.reads = append(w.reads, name)
	w.mu.Unlock()
}

func (w *world) mutationCount(name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, m := range w.mutations {
		if m == name {
			n++
		}
	}
	return n
}

func (w *world) allMutations() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.mutations...)
}

// register provisions phone directly, bypassing onboarding.
func (w *world) register(phone, pin string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.walletSeq++
	addr := fmt.Sprintf("0x%040x", 0xa000+w.walletSeq)
	key := fakeKeyer{}.PhoneKey(phone)
	w.records[key] = identity.Record{PhoneKey: key, Address: addr}
	w.pins[key] = pin
	w.directory[identity.NormalizePhone(phone)] = addr
	return addr
}

type fakeKeyer struct{}

func (fakeKeyer) PhoneKey(phone string) string { return "key:" + identity.NormalizePhone(phone) }

type fakeStore struct{ w *world }

func (s fakeStore) Get(_ context.Context, key string) (identity.Record, bool, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.w.storeErr != nil {
		return identity.Record{}, false, s.w.storeErr
	}
	rec, ok := s.w.records[key]
	return rec, ok, nil
}

func (fakeStore) Close() error { return nil }

func (s fakeStore) Create(_ context.Context, rec identity.Record) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if _, ok := s.w.records[rec.PhoneKey]; ok {
		return identity.ErrAlreadyExists
	}
	s.w.mutations = append(s.w.mutations, "identity.create")
	s.w.records[rec.PhoneKey] = rec
	return nil
}

type fakeCustody struct{ w *world }

func (c fakeCustody) CreateWallet(_ context.Context, phone, pin string) (identity.Record, error) {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	c.w.walletSeq++
	key := fakeKeyer{}.PhoneKey(phone)
	c.w.pins[key] = pin
	c.w.mutations = append(c.w.mutations, "custody.create_wallet")
	return identity.Record{PhoneKey: key, Address: fmt.Sprintf("0x%040x", 0xb000+c.w.walletSeq)}, nil
}

func (c fakeCustody) VerifyPin(_ context.Context, phone, pin string) (bool, error) {
	c.w.read("custody.verify_pin")
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	if pin == "9999" {
		return false, ErrPINLocked
	}
	want, ok := c.w.pins[fakeKeyer{}.PhoneKey(phone)]
	return ok && want == pin, nil
}

func (c fakeCustody) WalletAddress(_ context.Context, phone string) (string, error) {
	c.w.read("custody.wallet_address")
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	rec, ok := c.w.records[fakeKeyer{}.PhoneKey(phone)]
	if !ok {
		return "", fmt.Errorf("wallet for %s not found", phone)
	}
	return rec.Address, nil
}

type fakeDirectory struct{ w *world }

func (d fakeDirectory) LookupAddressByPhone(_ context.Context, phone string) (string, bool, error) {
	d.w.read("directory.lookup")
	d.w.mu.Lock()
	defer d.w.mu.Unlock()
	addr, ok := d.w.directory[phone]
	return addr, ok, nil
}

type fakeChain struct{ w *world }

func (c fakeChain) VerifiedBalance(context.Context, string) (Balance, error) {
	c.w.read("chain.balance")
	if c.w.chainErr != nil {
		return Balance{}, c.w.chainErr
	}
	return Balance{Amount: "100.5", Symbol: "A0GI", ProofID: "proof-xyz987"}, nil
}

func (c fakeChain) EstimateFee(context.Context, string, string, string) (string, error) {
	c.w.read("chain.estimate_fee")
	if c.w.chainErr != nil {
		return "", c.w.chainErr
	}
	return "0.01", nil
}

func (c fakeChain) Transfer(context.Context, string, string, string) (TransferReceipt, error) {
	if c.w.chainErr != nil {
		return TransferReceipt{}, c.w.chainErr
	}
	c.w.mutate("chain.transfer")
	return TransferReceipt{TxHash: "0xtx-hash-123", ProofID: "proof-abc456"}, nil
}

type fakePayments struct{ w *world }

func (p fakePayments) Rate(context.Context) (Rate, error) {
	p.w.read("payments.rate")
	return Rate{FiatPerUnit: 1500}, nil
}

func (p fakePayments) Charge(context.Context, string, string) (Charge, error) {
	p.w.mutate("payments.charge")
	return Charge{Reference: "ref-sub-12345678", PaymentURL: "https://paystack.com/pay/xyz", CryptoEstimate: "0.06"}, nil
}

func (p fakePayments) ResolveAccount(_ context.Context, account, code string) (string, error) {
	p.w.read("payments.resolve")
	if p.w.resolveEr != nil {
		return "", p.w.resolveEr
	}
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	name, ok := p.w.accounts[account+"/"+code]
	if !ok {
		return "", ErrAccountNotFound
	}
	return name, nil
}

func (p fakePayments) Payout(_ context.Context, _, _, _, accountName, _ string) (Payout, error) {
	p.w.mu.Lock()
	p.w.payoutName = accountName
	p.w.mu.Unlock()
	p.w.mutate("payments.payout")
	return Payout{Reference: "ref-payout-456"}, nil
}

type fakeNotifier struct{ w *world }

func (n fakeNotifier) note(s string) {
	n.w.mu.Lock()
	n.w.notifications = append(n.w.notifications, s)
	n.w.mu.Unlock()
}

func (n fakeNotifier) SendWalletCreated(phone, address string) { n.note("wallet:" + address) }

func (n fakeNotifier) SendDepositAddress(phone, address string) { n.note("deposit:" + address) }

func (n fakeNotifier) SendTransferConfirmation(phone, amount, txHash, proofID string) {
	n.note("transfer:" + txHash)
}

func (n fakeNotifier) SendPaymentLink(phone, url, fiat, estimate string) { n.note("link:" + url) }

func (n fakeNotifier) SendPayoutInitiated(phone, fiat, name, ref string) { n.note("payout:" + ref) }

type fakeAuditor struct{ w *world }

func (a fakeAuditor) Publish(kind string, _ map[string]string) {
	a.w.mu.Lock()
	a.w.audits = append(a.w.audits, kind)
	a.w.mu.Unlock()
}
