package custody

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"olink/go-backend/internal/identity"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestService(t *testing.T, clock *fakeClock) (*Service, *identity.MemoryStore) {
	t.Helper()
	keys, err := identity.NewKeyer("phone-secret")
	if err != nil {
		t.Fatalf("new keyer failed: %v", err)
	}
	store := identity.NewMemoryStore()
	cfg := Config{Secret: "wallet-secret", MaxPINFailures: 3, PINLockout: time.Minute}
	if clock != nil {
		cfg.Now = clock.Now
	}
	svc, err := NewService(store, keys, cfg)
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	return svc, store
}

func provision(t *testing.T, svc *Service, store identity.Store, phone, pin string) identity.Record {
	t.Helper()
	rec, err := svc.CreateWallet(context.Background(), phone, pin)
	if err != nil {
		t.Fatalf("create wallet failed: %v", err)
	}
	if err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("persist record failed: %v", err)
	}
	return rec
}

func TestCreateWalletProducesSealedRecord(t *testing.T) {
	svc, store := newTestService(t, nil)
	rec := provision(t, svc, store, "+2348011111111", "1234")
	if !addressPattern.MatchString(rec.Address) {
		t.Fatalf("unexpected address: %s", rec.Address)
	}
	if !rec.Valid() {
		t.Fatal("expected a complete record")
	}
	if string(rec.PIN.Hash) == "1234" {
		t.Fatal("pin stored in clear")
	}
	addr, err := svc.WalletAddress(context.Background(), "2348011111111")
	if err != nil || addr != rec.Address {
		t.Fatalf("wallet address mismatch: %s %v", addr, err)
	}
}

func TestCreateWalletRejectsMalformedPIN(t *testing.T) {
	svc, _ := newTestService(t, nil)
	for _, pin := range []string{"", "123", "12345", "12a4", "١٢٣٤"} {
		if _, err := svc.CreateWallet(context.Background(), "+2348011111111", pin); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("pin %q: expected ErrInvalidPIN, got %v", pin, err)
		}
	}
}

func TestVerifyPinAndLockout(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	svc, store := newTestService(t, clock)
	provision(t, svc, store, "+2348022222222", "4321")
	ctx := context.Background()

	ok, err := svc.VerifyPin(ctx, "+2348022222222", "4321")
	if err != nil || !ok {
		t.Fatalf("expected correct pin, ok=%v err=%v", ok, err)
	}
	for i := 0; i < 3; i++ {
		ok, err := svc.VerifyPin(ctx, "+2348022222222", "0000")
		if err != nil || ok {
			t.Fatalf("attempt %d: expected wrong pin, ok=%v err=%v", i, ok, err)
		}
	}
	if _, err := svc.VerifyPin(ctx, "+2348022222222", "4321"); !errors.Is(err, ErrPINLocked) {
		t.Fatalf("expected ErrPINLocked, got %v", err)
	}
	clock.t = clock.t.Add(2 * time.Minute)
	ok, err = svc.VerifyPin(ctx, "+2348022222222", "4321")
	if err != nil || !ok {
		t.Fatalf("expected unlock after cooldown, ok=%v err=%v", ok, err)
	}
}

func TestVerifyPinUnknownPhone(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.VerifyPin(context.Background(), "+2348099999999", "1234"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestLookupAddressByPhone(t *testing.T) {
	svc, store := newTestService(t, nil)
	rec := provision(t, svc, store, "+2348033333333", "1111")
	addr, ok, err := svc.LookupAddressByPhone(context.Background(), "2348033333333")
	if err != nil || !ok || addr != rec.Address {
		t.Fatalf("lookup failed: addr=%s ok=%v err=%v", addr, ok, err)
	}
	if _, ok, err := svc.LookupAddressByPhone(context.Background(), "+2348000000001"); err != nil || ok {
		t.Fatalf("expected unregistered phone, ok=%v err=%v", ok, err)
	}
}

func TestSignTxUsesWalletKey(t *testing.T) {
	svc, store := newTestService(t, nil)
	rec := provision(t, svc, store, "+2348044444444", "2222")
	chainID := big.NewInt(16601)
	to := common.HexToAddress("0xabcdef1234567890abcdef1234567890abcdef12")
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, To: &to, Value: big.NewInt(10), Gas: 21000, GasPrice: big.NewInt(1)})

	signed, err := svc.SignTx(context.Background(), "+2348044444444", tx, chainID)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatalf("recover sender failed: %v", err)
	}
	if sender != common.HexToAddress(rec.Address) {
		t.Fatalf("signed by %s, want %s", sender.Hex(), rec.Address)
	}
}

func TestDeriveAccountKeyIsDeterministic(t *testing.T) {
	mnemonic, err := newMnemonic()
	if err != nil {
		t.Fatalf("mnemonic failed: %v", err)
	}
	a, err := deriveAccountKey(mnemonic)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	b, _ := deriveAccountKey(mnemonic)
	if addressOf(a) != addressOf(b) {
		t.Fatal("derivation is not deterministic")
	}
	if _, err := deriveAccountKey("not a mnemonic"); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
	}
}
