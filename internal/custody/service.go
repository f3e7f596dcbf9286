package custody

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"olink/go-backend/internal/identity"
	"olink/go-backend/internal/securestore"
	"olink/go-backend/internal/ussd"
)

var (
	ErrInvalidPIN     = errors.New("pin must be exactly 4 digits")
	ErrPINLocked      = ussd.ErrPINLocked
	ErrWalletNotFound = errors.New("wallet not found")
	ErrSecretRequired = errors.New("wallet encryption secret is required")
)

// Config tunes the custody service.
type Config struct {
	// Secret seals every wallet's key material at rest.
	Secret         string
	MaxPINFailures int
	PINLockout     time.Duration
	Now            func() time.Time
}

// Service owns wallet key material and PIN verifiers. Callers only ever see
// public addresses and yes/no PIN answers; plaintext keys never leave it.
type Service struct {
	store  identity.Store
	keys   *identity.Keyer
	secret string
	guard  *pinGuard
	now    func() time.Time
}

func NewService(store identity.Store, keys *identity.Keyer, cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrSecretRequired
	}
	if store == nil || keys == nil {
		return nil, errors.New("custody requires an identity store and keyer")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  store,
		keys:   keys,
		secret: cfg.Secret,
		guard:  newPINGuard(cfg.MaxPINFailures, cfg.PINLockout, now),
		now:    now,
	}, nil
}

// CreateWallet provisions a fresh wallet for phone and returns the record to
// persist. It does not write to the store; the caller commits the record.
func (s *Service) CreateWallet(ctx context.Context, phone, pin string) (identity.Record, error) {
	if !ValidPIN(pin) {
		return identity.Record{}, ErrInvalidPIN
	}
	if err := ctx.Err(); err != nil {
		return identity.Record{}, err
	}
	mnemonic, err := newMnemonic()
	if err != nil {
		return identity.Record{}, fmt.Errorf("generate mnemonic: %w", err)
	}
	key, err := deriveAccountKey(mnemonic)
	if err != nil {
		return identity.Record{}, err
	}
	phoneKey := s.keys.PhoneKey(phone)
	material, err := securestore.Seal(s.secret, []byte(mnemonic), phoneKey)
	if err != nil {
		return identity.Record{}, fmt.Errorf("seal key material: %w", err)
	}
	cred, err := hashPIN(pin)
	if err != nil {
		return identity.Record{}, fmt.Errorf("hash pin: %w", err)
	}
	return identity.Record{
		PhoneKey:    phoneKey,
		PIN:         cred,
		KeyMaterial: material,
		Address:     addressOf(key),
		CreatedAt:   s.now().UTC(),
	}, nil
}

// VerifyPin reports whether pin matches the stored credential. Once the
// failure limit is hit it returns ErrPINLocked without comparing.
func (s *Service) VerifyPin(ctx context.Context, phone, pin string) (bool, error) {
	rec, err := s.record(ctx, phone)
	if err != nil {
		return false, err
	}
	if s.guard.locked(rec.PhoneKey) {
		return false, ErrPINLocked
	}
	if !ValidPIN(pin) || !matchPIN(rec.PIN, pin) {
		s.guard.fail(rec.PhoneKey)
		return false, nil
	}
	s.guard.reset(rec.PhoneKey)
	return true, nil
}

// WalletAddress returns the public address of phone's wallet.
func (s *Service) WalletAddress(ctx context.Context, phone string) (string, error) {
	rec, err := s.record(ctx, phone)
	if err != nil {
		return "", err
	}
	return rec.Address, nil
}

// LookupAddressByPhone is the directory view over the same records.
func (s *Service) LookupAddressByPhone(ctx context.Context, phone string) (string, bool, error) {
	rec, ok, err := s.store.Get(ctx, s.keys.PhoneKey(phone))
	if err != nil || !ok {
		return "", false, err
	}
	return rec.Address, true, nil
}

// SignTx signs tx with phone's wallet key for chainID.
func (s *Service) SignTx(ctx context.Context, phone string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	rec, err := s.record(ctx, phone)
	if err != nil {
		return nil, err
	}
	mnemonic, err := securestore.Open(s.secret, rec.KeyMaterial, rec.PhoneKey)
	if err != nil {
		return nil, fmt.Errorf("open key material: %w", err)
	}
	defer zeroBytes(mnemonic)
	key, err := deriveAccountKey(string(mnemonic))
	if err != nil {
		return nil, err
	}
	defer key.D.SetInt64(0)
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
}

func (s *Service) record(ctx context.Context, phone string) (identity.Record, error) {
	rec, ok, err := s.store.Get(ctx, s.keys.PhoneKey(phone))
	if err != nil {
		return identity.Record{}, err
	}
	if !ok {
		return identity.Record{}, ErrWalletNotFound
	}
	return rec, nil
}
