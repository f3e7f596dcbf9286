package custody

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const (
	hkdfInfoAccount = "olink/custody/secp256k1/v1"
	mnemonicBits    = 128
	maxDeriveTries  = 8
)

var ErrInvalidMnemonic = errors.New("invalid wallet mnemonic")

func newMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicBits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// deriveAccountKey expands the BIP-39 seed into a secp256k1 scalar. Scalars
// outside the curve order are skipped by reading further from the same
// HKDF stream, so the result stays deterministic per mnemonic.
func deriveAccountKey(mnemonic string) (*ecdsa.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")
	defer zeroBytes(seed)
	reader := hkdf.New(sha256.New, seed, nil, []byte(hkdfInfoAccount))
	buf := make([]byte, 32)
	defer zeroBytes(buf)
	for i := 0; i < maxDeriveTries; i++ {
		if _, err := io.ReadFull(reader, buf); err != nil {
			return nil, err
		}
		key, err := crypto.ToECDSA(buf)
		if err == nil {
			return key, nil
		}
	}
	return nil, errors.New("could not derive account key")
}

func addressOf(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
