package identity

import (
	"errors"
	"strings"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

const phoneKeyPrefix = "olk1"

var ErrKeySecretRequired = errors.New("phone key secret is required")

// Keyer maps phone numbers to stable, non-reversible store keys.
type Keyer struct {
	secret []byte
}

func NewKeyer(secret string) (*Keyer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrKeySecretRequired
	}
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Keyer{secret: key}, nil
}

// PhoneKey returns the keyed blake2b digest of the normalized phone number.
func (k *Keyer) PhoneKey(phone string) string {
	h, err := blake2b.New256(k.secret)
	if err != nil {
		// Key length is bounded in NewKeyer.
		panic(err)
	}
	_, _ = h.Write([]byte(NormalizePhone(phone)))
	return phoneKeyPrefix + base58.Encode(h.Sum(nil))
}

// NormalizePhone trims the number and forces the international "+" prefix so
// that "2348012345678" and "+2348012345678" address the same identity.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}
