package custody

import (
	"crypto/rand"
	"crypto/subtle"
	"regexp"

	"golang.org/x/crypto/argon2"

	"olink/go-backend/internal/identity"
)

const (
	pinKDF       = "argon2id"
	pinTime      = uint32(2)
	pinMemoryKB  = uint32(64 * 1024)
	pinThreads   = uint8(1)
	pinHashBytes = uint32(32)
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// ValidPIN reports whether pin is exactly four ASCII digits.
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

func hashPIN(pin string) (identity.Credential, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return identity.Credential{}, err
	}
	return identity.Credential{
		KDF:      pinKDF,
		Time:     pinTime,
		MemoryKB: pinMemoryKB,
		Threads:  pinThreads,
		Salt:     salt,
		Hash:     argon2.IDKey([]byte(pin), salt, pinTime, pinMemoryKB, pinThreads, pinHashBytes),
	}, nil
}

func matchPIN(cred identity.Credential, pin string) bool {
	if cred.KDF != pinKDF || len(cred.Hash) == 0 {
		return false
	}
	got := argon2.IDKey([]byte(pin), cred.Salt, cred.Time, cred.MemoryKB, cred.Threads, uint32(len(cred.Hash)))
	defer zeroBytes(got)
	return subtle.ConstantTimeCompare(got, cred.Hash) == 1
}
