package securestore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	envelopeVersion = 1
	saltSize        = 16
	sealedPrefix    = "OLINKENC1\n"

	kdfName     = "argon2id"
	kdfTime     = uint32(2)
	kdfMemoryKB = uint32(64 * 1024)
	kdfThreads  = uint8(1)
)

var (
	ErrAuthFailed     = errors.New("securestore authentication failed")
	ErrInvalid        = errors.New("securestore envelope is invalid")
	ErrNotSealed      = errors.New("securestore payload is not sealed")
	ErrSecretRequired = errors.New("securestore secret is required")
)

// Envelope is the persisted form of sealed key material and store snapshots.
type Envelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// Seal encrypts plaintext under secret and binds it to context, which must be
// presented again on Open. Context may be empty.
func Seal(secret string, plaintext []byte, context string) ([]byte, error) {
	env, err := SealEnvelope(secret, plaintext, context)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(sealedPrefix), raw...), nil
}

func SealEnvelope(secret string, plaintext []byte, context string) (*Envelope, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretRequired
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(secret, salt, kdfTime, kdfMemoryKB, kdfThreads)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return &Envelope{
		Version:     envelopeVersion,
		KDF:         kdfName,
		KDFTime:     kdfTime,
		KDFMemoryKB: kdfMemoryKB,
		KDFThreads:  kdfThreads,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, plaintext, []byte(context)),
	}, nil
}

// Open reverses Seal. A payload without the sealed prefix yields ErrNotSealed.
func Open(secret string, data []byte, context string) ([]byte, error) {
	if !strings.HasPrefix(string(data), sealedPrefix) {
		return nil, ErrNotSealed
	}
	var env Envelope
	if err := json.Unmarshal(data[len(sealedPrefix):], &env); err != nil {
		return nil, ErrInvalid
	}
	return OpenEnvelope(secret, &env, context)
}

func OpenEnvelope(secret string, env *Envelope, context string) ([]byte, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretRequired
	}
	if env == nil || env.Version != envelopeVersion || env.KDF != kdfName {
		return nil, ErrInvalid
	}
	if len(env.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrInvalid
	}
	key := deriveKey(secret, env.Salt, env.KDFTime, env.KDFMemoryKB, env.KDFThreads)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, []byte(context))
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// IsSealed reports whether data carries the sealed prefix.
func IsSealed(data []byte) bool {
	return strings.HasPrefix(string(data), sealedPrefix)
}

func deriveKey(secret string, salt []byte, time, memoryKB uint32, threads uint8) []byte {
	return argon2.IDKey([]byte(secret), salt, time, memoryKB, threads, chacha20poly1305.KeySize)
}

// ZeroBytes wipes b in place.
func ZeroBytes(b []byte) {
	zeroBytes(b)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
