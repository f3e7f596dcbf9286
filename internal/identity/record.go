package identity

import (
	"strings"
	"time"
)

// Credential is an argon2id PIN verifier. The PIN itself is never stored.
type Credential struct {
	KDF      string `json:"kdf"`
	Time     uint32 `json:"time"`
	MemoryKB uint32 `json:"memory_kb"`
	Threads  uint8  `json:"threads"`
	Salt     []byte `json:"salt"`
	Hash     []byte `json:"hash"`
}

// Record is the persisted identity of one phone number. It is created once at
// the end of onboarding and never rewritten by the dialog engine.
type Record struct {
	PhoneKey    string     `json:"phone_key"`
	PIN         Credential `json:"pin"`
	KeyMaterial []byte     `json:"key_material"`
	Address     string     `json:"address"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (r Record) Valid() bool {
	return strings.TrimSpace(r.PhoneKey) != "" &&
		strings.TrimSpace(r.Address) != "" &&
		len(r.KeyMaterial) > 0 &&
		len(r.PIN.Hash) > 0
}

func cloneRecord(r Record) Record {
	out := r
	out.KeyMaterial = append([]byte(nil), r.KeyMaterial...)
	out.PIN.Salt = append([]byte(nil), r.PIN.Salt...)
	out.PIN.Hash = append([]byte(nil), r.PIN.Hash...)
	return out
}
