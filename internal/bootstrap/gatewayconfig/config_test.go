package gatewayconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"olink/go-backend/internal/identity"
)

func boolPtr(v bool) *bool {
	return &v
}

func TestMergeOverridesOnlySetFields(t *testing.T) {
	dst := Default()
	Merge(&dst, FileConfig{
		Server:   ServerSection{Addr: ":9000", RequestTimeout: 3 * time.Second},
		Identity: IdentitySection{Backend: "file", Fallback: "memory", FallbackPolicy: "mirror"},
		SMS:      SMSSection{Provider: "africastalking", Sandbox: boolPtr(true)},
	})
	if dst.HTTPAddr != ":9000" || dst.RequestTimeout != 3*time.Second {
		t.Fatalf("server section not merged: %+v", dst)
	}
	if dst.IdentityBackend != "file" || dst.IdentityFallback != "memory" || dst.FallbackPolicy != identity.PolicyMirror {
		t.Fatalf("identity section not merged: %+v", dst)
	}
	if !dst.ATSandbox || dst.SMSProvider != "africastalking" {
		t.Fatalf("sms section not merged: %+v", dst)
	}
	if dst.LedgerTTL != 10*time.Minute || dst.PaystackRateNGN != 1500 {
		t.Fatal("unset fields must keep defaults")
	}
}

func TestMergeDoesNotOverwriteBoolDefaultsWhenUnset(t *testing.T) {
	dst := Default()
	dst.Sandbox = true
	if err := Merge(&dst, FileConfig{}); err != nil {
		t.Fatal(err)
	}
	if !dst.Sandbox {
		t.Fatal("sandbox flipped by an empty section")
	}
}

func TestMergeRejectsUnknownPolicy(t *testing.T) {
	dst := Default()
	if err := Merge(&dst, FileConfig{Identity: IdentitySection{FallbackPolicy: "silent"}}); err == nil {
		t.Fatal("expected policy error")
	}
}

func TestLoadFromPathAppliesFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	raw := "server:\n  addr: \":7000\"\n  sandbox: true\nidentity:\n  backend: memory\nlog:\n  format: text\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OLINK_HTTP_ADDR", ":7100")
	t.Setenv("OLINK_WALLET_SECRET", "w")
	t.Setenv("OLINK_PHONE_KEY_SECRET", "p")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":7100" || !cfg.Sandbox || cfg.IdentityBackend != "memory" || cfg.LogFormat != "text" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sandbox config should validate: %v", err)
	}
}

func TestLoadFromPathMissingExplicitFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestEnvOverridesRejectBadValues(t *testing.T) {
	cfg := Default()
	t.Setenv("OLINK_SANDBOX", "maybe")
	if err := ApplyEnvOverrides(&cfg); err == nil {
		t.Fatal("expected bool parse error")
	}
}

func TestValidate(t *testing.T) {
	base := Default()
	base.WalletSecret, base.PhoneKeySecret = "w", "p"

	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"missing secrets", func(c *Config) { c.WalletSecret = "" }, false},
		{"unknown backend", func(c *Config) { c.IdentityBackend = "redis" }, false},
		{"same fallback", func(c *Config) { c.IdentityFallback = "badger" }, false},
		{"live without rpc", func(c *Config) {}, false},
		{"live complete", func(c *Config) { c.ChainRPCURL = "http://rpc"; c.PaystackSecretKey = "sk" }, true},
		{"sandbox", func(c *Config) { c.Sandbox = true }, true},
	}
	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		if err := cfg.Validate(); (err == nil) != tc.ok {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
	}
}
