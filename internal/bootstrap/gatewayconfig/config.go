package gatewayconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"olink/go-backend/internal/identity"
)

// Config is the resolved runtime configuration of the gateway.
type Config struct {
	HTTPAddr       string
	DataDir        string
	Sandbox        bool
	RequestTimeout time.Duration
	AdminToken     string

	IdentityBackend  string
	IdentityFallback string
	FallbackPolicy   identity.Policy
	WalletSecret     string
	PhoneKeySecret   string

	MaxPINFailures int
	PINLockout     time.Duration

	ChainRPCURL string
	ChainSymbol string

	PaystackBaseURL   string
	PaystackSecretKey string
	PaystackRateNGN   float64

	SMSProvider string
	ATUsername  string
	ATAPIKey    string
	ATSenderID  string
	ATSandbox   bool

	RateLimitRPS   float64
	RateLimitBurst int

	LedgerSize int
	LedgerTTL  time.Duration

	AuditLimit int
	AuditPath  string

	LogFormat string
	LogLevel  string
}

func Default() Config {
	return Config{
		HTTPAddr:        "127.0.0.1:8080",
		DataDir:         "data",
		RequestTimeout:  8 * time.Second,
		IdentityBackend: "badger",
		FallbackPolicy:  identity.PolicyPrimaryOnly,
		MaxPINFailures:  5,
		PINLockout:      15 * time.Minute,
		ChainSymbol:     "A0GI",
		PaystackRateNGN: 1500,
		SMSProvider:     "log",
		RateLimitRPS:    1,
		RateLimitBurst:  10,
		LedgerSize:      4096,
		LedgerTTL:       10 * time.Minute,
		AuditLimit:      1000,
		LogFormat:       "json",
		LogLevel:        "info",
	}
}

type FileConfig struct {
	Server   ServerSection   `yaml:"server"`
	Identity IdentitySection `yaml:"identity"`
	Chain    ChainSection    `yaml:"chain"`
	Paystack PaystackSection `yaml:"paystack"`
	SMS      SMSSection      `yaml:"sms"`
	Audit    AuditSection    `yaml:"audit"`
	Log      LogSection      `yaml:"log"`
}

type ServerSection struct {
	Addr           string        `yaml:"addr"`
	DataDir        string        `yaml:"dataDir"`
	Sandbox        *bool         `yaml:"sandbox"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	RateLimitRPS   float64       `yaml:"rateLimitRps"`
	RateLimitBurst int           `yaml:"rateLimitBurst"`
	LedgerSize     int           `yaml:"ledgerSize"`
	LedgerTTL      time.Duration `yaml:"ledgerTtl"`
}

type IdentitySection struct {
	Backend        string        `yaml:"backend"`
	Fallback       string        `yaml:"fallback"`
	FallbackPolicy string        `yaml:"fallbackPolicy"`
	MaxPINFailures int           `yaml:"maxPinFailures"`
	PINLockout     time.Duration `yaml:"pinLockout"`
}

type ChainSection struct {
	RPCURL string `yaml:"rpcUrl"`
	Symbol string `yaml:"symbol"`
}

type PaystackSection struct {
	BaseURL string  `yaml:"baseUrl"`
	RateNGN float64 `yaml:"rateNgn"`
}

type SMSSection struct {
	Provider string `yaml:"provider"`
	Username string `yaml:"username"`
	SenderID string `yaml:"senderId"`
	Sandbox  *bool  `yaml:"sandbox"`
}

type AuditSection struct {
	Limit int    `yaml:"limit"`
	Path  string `yaml:"path"`
}

type LogSection struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// LoadFromPath reads configPath, or the first default candidate that exists,
// merges it over Default and applies OLINK_* environment overrides. Secrets
// are only ever read from the environment.
func LoadFromPath(configPath string) (Config, error) {
	cfg := Default()

	candidates := []string{"configs/gateway.yaml", "go-backend/configs/gateway.yaml"}
	if configPath != "" {
		candidates = []string{configPath}
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if configPath != "" {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
			continue
		}
		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := Merge(&cfg, parsed); err != nil {
			return Config{}, err
		}
		break
	}
	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Merge(dst *Config, src FileConfig) error {
	s := src.Server
	if s.Addr != "" {
		dst.HTTPAddr = s.Addr
	}
	if s.DataDir != "" {
		dst.DataDir = s.DataDir
	}
	if s.Sandbox != nil {
		dst.Sandbox = *s.Sandbox
	}
	if s.RequestTimeout != 0 {
		dst.RequestTimeout = s.RequestTimeout
	}
	if s.RateLimitRPS != 0 {
		dst.RateLimitRPS = s.RateLimitRPS
	}
	if s.RateLimitBurst != 0 {
		dst.RateLimitBurst = s.RateLimitBurst
	}
	if s.LedgerSize != 0 {
		dst.LedgerSize = s.LedgerSize
	}
	if s.LedgerTTL != 0 {
		dst.LedgerTTL = s.LedgerTTL
	}

	id := src.Identity
	if id.Backend != "" {
		dst.IdentityBackend = id.Backend
	}
	if id.Fallback != "" {
		dst.IdentityFallback = id.Fallback
	}
	if id.FallbackPolicy != "" {
		p, err := identity.ParsePolicy(id.FallbackPolicy)
		if err != nil {
			return err
		}
		dst.FallbackPolicy = p
	}
	if id.MaxPINFailures != 0 {
		dst.MaxPINFailures = id.MaxPINFailures
	}
	if id.PINLockout != 0 {
		dst.PINLockout = id.PINLockout
	}

	if src.Chain.RPCURL != "" {
		dst.ChainRPCURL = src.Chain.RPCURL
	}
	if src.Chain.Symbol != "" {
		dst.ChainSymbol = src.Chain.Symbol
	}
	if src.Paystack.BaseURL != "" {
		dst.PaystackBaseURL = src.Paystack.BaseURL
	}
	if src.Paystack.RateNGN != 0 {
		dst.PaystackRateNGN = src.Paystack.RateNGN
	}

	if src.SMS.Provider != "" {
		dst.SMSProvider = src.SMS.Provider
	}
	if src.SMS.Username != "" {
		dst.ATUsername = src.SMS.Username
	}
	if src.SMS.SenderID != "" {
		dst.ATSenderID = src.SMS.SenderID
	}
	if src.SMS.Sandbox != nil {
		dst.ATSandbox = *src.SMS.Sandbox
	}

	if src.Audit.Limit != 0 {
		dst.AuditLimit = src.Audit.Limit
	}
	if src.Audit.Path != "" {
		dst.AuditPath = src.Audit.Path
	}
	if src.Log.Format != "" {
		dst.LogFormat = src.Log.Format
	}
	if src.Log.Level != "" {
		dst.LogLevel = src.Log.Level
	}
	return nil
}

func ApplyEnvOverrides(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	str("OLINK_HTTP_ADDR", &cfg.HTTPAddr)
	str("OLINK_DATA_DIR", &cfg.DataDir)
	str("OLINK_ADMIN_TOKEN", &cfg.AdminToken)
	str("OLINK_IDENTITY_BACKEND", &cfg.IdentityBackend)
	str("OLINK_IDENTITY_FALLBACK", &cfg.IdentityFallback)
	str("OLINK_WALLET_SECRET", &cfg.WalletSecret)
	str("OLINK_PHONE_KEY_SECRET", &cfg.PhoneKeySecret)
	str("OLINK_CHAIN_RPC_URL", &cfg.ChainRPCURL)
	str("OLINK_PAYSTACK_SECRET_KEY", &cfg.PaystackSecretKey)
	str("OLINK_SMS_PROVIDER", &cfg.SMSProvider)
	str("OLINK_AT_USERNAME", &cfg.ATUsername)
	str("OLINK_AT_API_KEY", &cfg.ATAPIKey)
	str("OLINK_LOG_FORMAT", &cfg.LogFormat)
	str("OLINK_LOG_LEVEL", &cfg.LogLevel)

	if raw := strings.TrimSpace(os.Getenv("OLINK_FALLBACK_POLICY")); raw != "" {
		p, err := identity.ParsePolicy(raw)
		if err != nil {
			return err
		}
		cfg.FallbackPolicy = p
	}
	if raw := strings.TrimSpace(os.Getenv("OLINK_SANDBOX")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("OLINK_SANDBOX: %w", err)
		}
		cfg.Sandbox = v
	}
	if raw := strings.TrimSpace(os.Getenv("OLINK_PAYSTACK_RATE_NGN")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("OLINK_PAYSTACK_RATE_NGN: %w", err)
		}
		cfg.PaystackRateNGN = v
	}
	return nil
}

var backends = map[string]struct{}{"memory": {}, "file": {}, "badger": {}}

// Validate reports the first setting that prevents the gateway from
// starting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.WalletSecret) == "" {
		return errors.New("OLINK_WALLET_SECRET is required")
	}
	if strings.TrimSpace(c.PhoneKeySecret) == "" {
		return errors.New("OLINK_PHONE_KEY_SECRET is required")
	}
	if _, ok := backends[c.IdentityBackend]; !ok {
		return fmt.Errorf("unknown identity backend %q", c.IdentityBackend)
	}
	if c.IdentityFallback != "" {
		if _, ok := backends[c.IdentityFallback]; !ok {
			return fmt.Errorf("unknown identity fallback backend %q", c.IdentityFallback)
		}
		if c.IdentityFallback == c.IdentityBackend {
			return errors.New("identity fallback must differ from the primary backend")
		}
	}
	if c.Sandbox {
		return nil
	}
	if c.ChainRPCURL == "" {
		return errors.New("chain rpc url is required outside sandbox mode")
	}
	if c.PaystackSecretKey == "" {
		return errors.New("OLINK_PAYSTACK_SECRET_KEY is required outside sandbox mode")
	}
	if c.SMSProvider == "africastalking" && (c.ATUsername == "" || c.ATAPIKey == "") {
		return errors.New("africastalking sms requires username and OLINK_AT_API_KEY")
	}
	return nil
}
