package gateway

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"olink/go-backend/internal/bootstrap/gatewayconfig"
	"olink/go-backend/internal/identity"
	"olink/go-backend/internal/platform/metrics"
)

const (
	identitySnapshotFile = "identities.enc"
	identityBadgerDir    = "identities.badger"
)

func openBackend(kind string, cfg gatewayconfig.Config) (identity.Store, error) {
	switch kind {
	case "memory":
		return identity.NewMemoryStore(), nil
	case "file":
		return identity.NewFileStore(filepath.Join(cfg.DataDir, identitySnapshotFile), cfg.WalletSecret)
	case "badger":
		return identity.OpenBadgerStore(filepath.Join(cfg.DataDir, identityBadgerDir))
	default:
		return nil, fmt.Errorf("unknown identity backend %q", kind)
	}
}

// openIdentityStore opens the primary backend and, when configured, wraps it
// with a fallback under the declared policy. Degraded operations are logged
// and counted.
func openIdentityStore(cfg gatewayconfig.Config, m *metrics.Registry, logger *slog.Logger) (identity.Store, error) {
	primary, err := openBackend(cfg.IdentityBackend, cfg)
	if err != nil {
		return nil, fmt.Errorf("open identity store: %w", err)
	}
	if cfg.IdentityFallback == "" || cfg.FallbackPolicy == identity.PolicyPrimaryOnly {
		return primary, nil
	}
	fallback, err := openBackend(cfg.IdentityFallback, cfg)
	if err != nil {
		_ = primary.Close()
		return nil, fmt.Errorf("open identity fallback: %w", err)
	}
	degraded := func(op string, err error) {
		m.ObserveUpstreamFailure("identity_" + op)
		logger.Warn("identity store degraded", "op", op, "primary", cfg.IdentityBackend, "fallback", cfg.IdentityFallback, "err", err)
	}
	return identity.NewFallbackStore(primary, fallback, cfg.FallbackPolicy, degraded), nil
}
