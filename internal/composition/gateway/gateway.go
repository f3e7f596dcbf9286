// Package gateway wires configuration into a running USSD gateway.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"olink/go-backend/internal/adapters/ussdhttp"
	"olink/go-backend/internal/audit"
	"olink/go-backend/internal/bootstrap/gatewayconfig"
	"olink/go-backend/internal/chain"
	"olink/go-backend/internal/custody"
	"olink/go-backend/internal/identity"
	"olink/go-backend/internal/notify"
	"olink/go-backend/internal/payments"
	"olink/go-backend/internal/platform/breaker"
	"olink/go-backend/internal/platform/metrics"
	"olink/go-backend/internal/platform/ratelimiter"
	"olink/go-backend/internal/sandbox"
	"olink/go-backend/internal/ussd"
)

type Gateway struct {
	Server   *ussdhttp.Server
	Engine   *ussd.Engine
	Metrics  *metrics.Registry
	Journal  *audit.Journal
	store    identity.Store
	notifier *notify.Dispatcher
	log      *slog.Logger
}

// Build validates cfg and assembles every collaborator. In sandbox mode the
// chain and payment gateway are replaced by fixed-answer fakes and SMS is
// logged instead of sent.
func Build(ctx context.Context, cfg gatewayconfig.Config, logger *slog.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := metrics.New()

	journal := audit.NewJournal(cfg.AuditLimit, logger)
	if cfg.AuditPath != "" {
		if err := journal.OpenFile(cfg.AuditPath); err != nil {
			return nil, err
		}
	}

	store, err := openIdentityStore(cfg, m, logger)
	if err != nil {
		_ = journal.Close()
		return nil, err
	}
	keys, err := identity.NewKeyer(cfg.PhoneKeySecret)
	if err != nil {
		_ = store.Close()
		_ = journal.Close()
		return nil, err
	}
	wallets, err := custody.NewService(store, keys, custody.Config{
		Secret:         cfg.WalletSecret,
		MaxPINFailures: cfg.MaxPINFailures,
		PINLockout:     cfg.PINLockout,
	})
	if err != nil {
		_ = store.Close()
		_ = journal.Close()
		return nil, err
	}

	chainSvc, paySvc, sender, err := buildUpstreams(ctx, cfg, wallets, logger)
	if err != nil {
		_ = store.Close()
		_ = journal.Close()
		return nil, err
	}
	dispatcher := notify.NewDispatcher(sender, notify.Options{OnDrop: m.NotificationDropped, Logger: logger})

	engine, err := ussd.NewEngine(ussd.Deps{
		Identities: store,
		Keys:       keys,
		Custody:    wallets,
		Directory:  wallets,
		Chain:      chainSvc,
		Payments:   paySvc,
		Notifier:   dispatcher,
		Auditor:    journal,
		Observer:   m,
		Ledger:     ussd.NewCommitLedger(cfg.LedgerSize, cfg.LedgerTTL),
		Logger:     logger,
	})
	if err != nil {
		dispatcher.Stop()
		_ = store.Close()
		_ = journal.Close()
		return nil, err
	}

	srv := ussdhttp.New(engine, ussdhttp.Options{
		Addr:       cfg.HTTPAddr,
		Timeout:    cfg.RequestTimeout,
		Limiter:    ratelimiter.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute),
		Metrics:    m,
		Audit:      journal,
		AdminToken: cfg.AdminToken,
		Logger:     logger,
	})
	return &Gateway{
		Server:   srv,
		Engine:   engine,
		Metrics:  m,
		Journal:  journal,
		store:    store,
		notifier: dispatcher,
		log:      logger,
	}, nil
}

func buildUpstreams(ctx context.Context, cfg gatewayconfig.Config, wallets *custody.Service, logger *slog.Logger) (ussd.Chain, ussd.Payments, notify.Sender, error) {
	if cfg.Sandbox {
		logger.Warn("sandbox mode: chain, payments and sms are simulated")
		return sandbox.Chain{Logger: logger}, sandbox.Payments{Logger: logger}, notify.LogSender{Logger: logger}, nil
	}
	chainSvc, err := chain.Dial(ctx, cfg.ChainRPCURL, wallets, chain.Config{
		Symbol:  cfg.ChainSymbol,
		Breaker: breaker.New(breaker.Settings{Name: "chain", Logger: logger}),
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	paySvc, err := payments.New(payments.Config{
		BaseURL:     cfg.PaystackBaseURL,
		SecretKey:   cfg.PaystackSecretKey,
		FiatPerUnit: cfg.PaystackRateNGN,
		Breaker:     breaker.New(breaker.Settings{Name: "paystack", Ignore: payments.IsClientError, Logger: logger}),
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	var sender notify.Sender = notify.LogSender{Logger: logger}
	switch cfg.SMSProvider {
	case "africastalking":
		endpoint := notify.ATLiveURL
		if cfg.ATSandbox {
			endpoint = notify.ATSandboxURL
		}
		sender = &notify.AfricasTalking{Endpoint: endpoint, Username: cfg.ATUsername, APIKey: cfg.ATAPIKey, SenderID: cfg.ATSenderID}
	case "log", "":
	default:
		return nil, nil, nil, fmt.Errorf("unknown sms provider %q", cfg.SMSProvider)
	}
	return chainSvc, paySvc, sender, nil
}

// Run serves until ctx is cancelled, then drains notifications and closes
// storage.
func (g *Gateway) Run(ctx context.Context) error {
	err := g.Server.Run(ctx)
	return errors.Join(err, g.Close())
}

func (g *Gateway) Close() error {
	g.notifier.Stop()
	return errors.Join(g.store.Close(), g.Journal.Close())
}
