// Package payments is the Paystack fiat gateway: inbound charges, account
// resolution and outbound payouts in NGN.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"olink/go-backend/internal/platform/breaker"
	"olink/go-backend/internal/ussd"
)

const (
	DefaultBaseURL = "https://api.paystack.co"
	maxBodyBytes   = 1 << 20
)

type Config struct {
	BaseURL   string
	SecretKey string
	// FiatPerUnit is the NGN price of one native token used for quotes.
	FiatPerUnit float64
	// EmailDomain builds the customer email Paystack requires for a charge;
	// callers have no email, so the phone digits are used as the local part.
	EmailDomain string
	HTTPClient  *http.Client
	Breaker     *breaker.Breaker
	Logger      *slog.Logger
}

type Client struct {
	base   string
	secret string
	rate   float64
	domain string
	http   *http.Client
	cb     *breaker.Breaker
	log    *slog.Logger
}

var _ ussd.Payments = (*Client)(nil)

// APIError is a non-success answer from the gateway.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: status %d: %s", e.Status, e.Message)
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("paystack secret key is required")
	}
	if cfg.FiatPerUnit <= 0 {
		return nil, errors.New("paystack rate must be positive")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = "ussd.olink.app"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{base: base, secret: cfg.SecretKey, rate: cfg.FiatPerUnit, domain: cfg.EmailDomain, http: hc, cb: cfg.Breaker, log: logger}, nil
}

// IsClientError reports errors caused by the request itself. They do not
// count against the gateway's health.
func IsClientError(err error) bool {
	if errors.Is(err, ussd.ErrAccountNotFound) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests
}

func (c *Client) Rate(context.Context) (ussd.Rate, error) {
	return ussd.Rate{FiatPerUnit: c.rate}, nil
}

type initializeRequest struct {
	Email     string            `json:"email"`
	Amount    int64             `json:"amount"`
	Reference string            `json:"reference"`
	Currency  string            `json:"currency"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

// Charge opens a hosted payment page for fiatAmount NGN.
func (c *Client) Charge(ctx context.Context, phone, fiatAmount string) (ussd.Charge, error) {
	kobo, fiat, err := toKobo(fiatAmount)
	if err != nil {
		return ussd.Charge{}, err
	}
	req := initializeRequest{
		Email:     c.customerEmail(phone),
		Amount:    kobo,
		Reference: newReference("chg"),
		Currency:  "NGN",
		Metadata:  map[string]string{"channel": "ussd"},
	}
	var out initializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", req, &out); err != nil {
		return ussd.Charge{}, fmt.Errorf("initialize charge: %w", err)
	}
	ref := out.Reference
	if ref == "" {
		ref = req.Reference
	}
	return ussd.Charge{
		Reference:      ref,
		PaymentURL:     out.AuthorizationURL,
		CryptoEstimate: strconv.FormatFloat(fiat/c.rate, 'f', 4, 64),
	}, nil
}

type resolveData struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// ResolveAccount returns the holder name of a bank account. An account the
// bank does not know yields an error wrapping ussd.ErrAccountNotFound.
func (c *Client) ResolveAccount(ctx context.Context, account, bankCode string) (string, error) {
	q := url.Values{}
	q.Set("account_number", account)
	q.Set("bank_code", bankCode)
	var out resolveData
	err := c.do(ctx, http.MethodGet, "/bank/resolve?"+q.Encode(), nil, &out)
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusUnprocessableEntity):
		return "", fmt.Errorf("%w: %s", ussd.ErrAccountNotFound, apiErr.Message)
	case err != nil:
		return "", fmt.Errorf("resolve account: %w", err)
	case strings.TrimSpace(out.AccountName) == "":
		return "", ussd.ErrAccountNotFound
	}
	return out.AccountName, nil
}

type recipientRequest struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency"`
}

type recipientData struct {
	RecipientCode string `json:"recipient_code"`
}

type transferRequest struct {
	Source    string `json:"source"`
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

type transferData struct {
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
}

// Payout sends fiatAmount NGN to the bank account held by accountName. The
// recipient is created first; Paystack deduplicates recipients by account
// and bank.
func (c *Client) Payout(ctx context.Context, phone, account, bankCode, accountName, fiatAmount string) (ussd.Payout, error) {
	kobo, _, err := toKobo(fiatAmount)
	if err != nil {
		return ussd.Payout{}, err
	}
	if strings.TrimSpace(accountName) == "" {
		accountName = account
	}
	var rcpt recipientData
	if err := c.do(ctx, http.MethodPost, "/transferrecipient", recipientRequest{
		Type:          "nuban",
		Name:          accountName,
		AccountNumber: account,
		BankCode:      bankCode,
		Currency:      "NGN",
	}, &rcpt); err != nil {
		return ussd.Payout{}, fmt.Errorf("create recipient: %w", err)
	}
	req := transferRequest{
		Source:    "balance",
		Amount:    kobo,
		Recipient: rcpt.RecipientCode,
		Reference: newReference("pay"),
		Reason:    "O-Link sale",
	}
	var out transferData
	if err := c.do(ctx, http.MethodPost, "/transfer", req, &out); err != nil {
		return ussd.Payout{}, fmt.Errorf("initiate transfer: %w", err)
	}
	ref := out.Reference
	if ref == "" {
		ref = req.Reference
	}
	c.log.Info("payout initiated", "phone", phone, "reference", ref, "status", out.Status)
	return ussd.Payout{Reference: ref}, nil
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	_, err := breaker.Do(c.cb, func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, method, path, in, out)
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Status {
		status := resp.StatusCode
		if status < 300 {
			status = http.StatusBadGateway
		}
		return &APIError{Status: status, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) customerEmail(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return digits + "@" + c.domain
}

// toKobo converts an NGN amount to the minor unit Paystack bills in.
func toKobo(fiat string) (int64, float64, error) {
	v, ok := ussd.ParseAmount(fiat)
	if !ok {
		return 0, 0, fmt.Errorf("invalid NGN amount %q", fiat)
	}
	return int64(math.Round(v * 100)), v, nil
}

func newReference(kind string) string {
	return "olink-" + kind + "-" + uuid.NewString()
}
