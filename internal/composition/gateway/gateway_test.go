package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"olink/go-backend/internal/bootstrap/gatewayconfig"
)

func sandboxConfig(t *testing.T, backend string) gatewayconfig.Config {
	t.Helper()
	cfg := gatewayconfig.Default()
	cfg.Sandbox = true
	cfg.DataDir = t.TempDir()
	cfg.IdentityBackend = backend
	cfg.WalletSecret = "wallet-secret"
	cfg.PhoneKeySecret = "phone-key-secret"
	return cfg
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := gatewayconfig.Default()
	if _, err := Build(context.Background(), cfg, NewLogger(io.Discard, "json", "info")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSandboxGatewayPersistsAcrossRestart(t *testing.T) {
	cfg := sandboxConfig(t, "file")
	logger := NewLogger(io.Discard, "json", "info")
	phone := "+2348000000001"

	g, err := Build(context.Background(), cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range []string{"", "1234", "1234*1234"} {
		post(t, g.Server.Handler(), phone, text)
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}

	g, err = Build(context.Background(), cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	if body := post(t, g.Server.Handler(), phone, ""); !strings.HasPrefix(body, "CON O-Link | 0G") {
		t.Fatalf("registered caller should see the menu, got %q", body)
	}
}

func TestFallbackStoreIsWired(t *testing.T) {
	cfg := sandboxConfig(t, "badger")
	cfg.IdentityFallback = "memory"
	cfg.FallbackPolicy = "mirror"
	g, err := Build(context.Background(), cfg, NewLogger(io.Discard, "text", "debug"))
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	if body := post(t, g.Server.Handler(), "+2348000000002", "4321*4321"); !strings.HasPrefix(body, "END") {
		t.Fatalf("got %q", body)
	}
}

func TestLoggerSanitizes(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "json", "info").Info("x", "phone", "+2348000000001", "pin", "1234")
	if strings.Contains(buf.String(), "2348000000001") || !strings.Contains(buf.String(), `"pin":"[REDACTED]"`) {
		t.Fatalf("log leaked: %s", buf.String())
	}
	buf.Reset()
	NewLogger(&buf, "json", "warn").Info("hidden")
	if buf.Len() != 0 {
		t.Fatal("info must be filtered at warn level")
	}
}

func post(t *testing.T, h http.Handler, phone, text string) string {
	t.Helper()
	form := url.Values{"sessionId": {"s-" + phone}, "serviceCode": {"*384*77#"}, "phoneNumber": {phone}, "text": {text}}
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d for %q", rec.Code, text)
	}
	return rec.Body.String()
}
