package privacylog

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	redactedValue = "[REDACTED]"
	maskKeep      = 4
)

type rule int

const (
	ruleKeep rule = iota
	ruleRedact
	ruleFingerprint
	ruleMaskTail
)

var (
	bootNonce = randomNonce()

	// Keys matched exactly. The raw keypad history carries PINs in the
	// clear, so it is never logged.
	exactRules = map[string]rule{
		"text":            ruleRedact,
		"ussd_text":       ruleRedact,
		"tokens":          ruleRedact,
		"phone":           ruleFingerprint,
		"phone_number":    ruleFingerprint,
		"recipient_phone": ruleFingerprint,
		"phone_key":       ruleFingerprint,
		"session_id":      ruleFingerprint,
		"bank_account":    ruleMaskTail,
		"account_number":  ruleMaskTail,
	}
	// Keys matched by substring.
	sensitiveKeyParts = []string{"pin", "secret", "token", "password", "mnemonic", "authorization", "api_key", "private_key"}
)

// SanitizingHandler rewrites attributes before they reach next. Secrets and
// keypad input are redacted, caller identifiers become per-boot
// fingerprints and bank accounts keep only their last digits.
type SanitizingHandler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SanitizingHandler{next: h.next.WithAttrs(sanitizeAttrs(attrs))}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

func SanitizeAttr(attr slog.Attr) slog.Attr {
	key := strings.TrimSpace(attr.Key)
	if attr.Value.Kind() == slog.KindGroup {
		return slog.Attr{Key: key, Value: slog.GroupValue(sanitizeAttrs(attr.Value.Group())...)}
	}
	r := classify(key)
	if r == ruleKeep {
		return attr
	}
	outKey, outValue := apply(r, key, valueToString(attr.Value.Resolve()))
	return slog.String(outKey, outValue)
}

// SanitizeArgs applies the same rules to alternating key/value arguments,
// as passed to slog.Logger.Info and friends.
func SanitizeArgs(args ...any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, 0, len(args))
	for i := 0; i < len(args); i++ {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			out = append(out, args[i])
			continue
		}
		value := args[i+1]
		i++
		r := classify(key)
		if r == ruleKeep {
			out = append(out, key, value)
			continue
		}
		outKey, outValue := apply(r, key, fmt.Sprint(value))
		out = append(out, outKey, outValue)
	}
	return out
}

// FingerprintID is stable for one process lifetime only.
func FingerprintID(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed + "|" + bootNonce))
	return "fp_" + hex.EncodeToString(sum[:8])
}

// MaskTail hides all but the last few characters of value.
func MaskTail(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) <= maskKeep {
		return strings.Repeat("*", len(trimmed))
	}
	return strings.Repeat("*", len(trimmed)-maskKeep) + trimmed[len(trimmed)-maskKeep:]
}

func classify(key string) rule {
	lower := strings.ToLower(strings.TrimSpace(key))
	if r, ok := exactRules[lower]; ok {
		return r
	}
	if strings.HasSuffix(lower, "_fp") {
		return ruleKeep
	}
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return ruleRedact
		}
	}
	return ruleKeep
}

func apply(r rule, key, value string) (string, string) {
	switch r {
	case ruleRedact:
		return key, redactedValue
	case ruleFingerprint:
		return key + "_fp", FingerprintID(value)
	case ruleMaskTail:
		return key, MaskTail(value)
	default:
		return key, value
	}
}

func sanitizeAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, SanitizeAttr(attr))
	}
	return out
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v.Any())
	}
}

func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback_nonce"
	}
	return hex.EncodeToString(buf)
}
