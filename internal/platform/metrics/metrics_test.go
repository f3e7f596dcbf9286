package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"olink/go-backend/internal/ussd"
)

func TestCountersAndHandler(t *testing.T) {
	r := New()
	r.ObserveStep(ussd.FlowTransfer, ussd.ActionTransferCommit)
	r.ObserveStep(ussd.FlowTransfer, ussd.ActionTransferCommit)
	r.ObserveUpstreamFailure("chain")
	r.ObserveRequest(OutcomeTerminate, 30*time.Millisecond)
	r.NotificationDropped()

	if got := testutil.ToFloat64(r.steps.WithLabelValues("transfer", "transfer_commit")); got != 2 {
		t.Fatalf("steps = %v", got)
	}
	if got := testutil.ToFloat64(r.upstream.WithLabelValues("chain")); got != 1 {
		t.Fatalf("upstream = %v", got)
	}
	if got := testutil.ToFloat64(r.dropped); got != 1 {
		t.Fatalf("dropped = %v", got)
	}

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`olink_ussd_requests_total{outcome="terminate"} 1`,
		`olink_ussd_flow_steps_total{flow="transfer",step="transfer_commit"} 2`,
		"olink_ussd_request_duration_seconds_bucket",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
