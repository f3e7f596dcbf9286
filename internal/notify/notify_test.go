package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type recordingSender struct {
	mu   sync.Mutex
	sent map[string][]string
	gate chan struct{}
	err  error
}

func (s *recordingSender) Send(_ context.Context, to, message string) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[string][]string)
	}
	s.sent[to] = append(s.sent[to], message)
	return s.err
}

func TestDispatcherDeliversAllKinds(t *testing.T) {
	s := &recordingSender{}
	d := NewDispatcher(s, Options{Workers: 2})
	d.SendWalletCreated("+234", "0xabc")
	d.SendDepositAddress("+234", "0xabc")
	d.SendTransferConfirmation("+234", "10", "0xtx", "proof-1")
	d.SendPaymentLink("+234", "https://pay", "1500", "1.0")
	d.SendPayoutInitiated("+234", "3000.00", "JOHN DOE", "ref-1")
	d.Stop()

	got := strings.Join(s.sent["+234"], "\n")
	for _, want := range []string{"0xabc", "Tx: 0xtx", "https://pay", "JOHN DOE"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
	if len(s.sent["+234"]) != 5 {
		t.Fatalf("sent %d messages", len(s.sent["+234"]))
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	s := &recordingSender{gate: make(chan struct{})}
	var dropped atomic.Int32
	d := NewDispatcher(s, Options{Workers: 1, MaxQueue: 1, OnDrop: func() { dropped.Add(1) }})
	for i := 0; i < 20; i++ {
		d.SendDepositAddress("+234", "0xabc")
	}
	if dropped.Load() == 0 {
		t.Fatal("expected drops with a blocked sender")
	}
	close(s.gate)
	d.Stop()
	if int(dropped.Load())+len(s.sent["+234"]) != 20 {
		t.Fatalf("dropped %d, sent %d", dropped.Load(), len(s.sent["+234"]))
	}
}

func TestDispatcherSwallowsSendErrors(t *testing.T) {
	s := &recordingSender{err: errors.New("carrier down")}
	d := NewDispatcher(s, Options{})
	d.SendWalletCreated("+234", "0xabc")
	d.Stop()
	d.SendWalletCreated("+234", "0xdef")
	if len(s.sent["+234"]) != 1 {
		t.Fatalf("sent %d", len(s.sent["+234"]))
	}
}

func TestAfricasTalkingSend(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apiKey") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = r.ParseForm()
		form = map[string]string{"username": r.PostForm.Get("username"), "to": r.PostForm.Get("to"), "message": r.PostForm.Get("message")}
		status := 101
		if r.PostForm.Get("to") == "+000" {
			status = 403
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"SMSMessageData":{"Message":"Sent to 1/1","Recipients":[{"number":"` + r.PostForm.Get("to") + `","status":"x","statusCode":` + strconv.Itoa(status) + `,"messageId":"ATXid_1"}]}}`))
	}))
	defer srv.Close()

	at := &AfricasTalking{Endpoint: srv.URL, Username: "sandbox", APIKey: "key"}
	if err := at.Send(context.Background(), "+2348000000001", "hello"); err != nil {
		t.Fatal(err)
	}
	if form["username"] != "sandbox" || form["to"] != "+2348000000001" || form["message"] != "hello" {
		t.Fatalf("form %v", form)
	}
	if err := at.Send(context.Background(), "+000", "hello"); err == nil {
		t.Fatal("expected rejected recipient error")
	}
	bad := &AfricasTalking{Endpoint: srv.URL, Username: "sandbox", APIKey: "nope"}
	if err := bad.Send(context.Background(), "+2348000000001", "hello"); err == nil {
		t.Fatal("expected auth failure")
	}
}
