package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"olink/go-backend/internal/testutil/fsperm"
)

func TestPublishFingerprintsCallerIDs(t *testing.T) {
	j := NewJournal(10, nil)
	j.Publish("transfer", map[string]string{"phone": "+2348000000001", "session_id": "s1", "tx_hash": "0xabc"})
	got := j.Since(0)
	if len(got) != 1 {
		t.Fatalf("entries %d", len(got))
	}
	attrs := got[0].Attrs
	if _, ok := attrs["phone"]; ok {
		t.Fatal("phone must not be stored")
	}
	if !strings.HasPrefix(attrs["phone_fp"], "fp_") || attrs["tx_hash"] != "0xabc" {
		t.Fatalf("attrs %v", attrs)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	j := NewJournal(2, nil)
	for i := 0; i < 5; i++ {
		j.Publish("charge", nil)
	}
	got := j.Since(0)
	if len(got) != 2 || got[0].Seq != 4 || got[1].Seq != 5 {
		t.Fatalf("history %+v", got)
	}
	if len(j.Since(5)) != 0 {
		t.Fatal("expected nothing after the last sequence")
	}
}

func TestSubscribeReplaysAndStreams(t *testing.T) {
	j := NewJournal(10, nil)
	j.Publish("a", nil)
	replay, ch, cancel := j.Subscribe(0)
	defer cancel()
	if len(replay) != 1 || replay[0].Kind != "a" {
		t.Fatalf("replay %+v", replay)
	}
	j.Publish("b", nil)
	if e := <-ch; e.Kind != "b" || e.Seq != 2 {
		t.Fatalf("streamed %+v", e)
	}
}

func TestFileSinkAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "journal.jsonl")
	j := NewJournal(10, nil)
	if err := j.OpenFile(path); err != nil {
		t.Fatal(err)
	}
	j.Publish("payout", map[string]string{"reference": "ref-1"})
	j.Publish("charge", map[string]string{"reference": "ref-2"})
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}
	fsperm.AssertPrivateFilePerm(t, path)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var kinds []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		kinds = append(kinds, e.Kind)
	}
	if strings.Join(kinds, ",") != "payout,charge" {
		t.Fatalf("kinds %v", kinds)
	}
}
