package cli

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentguard/agentguard-go/internal/model"
	"github.com/agentguard/agentguard-go/internal/spool"
)

func writeTestJournal(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "undelivered.jsonl")
	journal := spool.NewJournal(path)
	for i := 0; i < n; i++ {
		ev := model.ExecutionEvent{
			ExecutionID: fmt.Sprintf("exec-%d", i),
			AgentID:     "replay",
			StartedAt:   time.Now().UTC(),
		}
		if err := journal.Append(ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return path
}

func setIngestFlags(t *testing.T, url, file string) {
	t.Helper()
	prevURL, prevKey, prevTimeout := rootAPIURL, rootAPIKey, rootTimeout
	prevFile, prevKeep := ingestFile, ingestKeep
	rootAPIURL = url
	rootAPIKey = "ag_test_key"
	rootTimeout = 2 * time.Second
	ingestFile = file
	ingestKeep = false
	t.Cleanup(func() {
		rootAPIURL, rootAPIKey, rootTimeout = prevURL, prevKey, prevTimeout
		ingestFile, ingestKeep = prevFile, prevKeep
	})
}

func TestIngestClearsJournalOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	path := writeTestJournal(t, 3)
	setIngestFlags(t, srv.URL, path)

	if err := runIngest(ingestCmd, nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("journal not removed after successful replay: %v", err)
	}
}

func TestIngestFailureKeepsJournalWithoutRetry(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	path := writeTestJournal(t, 3)
	setIngestFlags(t, srv.URL, path)

	if err := runIngest(ingestCmd, nil); err == nil {
		t.Fatal("expected error when delivery fails")
	}
	// Exactly one delivery attempt: a second one after the failure report
	// could succeed and turn the kept journal into duplicates on rerun.
	if got := requests.Load(); got != 1 {
		t.Errorf("delivery attempts = %d, want 1", got)
	}
	events, err := spool.NewJournal(path).ReadAll()
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("journal has %d events after failed replay, want 3", len(events))
	}
}
