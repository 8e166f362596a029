package agentguard

import (
	"context"
	"encoding/json"
	"testing"
)

func TestSessionAutoGeneratesID(t *testing.T) {
	_, url := newMockBackend(t)
	g := newAsyncGuard(t, url)

	s := g.Session("test-agent")
	if len(s.ID()) != 36 {
		t.Errorf("expected UUID session ID, got %q", s.ID())
	}
}

func TestSessionUsesProvidedID(t *testing.T) {
	_, url := newMockBackend(t)
	g := newAsyncGuard(t, url)

	s := g.Session("test-agent", WithSessionID("custom-id"))
	if s.ID() != "custom-id" {
		t.Errorf("session ID = %q", s.ID())
	}
}

func TestSessionIncrementsSequence(t *testing.T) {
	backend, url := newMockBackend(t)
	g := newAsyncGuard(t, url)

	s := g.Session("test-agent")
	for _, output := range []string{"b", "d"} {
		tc := s.Trace(WithTask("turn"), WithInput("x"))
		tc.Record(output)
		if _, err := tc.End(context.Background()); err != nil {
			t.Fatalf("end: %v", err)
		}
	}
	if s.Sequence() != 2 {
		t.Errorf("sequence = %d, want 2", s.Sequence())
	}

	g.Flush(context.Background())
	backend.mu.Lock()
	defer backend.mu.Unlock()
	var payload struct {
		Events []struct {
			SessionID string `json:"session_id"`
			Sequence  int    `json:"sequence"`
		} `json:"events"`
	}
	if err := json.Unmarshal(backend.ingested[0], &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(payload.Events))
	}
	for i, ev := range payload.Events {
		if ev.SessionID != s.ID() {
			t.Errorf("events[%d].session_id = %q, want %q", i, ev.SessionID, s.ID())
		}
		if ev.Sequence != i+1 {
			t.Errorf("events[%d].sequence = %d, want %d", i, ev.Sequence, i+1)
		}
	}
}

func TestSessionParentExecutionLink(t *testing.T) {
	backend, url := newMockBackend(t)
	g := newAsyncGuard(t, url)

	s := g.Session("test-agent")
	parent := s.Trace(WithTask("parent"))
	parent.Record("parent output")
	if _, err := parent.End(context.Background()); err != nil {
		t.Fatal(err)
	}

	child := s.Trace(WithTask("child"), WithParentExecution(parent.ExecutionID()))
	child.Record("child output")
	if _, err := child.End(context.Background()); err != nil {
		t.Fatal(err)
	}

	g.Flush(context.Background())
	backend.mu.Lock()
	defer backend.mu.Unlock()
	var payload struct {
		Events []struct {
			ExecutionID       string `json:"execution_id"`
			ParentExecutionID string `json:"parent_execution_id"`
		} `json:"events"`
	}
	if err := json.Unmarshal(backend.ingested[0], &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Events[1].ParentExecutionID != payload.Events[0].ExecutionID {
		t.Errorf("child parent_execution_id = %q, want %q",
			payload.Events[1].ParentExecutionID, payload.Events[0].ExecutionID)
	}
}

func TestSessionMetadataMergedIntoTraces(t *testing.T) {
	backend, url := newMockBackend(t)
	g := newAsyncGuard(t, url)

	s := g.Session("test-agent", WithSessionMetadata(map[string]any{"mode": "chat", "tier": "pro"}))

	tc := s.Trace(WithTask("turn 1"))
	tc.SetMetadata("mode", "override")
	tc.Record("y")
	if _, err := tc.End(context.Background()); err != nil {
		t.Fatal(err)
	}

	g.Flush(context.Background())
	backend.mu.Lock()
	defer backend.mu.Unlock()
	var payload struct {
		Events []struct {
			Metadata map[string]any `json:"metadata"`
		} `json:"events"`
	}
	if err := json.Unmarshal(backend.ingested[0], &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	md := payload.Events[0].Metadata
	if md["mode"] != "override" {
		t.Errorf("trace metadata should override session metadata, got %v", md["mode"])
	}
	if md["tier"] != "pro" {
		t.Errorf("session metadata should flow into the trace, got %+v", md)
	}
}
