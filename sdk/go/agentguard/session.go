package agentguard

import (
	"sync"

	"github.com/google/uuid"
)

// Session groups the executions of one conversation or workflow. It assigns
// monotonic sequence numbers, stamps every trace with the session ID, and
// merges session metadata under trace metadata. Safe for concurrent use.
type Session struct {
	g        *Guard
	agentID  string
	id       string
	metadata map[string]any

	mu  sync.Mutex
	seq int
}

// Session starts a session for the given agent. The session ID is a
// generated UUID unless WithSessionID provides one.
func (g *Guard) Session(agentID string, opts ...SessionOption) *Session {
	sc := sessionConfig{}
	for _, o := range opts {
		o(&sc)
	}
	if sc.id == "" {
		sc.id = uuid.NewString()
	}
	return &Session{
		g:        g,
		agentID:  agentID,
		id:       sc.id,
		metadata: sc.metadata,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Sequence returns the number of traces started so far.
func (s *Session) Sequence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Trace starts the session's next trace. The trace carries the session ID,
// the next sequence number, and the session metadata; trace-level metadata
// with the same key takes precedence.
func (s *Session) Trace(opts ...TraceOption) *TraceContext {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	tc := s.g.Trace(s.agentID, opts...)
	tc.mu.Lock()
	tc.sessionID = s.id
	tc.sequence = seq
	for k, v := range s.metadata {
		if _, ok := tc.metadata[k]; !ok {
			tc.metadata[k] = v
		}
	}
	tc.mu.Unlock()
	return tc
}
