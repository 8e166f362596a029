package agentguard

import (
	"log/slog"
	"time"
)

// Option configures a Guard at creation time.
type Option func(*guardConfig)

type guardConfig struct {
	cfg    Config
	cfgErr error
	logger *slog.Logger
}

// WithConfig replaces the entire config. Later options still apply on top.
func WithConfig(cfg Config) Option {
	return func(g *guardConfig) { g.cfg = cfg }
}

// WithConfigFile loads a YAML config file. Missing files fall back to
// defaults; parse errors surface from New.
func WithConfigFile(path string) Option {
	return func(g *guardConfig) {
		cfg, err := LoadConfig(path)
		if err != nil {
			g.cfgErr = err
			return
		}
		g.cfg = cfg
	}
}

// WithAPIURL sets the backend base URL.
func WithAPIURL(url string) Option {
	return func(g *guardConfig) { g.cfg.APIURL = url }
}

// WithMode selects async batching or sync verification.
func WithMode(mode Mode) Option {
	return func(g *guardConfig) { g.cfg.Mode = mode }
}

// WithFlushInterval sets the period of the automatic flush in async mode.
func WithFlushInterval(d time.Duration) Option {
	return func(g *guardConfig) { g.cfg.FlushInterval = d }
}

// WithFlushBatchSize sets the buffer length that triggers a flush.
func WithFlushBatchSize(n int) Option {
	return func(g *guardConfig) { g.cfg.FlushBatchSize = n }
}

// WithTimeout sets the per-request HTTP timeout for both transports.
func WithTimeout(d time.Duration) Option {
	return func(g *guardConfig) { g.cfg.Timeout = d }
}

// WithSpoolDir enables journaling of undelivered events to the given
// directory when the guard closes with a failing backend.
func WithSpoolDir(dir string) Option {
	return func(g *guardConfig) { g.cfg.SpoolDir = dir }
}

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(g *guardConfig) { g.logger = logger }
}

// TraceOption configures a single trace, watch, or run.
type TraceOption func(*traceConfig)

type traceConfig struct {
	task              string
	input             any
	groundTruth       any
	schema            any
	metadata          map[string]any
	parentExecutionID string
}

// WithTask describes what the agent is being asked to do.
func WithTask(task string) TraceOption {
	return func(t *traceConfig) { t.task = task }
}

// WithInput records the input payload when it is not captured by Watch.
func WithInput(input any) TraceOption {
	return func(t *traceConfig) { t.input = input }
}

// WithGroundTruth attaches reference data for the verifier to compare against.
func WithGroundTruth(gt any) TraceOption {
	return func(t *traceConfig) { t.groundTruth = gt }
}

// WithSchema attaches an output schema descriptor.
func WithSchema(schema any) TraceOption {
	return func(t *traceConfig) { t.schema = schema }
}

// WithMetadata merges key/value pairs into the event metadata.
func WithMetadata(md map[string]any) TraceOption {
	return func(t *traceConfig) {
		if t.metadata == nil {
			t.metadata = make(map[string]any, len(md))
		}
		for k, v := range md {
			t.metadata[k] = v
		}
	}
}

// WithParentExecution links this execution to a parent execution ID.
func WithParentExecution(id string) TraceOption {
	return func(t *traceConfig) { t.parentExecutionID = id }
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	id       string
	metadata map[string]any
}

// WithSessionID uses the given session ID instead of generating one.
func WithSessionID(id string) SessionOption {
	return func(s *sessionConfig) { s.id = id }
}

// WithSessionMetadata attaches metadata merged into every trace of the
// session. Trace-level metadata with the same key wins.
func WithSessionMetadata(md map[string]any) SessionOption {
	return func(s *sessionConfig) { s.metadata = md }
}
