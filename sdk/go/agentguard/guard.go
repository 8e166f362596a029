package agentguard

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agentguard/agentguard-go/internal/model"
	"github.com/agentguard/agentguard-go/internal/spool"
	"github.com/agentguard/agentguard-go/internal/transport"
)

// AgentFunc is the function signature that Watch instruments.
type AgentFunc func(ctx context.Context, input any) (any, error)

// GuardedFunc is an instrumented agent function. It returns the delivery
// outcome alongside the agent's (possibly corrected) output.
type GuardedFunc func(ctx context.Context, input any) (Result, error)

// Guard is the SDK entry point. It owns one transport, selected by the
// configured mode, and is safe for concurrent use.
type Guard struct {
	apiKey string
	cfg    Config
	log    *slog.Logger

	batch  *transport.Batch
	direct *transport.Direct

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Guard. An empty apiKey falls back to AGENTGUARD_API_KEY.
// In async mode a background ticker flushes buffered telemetry every flush
// interval; in sync mode each guarded call blocks for a verdict.
func New(apiKey string, opts ...Option) (*Guard, error) {
	if apiKey == "" {
		apiKey = os.Getenv("AGENTGUARD_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("agentguard: %w: api key is required (set AGENTGUARD_API_KEY or pass it to New)", ErrInvalidConfig)
	}

	gc := guardConfig{cfg: DefaultConfig()}
	for _, o := range opts {
		o(&gc)
	}
	if gc.cfgErr != nil {
		return nil, gc.cfgErr
	}
	if gc.logger == nil {
		gc.logger = slog.Default()
	}

	cfg := gc.cfg.withEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Guard{
		apiKey: apiKey,
		cfg:    cfg,
		log:    gc.logger,
	}

	switch cfg.Mode {
	case ModeSync:
		g.direct = transport.NewDirect(transport.DirectConfig{
			APIURL:  cfg.APIURL,
			APIKey:  apiKey,
			Timeout: cfg.Timeout,
			Logger:  gc.logger,
		})
	default:
		var journal transport.Journal
		if cfg.SpoolDir != "" {
			journal = spool.NewJournal(filepath.Join(cfg.SpoolDir, "undelivered.jsonl"))
		}
		g.batch = transport.NewBatch(transport.BatchConfig{
			APIURL:         cfg.APIURL,
			APIKey:         apiKey,
			FlushBatchSize: cfg.FlushBatchSize,
			Timeout:        cfg.Timeout,
			Logger:         gc.logger,
			Journal:        journal,
		})
		g.stop = make(chan struct{})
		g.wg.Add(1)
		go g.flushLoop()
	}

	return g, nil
}

// flushLoop flushes buffered telemetry on the configured interval until the
// guard closes. This is the trigger that picks up events left behind when a
// threshold flush could not be scheduled.
func (g *Guard) flushLoop() {
	defer g.wg.Done()
	ticker := time.NewTicker(g.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.batch.Flush(context.Background())
		case <-g.stop:
			return
		}
	}
}

// Watch instruments fn. The returned function captures input, output, and
// timing, builds an event, and dispatches it per the configured mode. Agent
// errors propagate unchanged; in async mode the failed execution is still
// recorded with the error in metadata.
func (g *Guard) Watch(agentID string, fn AgentFunc, opts ...TraceOption) GuardedFunc {
	return func(ctx context.Context, input any) (Result, error) {
		tc := g.Trace(agentID, opts...)
		if input != nil {
			tc.setInput(input)
		}

		output, err := fn(ctx, input)
		if err != nil {
			tc.SetMetadata("error", err.Error())
			tc.Record(nil)
			if g.cfg.Mode == ModeAsync {
				// Nothing to verify, but the failure is telemetry too.
				tc.End(ctx)
			}
			return Result{}, err
		}

		tc.Record(output)
		return tc.End(ctx)
	}
}

// Run executes fn once under instrumentation. It is Watch for call sites
// that don't need a reusable wrapper.
func (g *Guard) Run(ctx context.Context, agentID string, fn func(ctx context.Context) (any, error), opts ...TraceOption) (Result, error) {
	guarded := g.Watch(agentID, func(ctx context.Context, _ any) (any, error) {
		return fn(ctx)
	}, opts...)
	return guarded(ctx, nil)
}

// Flush sends any buffered telemetry now. No-op in sync mode.
func (g *Guard) Flush(ctx context.Context) {
	if g.batch != nil {
		g.batch.Flush(ctx)
	}
}

// Close flushes remaining telemetry and releases the transport. Idempotent.
func (g *Guard) Close() {
	g.closeOnce.Do(func() {
		if g.stop != nil {
			close(g.stop)
			g.wg.Wait()
		}
		if g.batch != nil {
			g.batch.Close(context.Background())
		}
		if g.direct != nil {
			g.direct.Close()
		}
	})
}

// dispatch routes a finished event through the configured transport and
// maps the outcome to a Result. Batching never fails the caller; a failed
// verification falls back to pass-through with the original output.
func (g *Guard) dispatch(ctx context.Context, ev model.ExecutionEvent, rawOutput any) (Result, error) {
	if g.cfg.Mode == ModeSync {
		verdict, err := g.direct.Verify(ctx, ev)
		if err != nil {
			g.log.Warn("verification unavailable; passing output through",
				slog.String("agent_id", ev.AgentID),
				slog.String("execution_id", ev.ExecutionID),
				slog.String("error", err.Error()))
			return passThrough(ev, rawOutput), nil
		}
		res := resultFromVerdict(ev, verdict)
		if res.Action == ActionBlock {
			return res, &BlockError{
				AgentID:     ev.AgentID,
				ExecutionID: res.ExecutionID,
				Confidence:  res.Confidence,
				Corrections: res.Corrections,
			}
		}
		return res, nil
	}

	g.batch.Enqueue(ev)
	return passThrough(ev, rawOutput), nil
}
