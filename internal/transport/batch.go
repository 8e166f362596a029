package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/agentguard/agentguard-go/internal/model"
)

// Journal receives events that could not be delivered before Close. The
// spool package provides the standard implementation.
type Journal interface {
	Append(ev model.ExecutionEvent) error
}

// BatchConfig configures a Batch transport.
type BatchConfig struct {
	APIURL         string
	APIKey         string
	FlushBatchSize int
	Timeout        time.Duration
	Logger         *slog.Logger
	Journal        Journal // optional; receives undeliverable events on Close
}

// Batch buffers events and flushes them to the ingestion endpoint in a
// single request. Enqueue never blocks on the network: the buffer is swapped
// out under the lock and the POST happens outside it, so concurrent
// enqueuers are never held up by an in-flight flush.
//
// There is no retry count or backoff. A failed flush returns the batch to
// the front of the buffer and the events ride along until the next flush
// trigger; an unreachable backend therefore grows the buffer without bound.
type Batch struct {
	baseURL string
	apiKey  string
	size    int
	timeout time.Duration
	log     *slog.Logger
	journal Journal

	mu     sync.Mutex
	buffer []model.ExecutionEvent
	client *http.Client // lazily created, immutable once set
	closed bool

	trigger chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewBatch creates a Batch transport and starts its background flusher.
func NewBatch(cfg BatchConfig) *Batch {
	if cfg.FlushBatchSize <= 0 {
		cfg.FlushBatchSize = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	t := &Batch{
		baseURL: trimBaseURL(cfg.APIURL),
		apiKey:  cfg.APIKey,
		size:    cfg.FlushBatchSize,
		timeout: cfg.Timeout,
		log:     cfg.Logger,
		journal: cfg.Journal,
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	t.wg.Add(1)
	go t.run()
	return t
}

// run consumes flush triggers until Close.
func (t *Batch) run() {
	defer t.wg.Done()
	for {
		select {
		case <-t.trigger:
			ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
			t.Flush(ctx)
			cancel()
		case <-t.done:
			return
		}
	}
}

// Enqueue appends the event to the buffer. When the buffer reaches the
// flush batch size a flush is handed to the background flusher; if one is
// already pending the hand-off is skipped and the next periodic or explicit
// flush picks the events up. Enqueue never blocks and never fails.
func (t *Batch) Enqueue(ev model.ExecutionEvent) {
	t.mu.Lock()
	t.buffer = append(t.buffer, ev)
	n := len(t.buffer)
	t.mu.Unlock()

	if n < t.size {
		return
	}
	select {
	case t.trigger <- struct{}{}:
	default:
		t.log.Debug("flush already pending; deferring", slog.Int("buffered", n))
	}
}

// Len reports the number of buffered events.
func (t *Batch) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buffer)
}

// Flush sends all buffered events as one batch POST to the ingestion
// endpoint. The buffer is swapped out under the lock and the network call
// happens outside it. On failure the batch is prepended back ahead of
// anything enqueued during the attempt, so no event is lost and temporal
// order is preserved. Delivery failures are absorbed, never returned.
func (t *Batch) Flush(ctx context.Context) {
	t.mu.Lock()
	if len(t.buffer) == 0 {
		t.mu.Unlock()
		return
	}
	batch := t.buffer
	t.buffer = nil
	client := t.httpClientLocked()
	t.mu.Unlock()

	url := t.baseURL + "/v1/ingest/batch"
	_, err := postJSON(ctx, client, url, t.apiKey, map[string]any{"events": batch})
	if err != nil {
		t.log.Warn("batch flush failed; returning events to buffer",
			slog.Int("events", len(batch)),
			slog.String("error", err.Error()))
		t.mu.Lock()
		t.buffer = append(batch, t.buffer...)
		t.mu.Unlock()
		return
	}

	t.log.Debug("flushed events", slog.Int("events", len(batch)), slog.String("url", url))
}

// httpClientLocked returns the shared client, creating it on first use.
// Callers must hold t.mu.
func (t *Batch) httpClientLocked() *http.Client {
	if t.client == nil {
		t.client = &http.Client{Timeout: t.timeout}
	}
	return t.client
}

// Close stops the background flusher, performs a final flush, and releases
// the HTTP client. Events still buffered after a failed final flush are
// handed to the journal when one is configured. Close is idempotent.
func (t *Batch) Close(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	close(t.done)
	t.wg.Wait()

	t.Flush(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.journal != nil && len(t.buffer) > 0 {
		spooled := 0
		for _, ev := range t.buffer {
			if err := t.journal.Append(ev); err != nil {
				t.log.Warn("failed to journal undelivered event",
					slog.String("execution_id", ev.ExecutionID),
					slog.String("error", err.Error()))
				continue
			}
			spooled++
		}
		t.log.Warn("spooled undelivered events for replay", slog.Int("events", spooled))
		t.buffer = nil
	}
	if t.client != nil {
		t.client.CloseIdleConnections()
		t.client = nil
	}
}
