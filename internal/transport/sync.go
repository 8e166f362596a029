package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/agentguard/agentguard-go/internal/model"
)

// DirectConfig configures a Direct transport.
type DirectConfig struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Direct sends a single event to the verification gateway and blocks for a
// verdict. It keeps no queue and performs no retries: a failed request is
// returned to the caller, who owns the fallback decision.
type Direct struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	log     *slog.Logger
	client  *http.Client

	closeOnce sync.Once
}

// NewDirect creates a Direct transport with an eagerly initialized client.
func NewDirect(cfg DirectConfig) *Direct {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Direct{
		baseURL: trimBaseURL(cfg.APIURL),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		log:     cfg.Logger,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Verify POSTs one event to the verification endpoint and returns the
// decoded verdict verbatim. A non-2xx status is returned as a *StatusError;
// the error body is not interpreted beyond being carried in the error.
func (t *Direct) Verify(ctx context.Context, ev model.ExecutionEvent) (model.Verdict, error) {
	url := t.baseURL + "/v1/verify"
	data, err := postJSON(ctx, t.client, url, t.apiKey, ev)
	if err != nil {
		return model.Verdict{}, err
	}

	var v model.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return model.Verdict{}, fmt.Errorf("agentguard: decode verdict: %w", err)
	}

	t.log.Debug("verified event",
		slog.String("execution_id", v.ExecutionID),
		slog.String("action", v.Action),
		slog.Float64("confidence", v.Confidence))
	return v, nil
}

// Close releases the HTTP client. Idempotent.
func (t *Direct) Close() {
	t.closeOnce.Do(func() {
		t.client.CloseIdleConnections()
	})
}
