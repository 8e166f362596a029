// Package transport delivers telemetry to the AgentGuard backend over
// HTTP/JSON. Two independent implementations consume the same event type:
//
//   - Batch buffers events in memory and flushes them asynchronously to the
//     ingestion endpoint (POST /v1/ingest/batch). Fire-and-forget: delivery
//     failures are absorbed by returning the batch to the buffer.
//
//   - Direct sends one event to the verification gateway (POST /v1/verify)
//     and blocks for a verdict. Failures surface to the caller, who decides
//     the fallback (typically pass-through).
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AuthHeader carries the API key on every request to the backend.
const AuthHeader = "X-AgentGuard-Key"

// maxErrorBody caps how much of an error response is retained for messages.
const maxErrorBody = 4 << 10

// StatusError reports a non-2xx response from the backend. It is distinct
// from network errors so callers can tell a reachable-but-refusing backend
// from an unreachable one.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agentguard: backend returned status %d", e.Code)
	}
	return fmt.Sprintf("agentguard: backend returned status %d: %s", e.Code, e.Body)
}

// postJSON sends payload as a JSON POST with the auth header and returns the
// response body. Any non-2xx status is returned as a *StatusError.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("agentguard: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agentguard: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AuthHeader, apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agentguard: %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("agentguard: read response: %w", err)
	}
	return data, nil
}

func trimBaseURL(u string) string {
	return strings.TrimRight(u, "/")
}
