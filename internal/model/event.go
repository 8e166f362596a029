// Package model defines the wire types exchanged with the AgentGuard
// backend: the ExecutionEvent telemetry record and the Verdict returned by
// the verification gateway. Field names match the backend JSON contract;
// events are never mutated after construction.
package model

import "time"

// ExecutionEvent is one observed agent execution. It is built once by the
// guard layer and handed to exactly one transport call; the transport only
// serializes and transmits it.
type ExecutionEvent struct {
	ExecutionID       string         `json:"execution_id"`
	SessionID         string         `json:"session_id,omitempty"`
	AgentID           string         `json:"agent_id"`
	Task              string         `json:"task,omitempty"`
	Input             any            `json:"input"`
	Output            any            `json:"output"`
	StartedAt         time.Time      `json:"started_at"`
	CompletedAt       time.Time      `json:"completed_at"`
	DurationMS        float64        `json:"duration_ms"`
	GroundTruth       any            `json:"ground_truth,omitempty"`
	Schema            any            `json:"schema,omitempty"`
	Steps             []Step         `json:"steps,omitempty"`
	TokenCount        *int           `json:"token_count,omitempty"`
	CostEstimate      *float64       `json:"cost_estimate,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	ParentExecutionID string         `json:"parent_execution_id,omitempty"`
	Sequence          int            `json:"sequence"`
}

// Step is one intermediate sub-operation inside an execution, e.g. a single
// LLM call or tool invocation.
type Step struct {
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	Input      any     `json:"input,omitempty"`
	Output     any     `json:"output,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}
