package agentguard

import (
	"fmt"

	"github.com/agentguard/agentguard-go/internal/model"
)

// Action is the verdict's instruction for the agent's output. The set is
// open: the backend may return values beyond the constants below, and
// callers should treat unknown actions as advisory.
type Action string

const (
	ActionPass    Action = "pass"
	ActionBlock   Action = "block"
	ActionCorrect Action = "correct"
)

// Result is the outcome of one guarded execution.
type Result struct {
	ExecutionID string
	Output      any // possibly corrected in sync mode
	Action      Action
	Confidence  float64
	Corrections any
	Checks      map[string]any
	Verified    bool // false when telemetry was fire-and-forget or verification was unavailable
}

// BlockError is returned when the verification gateway blocks an output.
type BlockError struct {
	AgentID     string
	ExecutionID string
	Confidence  float64
	Corrections any
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("agentguard: output blocked for agent %q (execution %s, confidence %.2f)", e.AgentID, e.ExecutionID, e.Confidence)
}

// resultFromVerdict maps a gateway verdict onto a Result. The verdict is
// taken verbatim; only a missing execution ID falls back to the event's.
func resultFromVerdict(ev model.ExecutionEvent, v model.Verdict) Result {
	executionID := v.ExecutionID
	if executionID == "" {
		executionID = ev.ExecutionID
	}
	return Result{
		ExecutionID: executionID,
		Output:      v.Output,
		Action:      Action(v.Action),
		Confidence:  v.Confidence,
		Corrections: v.Corrections,
		Checks:      v.Checks,
		Verified:    true,
	}
}

// passThrough builds the fallback Result used when no verdict is available:
// the original output with an implicit pass.
func passThrough(ev model.ExecutionEvent, rawOutput any) Result {
	return Result{
		ExecutionID: ev.ExecutionID,
		Output:      rawOutput,
		Action:      ActionPass,
	}
}
