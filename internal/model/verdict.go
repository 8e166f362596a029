package model

// Verdict is the verification gateway's response to a single event. The
// action set is open: the backend may introduce values beyond
// pass/block/correct and callers must tolerate unknown actions.
type Verdict struct {
	ExecutionID string         `json:"execution_id"`
	Confidence  float64        `json:"confidence"`
	Action      string         `json:"action"`
	Output      any            `json:"output"`
	Corrections any            `json:"corrections,omitempty"`
	Checks      map[string]any `json:"checks,omitempty"`
}
