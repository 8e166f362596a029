package agentguard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentguard/agentguard-go/internal/model"
)

// TraceContext accumulates one execution's telemetry: intermediate steps,
// token counts, ground truth, metadata, and finally the recorded output.
// Call Record with the output and End to dispatch the event. A TraceContext
// is for one execution only and must not be reused after End.
type TraceContext struct {
	g *Guard

	mu           sync.Mutex
	agentID      string
	executionID  string
	sessionID    string
	sequence     int
	task         string
	input        any
	groundTruth  any
	schema       any
	metadata     map[string]any
	steps        []model.Step
	tokenCount   *int
	costEstimate *float64
	parentID     string
	started      time.Time
	output       any
	ended        bool
	result       Result
	resultErr    error
}

// Trace starts a manual trace for one execution. The timer starts now.
func (g *Guard) Trace(agentID string, opts ...TraceOption) *TraceContext {
	tcfg := traceConfig{}
	for _, o := range opts {
		o(&tcfg)
	}

	md := tcfg.metadata
	if md == nil {
		md = make(map[string]any)
	}

	return &TraceContext{
		g:           g,
		agentID:     agentID,
		executionID: uuid.NewString(),
		task:        tcfg.task,
		input:       tcfg.input,
		groundTruth: tcfg.groundTruth,
		schema:      tcfg.schema,
		metadata:    md,
		parentID:    tcfg.parentExecutionID,
		started:     time.Now().UTC(),
	}
}

// ExecutionID returns the client-generated ID for this execution.
func (tc *TraceContext) ExecutionID() string {
	return tc.executionID
}

// Step records one intermediate sub-operation, e.g. an LLM call or a tool
// invocation.
func (tc *TraceContext) Step(stepType, name string, input, output any, duration time.Duration) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.steps = append(tc.steps, model.Step{
		Type:       stepType,
		Name:       name,
		Input:      input,
		Output:     output,
		DurationMS: float64(duration) / float64(time.Millisecond),
	})
}

// SetGroundTruth attaches reference data for verification.
func (tc *TraceContext) SetGroundTruth(gt any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.groundTruth = gt
}

// SetSchema attaches an output schema descriptor.
func (tc *TraceContext) SetSchema(schema any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.schema = schema
}

// SetTokenCount records the tokens consumed by this execution.
func (tc *TraceContext) SetTokenCount(n int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.tokenCount = &n
}

// SetCostEstimate records the estimated cost in dollars.
func (tc *TraceContext) SetCostEstimate(cost float64) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.costEstimate = &cost
}

// SetMetadata adds one key/value pair to the event metadata, overriding any
// session-level value for the same key.
func (tc *TraceContext) SetMetadata(key string, value any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.metadata[key] = value
}

// Record captures the agent's output. The last Record before End wins.
func (tc *TraceContext) Record(output any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.output = output
}

// End finalizes the event and dispatches it. Subsequent calls return the
// first outcome without re-dispatching.
func (tc *TraceContext) End(ctx context.Context) (Result, error) {
	tc.mu.Lock()
	if tc.ended {
		res, err := tc.result, tc.resultErr
		tc.mu.Unlock()
		return res, err
	}
	tc.ended = true
	ev := tc.eventLocked()
	output := tc.output
	tc.mu.Unlock()

	res, err := tc.g.dispatch(ctx, ev, output)

	tc.mu.Lock()
	tc.result, tc.resultErr = res, err
	tc.mu.Unlock()
	return res, err
}

// Result returns the outcome stored by End. Zero before End.
func (tc *TraceContext) Result() Result {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.result
}

// eventLocked builds the immutable wire event. Callers must hold tc.mu.
func (tc *TraceContext) eventLocked() model.ExecutionEvent {
	completed := time.Now().UTC()
	var md map[string]any
	if len(tc.metadata) > 0 {
		md = make(map[string]any, len(tc.metadata))
		for k, v := range tc.metadata {
			md[k] = v
		}
	}
	return model.ExecutionEvent{
		ExecutionID:       tc.executionID,
		SessionID:         tc.sessionID,
		AgentID:           tc.agentID,
		Task:              tc.task,
		Input:             tc.input,
		Output:            tc.output,
		StartedAt:         tc.started,
		CompletedAt:       completed,
		DurationMS:        float64(completed.Sub(tc.started)) / float64(time.Millisecond),
		GroundTruth:       tc.groundTruth,
		Schema:            tc.schema,
		Steps:             tc.steps,
		TokenCount:        tc.tokenCount,
		CostEstimate:      tc.costEstimate,
		Metadata:          md,
		ParentExecutionID: tc.parentID,
		Sequence:          tc.sequence,
	}
}

// setInput is used by Watch to record the call's input payload.
func (tc *TraceContext) setInput(input any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.input = input
}
