// Package agentguard instruments agent function calls and ships structured
// execution telemetry to the AgentGuard backend. It wraps arbitrary agent
// functions, captures inputs, outputs, timing, and intermediate steps, and
// delivers events either asynchronously in batches to the ingestion API
// (fire-and-forget) or synchronously to the verification gateway, blocking
// for a verdict that can gate or correct the agent's output.
//
// Usage:
//
//	guard, err := agentguard.New("ag_live_key", agentguard.WithMode(agentguard.ModeSync))
//	defer guard.Close()
//
//	answer := guard.Watch("support-bot", func(ctx context.Context, input any) (any, error) {
//	    return llm.Answer(ctx, input.(string))
//	})
//	result, err := answer(ctx, "What is our refund policy?")
//
// In sync mode a "block" verdict is returned as a *BlockError; when the
// verification gateway is unreachable the original output passes through
// with ActionPass and Verified set to false, so a telemetry outage never
// breaks the instrumented agent.
package agentguard
