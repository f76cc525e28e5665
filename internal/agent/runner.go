package agent

import (
	"context"
	"fmt"
	"time"
)

// DefaultInvokeTimeout bounds a single model call (§7 Timing budgets).
const DefaultInvokeTimeout = 60 * time.Second

// Runner drives one role invocation at a time: compose its prompt, invoke
// the model with bounded retry, and return the raw text. The ordering and
// branching between roles (Gate 2 after Auditor, Gate 3 after Reviewer,
// conditional Tester) belongs to the orchestrator, which calls RunRole
// once per stage in the sequence mandated by §4.3.
type Runner struct {
	Model   Model
	Timeout time.Duration
}

// NewRunner creates a Runner with DefaultInvokeTimeout.
func NewRunner(model Model) *Runner {
	return &Runner{Model: model, Timeout: DefaultInvokeTimeout}
}

// RunRole composes role's prompt from in and invokes the model, retrying
// on transient failure up to MaxInvokeRetries times.
func (r *Runner) RunRole(ctx context.Context, role Role, in ComposeInput) (string, error) {
	system, user, err := Compose(role, in)
	if err != nil {
		return "", fmt.Errorf("compose %s prompt: %w", role, err)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultInvokeTimeout
	}

	out, err := InvokeWithRetry(ctx, r.Model, system, user, timeout)
	if err != nil {
		return "", fmt.Errorf("%w: role %s: %v", ErrStageFailed, role, err)
	}
	return out, nil
}
