// Package agent implements the Prompt Composer and Agent Runner (§4.3):
// the fixed role roster, the per-role prompt templates, and the
// sequential, bounded-retry driver that invokes the out-of-scope Model
// collaborator for each role in turn.
//
// The teacher's coding agent is an interactive tmux session polled for
// idle/active state; that shape does not fit a model collaborator
// specified only as a blocking call with a timeout (§4.3, §7). Runner
// below replaces the tmux polling loop with direct, synchronous
// Model.Invoke calls and the teacher's own bounded-retry idiom for
// transient failures.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Model is the language-model client consumed by the pipeline (§6),
// out of scope except as an interface. One blocking call per invocation;
// the caller supplies its own timeout.
type Model interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string, timeout time.Duration) (string, error)
}

// MaxInvokeRetries bounds the transient-failure retry loop within a single
// stage invocation (§4.3: "retries up to a small fixed bound, then records
// an error and fails the stage").
const MaxInvokeRetries = 2

// InvokeRetryBaseDelay is the starting backoff between retries; each
// subsequent retry doubles it. A var, not a const, so tests can shrink it
// instead of sleeping out the production backoff chain.
var InvokeRetryBaseDelay = 5 * time.Second

// InvokeWithRetry calls model.Invoke, retrying up to MaxInvokeRetries times
// on error (timeout or transport failure) with exponential backoff. It
// does not retry on a successful call that merely produced output the
// caller later judges invalid — that is the gate cascade's job, not this
// layer's.
func InvokeWithRetry(ctx context.Context, model Model, systemPrompt, userPrompt string, timeout time.Duration) (string, error) {
	var lastErr error
	delay := InvokeRetryBaseDelay

	for attempt := 0; attempt <= MaxInvokeRetries; attempt++ {
		out, err := model.Invoke(ctx, systemPrompt, userPrompt, timeout)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt < MaxInvokeRetries {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("invoke cancelled after attempt %d: %w", attempt+1, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return "", fmt.Errorf("invoke failed after %d attempts: %w", MaxInvokeRetries+1, lastErr)
}

// ErrStageFailed wraps the final error from an exhausted retry loop so
// callers can distinguish a stage failure from a malformed-output error.
var ErrStageFailed = errors.New("agent stage failed")
