// Package executor implements the Dispute Executor: submitting a held
// higher-nonce SignatureState on-chain to override an in-progress
// closure. A watcher observes a unilateral closure, holds a persisted
// remedy candidate, and submits a remedying transaction exactly once;
// the executor is never asked to be idempotent, the at-most-once
// guarantee lives entirely in the watchtower's DisputeAttempt
// bookkeeping.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/obycode/stackflow-sub001/internal/model"
)

// Submission bundles everything the executor needs to build and
// broadcast a dispute transaction.
type Submission struct {
	SignatureState model.SignatureState
	Closure        model.Closure
	TriggerTxid    string
	TriggerHeight  uint64
}

// Executor submits a dispute transaction. Implementations must treat
// Submit as fire-once: the executor is never asked to be idempotent, so
// a caller must never retry a failed Submit automatically.
type Executor interface {
	Submit(ctx context.Context, sub Submission) (txid string, err error)
}

// Noop never submits; every call fails. Used when dispute submission is
// intentionally disabled (e.g. a pure monitoring deployment).
type Noop struct{}

func (Noop) Submit(context.Context, Submission) (string, error) {
	return "", fmt.Errorf("dispute executor is disabled (noop mode)")
}

// Mock fabricates a deterministic-looking txid prefixed "0xmock"
// without touching any chain, for integration tests and scripted
// end-to-end scenarios.
type Mock struct {
	seq int
}

func (m *Mock) Submit(_ context.Context, sub Submission) (string, error) {
	m.seq++
	return fmt.Sprintf("0xmock%s%d", sub.SignatureState.PipeID[:8], m.seq), nil
}

// Auto is the real on-chain submission path: it broadcasts a
// dispute-closure transaction calling the pipe contract, bounded by a
// timeout, and is NEVER retried by the core on failure.
type Auto struct {
	Broadcast func(ctx context.Context, sub Submission) (string, error)
	Timeout   time.Duration
}

func NewAuto(broadcast func(ctx context.Context, sub Submission) (string, error), timeout time.Duration) *Auto {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Auto{Broadcast: broadcast, Timeout: timeout}
}

func (a *Auto) Submit(ctx context.Context, sub Submission) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	return a.Broadcast(ctx, sub)
}
