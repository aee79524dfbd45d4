// Package verifier implements the three signature verifier modes, all
// conforming to the single capability verify(state) -> {valid, reason}.
package verifier

import (
	"context"

	"github.com/obycode/stackflow-sub001/internal/model"
)

// Result is the outcome of verifying a SignatureState's signatures.
type Result struct {
	Valid  bool
	Reason string
}

// Verifier is implemented by readonly, AcceptAll, and RejectAll.
type Verifier interface {
	Verify(ctx context.Context, ss model.SignatureState) (Result, error)
}

// AcceptAll always reports valid, for tests and pre-prod environments.
type AcceptAll struct{}

func (AcceptAll) Verify(context.Context, model.SignatureState) (Result, error) {
	return Result{Valid: true}, nil
}

// RejectAll always reports invalid with a configurable reason, for
// operational freezes.
type RejectAll struct {
	Reason string
}

func (r RejectAll) Verify(context.Context, model.SignatureState) (Result, error) {
	reason := r.Reason
	if reason == "" {
		reason = "signature verification is frozen"
	}
	return Result{Valid: false, Reason: reason}, nil
}
