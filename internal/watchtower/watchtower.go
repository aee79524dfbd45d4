// Package watchtower is the core state machine: it drives
// ObservedPipe/Closure mutation from ingested chain events, stores and
// validates signed off-chain states, settles matured pending deposits
// on burn-block ticks, and runs the dispute evaluator that submits a
// held higher-nonce state when a watched pipe is force-closed.
//
// A core type is wired to a store, an executor and a verifier, with
// one entry point per external trigger (IngestBlock, IngestBurnBlock,
// SubmitSignatureState; IngestBlock dispatches each event through
// handleEvent) and a small
// persisted-attempt bookkeeping layer guaranteeing at-most-once remedy
// submission.
package watchtower

import (
	"context"

	"github.com/obycode/stackflow-sub001/internal/apierr"
	"github.com/obycode/stackflow-sub001/internal/chainevent"
	"github.com/obycode/stackflow-sub001/internal/executor"
	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/store"
	"github.com/obycode/stackflow-sub001/internal/verifier"
	"github.com/obycode/stackflow-sub001/internal/wtlog"
)

// Config holds the watch scoping and dispute policy resolved from
// startup configuration.
type Config struct {
	// WatchedContracts restricts chain-event ingest to these contract
	// ids. Empty means watch all.
	WatchedContracts map[string]bool

	// WatchedPrincipals restricts both chain-event ingest and
	// signature-state upserts to pipes involving one of these
	// principals. Empty means watch all.
	WatchedPrincipals map[string]bool

	// DisputeOnlyBeneficial is the service-wide beneficial-only policy;
	// a SignatureState may also opt in individually via its own
	// BeneficialOnly flag regardless of this setting.
	DisputeOnlyBeneficial bool
}

func (c Config) isWatchedPipe(key model.PipeKey) bool {
	if len(c.WatchedPrincipals) == 0 {
		return true
	}
	return c.WatchedPrincipals[key.PrincipalLow] || c.WatchedPrincipals[key.PrincipalHigh]
}

func (c Config) isWatchedPrincipal(principal string) bool {
	if len(c.WatchedPrincipals) == 0 {
		return true
	}
	return c.WatchedPrincipals[principal]
}

// Watchtower is the core runtime.
type Watchtower struct {
	store    *store.Store
	verifier verifier.Verifier
	executor executor.Executor
	cfg      Config
}

func New(st *store.Store, vfy verifier.Verifier, exec executor.Executor, cfg Config) *Watchtower {
	return &Watchtower{store: st, verifier: vfy, executor: exec, cfg: cfg}
}

// ObservedPipe exposes the store's baseline lookup to the Signer Service
// (internal/producer), which needs it for its own monotonicity and
// balance-conservation checks before ever touching a SignatureState.
func (w *Watchtower) ObservedPipe(contractID, pipeID string) (*model.ObservedPipe, error) {
	return w.store.GetObservedPipe(contractID, pipeID)
}

// Snapshot, ListObservedPipes, ListClosures, ListSignatureStates and
// ListDisputeAttempts are read-only passthroughs to the store for the
// HTTP surface (internal/httpapi), which never touches the store
// directly so that every mutation path stays funneled through the core.

func (w *Watchtower) Snapshot() (model.Snapshot, error) {
	return w.store.GetSnapshot()
}

func (w *Watchtower) ListObservedPipes() ([]model.ObservedPipe, error) {
	return w.store.ListObservedPipes()
}

func (w *Watchtower) ListClosures() ([]model.Closure, error) {
	return w.store.ListClosures()
}

func (w *Watchtower) ListSignatureStates(limit int) ([]model.SignatureState, error) {
	return w.store.ListSignatureStates(limit)
}

func (w *Watchtower) ListDisputeAttempts(limit int) ([]model.DisputeAttempt, error) {
	return w.store.ListDisputeAttempts(limit)
}

// IngestBlockResult is the outcome of processing one /new_block payload.
type IngestBlockResult struct {
	ObservedEvents int
}

// IngestBlock decodes and processes every event in a /new_block-style
// payload, in array order.
func (w *Watchtower) IngestBlock(ctx context.Context, payload []byte) (IngestBlockResult, error) {
	events, err := chainevent.Parse(payload, w.cfg.WatchedContracts)
	if err != nil {
		return IngestBlockResult{}, apierr.BadRequest("invalid block payload: %v", err)
	}

	var observed int
	for _, e := range events {
		if !w.cfg.isWatchedPipe(e.PipeKey) {
			wtlog.WTLog.Debugf("pipe=%s event=%s result=unwatched", e.PipeID, e.EventName)
			continue
		}

		if err := w.handleEvent(ctx, e); err != nil {
			return IngestBlockResult{}, err
		}
		observed++
	}

	return IngestBlockResult{ObservedEvents: observed}, nil
}

func (w *Watchtower) handleEvent(ctx context.Context, e chainevent.DecodedEvent) error {
	if err := w.recordEvent(e); err != nil {
		return apierr.Internal(err)
	}

	switch e.Class {
	case chainevent.ClassUpdate:
		if e.Pipe != nil {
			if err := w.upsertObservedPipe(e); err != nil {
				return apierr.Internal(err)
			}
		}
		wtlog.WTLog.Infof("pipeId=%s contractId=%s event=%s nonce=%d result=updated",
			e.PipeID, e.ContractID, e.EventName, pipeNonce(e))

	case chainevent.ClassOpenClosure:
		if e.Pipe != nil {
			if err := w.upsertObservedPipe(e); err != nil {
				return apierr.Internal(err)
			}
		}
		if err := w.openClosure(ctx, e); err != nil {
			return err
		}
		wtlog.WTLog.Infof("pipeId=%s contractId=%s event=%s nonce=%d result=closure-opened",
			e.PipeID, e.ContractID, e.EventName, pipeNonce(e))

	case chainevent.ClassTerminal:
		if err := w.closeOutTerminal(e); err != nil {
			return apierr.Internal(err)
		}
		wtlog.WTLog.Infof("pipeId=%s contractId=%s event=%s result=terminal", e.PipeID, e.ContractID, e.EventName)
	}

	return nil
}

func pipeNonce(e chainevent.DecodedEvent) uint64 {
	if e.Pipe == nil {
		return 0
	}
	return e.Pipe.Nonce
}

func (w *Watchtower) recordEvent(e chainevent.DecodedEvent) error {
	return w.store.RecordEvent(model.RecordedEvent{
		ContractID:  e.ContractID,
		Txid:        e.Txid,
		BlockHeight: e.BlockHeight,
		EventName:   e.EventName,
		Payload:     string(e.Raw),
	})
}

func (w *Watchtower) upsertObservedPipe(e chainevent.DecodedEvent) error {
	rec := model.ObservedPipe{
		ContractID:  e.ContractID,
		PipeID:      e.PipeID,
		PipeKey:     e.PipeKey,
		BalanceLow:  e.Pipe.BalanceLow,
		BalanceHigh: e.Pipe.BalanceHigh,
		PendingLow:  e.Pipe.PendingLow,
		PendingHigh: e.Pipe.PendingHigh,
		ExpiresAt:   e.Pipe.ExpiresAt,
		Nonce:       e.Pipe.Nonce,
		Closer:      e.Pipe.Closer,
		Event:       e.EventName,
		Txid:        e.Txid,
		BlockHeight: e.BlockHeight,
	}
	return w.store.SetObservedPipe(rec)
}

func (w *Watchtower) openClosure(ctx context.Context, e chainevent.DecodedEvent) error {
	closer := e.Sender
	var nonce *uint64
	var expiresAt *uint64
	if e.Pipe != nil {
		if e.Pipe.Closer != "" {
			closer = e.Pipe.Closer
		}
		n := e.Pipe.Nonce
		nonce = &n
		expiresAt = e.Pipe.ExpiresAt
	}

	closure := model.Closure{
		PipeID:      e.PipeID,
		PipeKey:     e.PipeKey,
		Closer:      closer,
		ExpiresAt:   expiresAt,
		Nonce:       nonce,
		Event:       e.EventName,
		Txid:        e.Txid,
		BlockHeight: e.BlockHeight,
	}
	if err := w.store.SetClosure(closure); err != nil {
		return apierr.Internal(err)
	}

	return w.evaluateDispute(ctx, e, closure)
}

func (w *Watchtower) closeOutTerminal(e chainevent.DecodedEvent) error {
	if err := w.store.DeleteClosure(e.PipeID); err != nil {
		return err
	}

	existing, err := w.store.GetObservedPipe(e.ContractID, e.PipeID)
	if err != nil {
		return err
	}

	nonce := uint64(0)
	var expiresAt *uint64
	if existing != nil {
		nonce = existing.Nonce
		expiresAt = existing.ExpiresAt
	}
	if e.Pipe != nil {
		nonce = e.Pipe.Nonce
		expiresAt = e.Pipe.ExpiresAt
	}

	rec := model.ObservedPipe{
		ContractID:  e.ContractID,
		PipeID:      e.PipeID,
		PipeKey:     e.PipeKey,
		BalanceLow:  "0",
		BalanceHigh: "0",
		PendingLow:  nil,
		PendingHigh: nil,
		ExpiresAt:   expiresAt,
		Nonce:       nonce,
		Closer:      "",
		Event:       e.EventName,
		Txid:        e.Txid,
		BlockHeight: e.BlockHeight,
	}
	return w.store.SetObservedPipe(rec)
}

