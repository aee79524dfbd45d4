package watchtower

import (
	"context"
	"math/big"
	"sort"

	"github.com/obycode/stackflow-sub001/internal/apierr"
	"github.com/obycode/stackflow-sub001/internal/chainevent"
	"github.com/obycode/stackflow-sub001/internal/executor"
	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/wtlog"
)

// evaluateDispute is the dispute evaluator: given a freshly opened
// Closure, decide whether a held SignatureState supersedes it and, if
// so, submit it exactly once. It looks up the held remedy candidate,
// checks it has not already been successfully exacted, and hands it to
// the executor.
func (w *Watchtower) evaluateDispute(ctx context.Context, e chainevent.DecodedEvent, closure model.Closure) error {
	if closure.Nonce == nil {
		wtlog.WTLog.Warnf("pipeId=%s result=dispute-skipped reason=missing-closure-nonce", closure.PipeID)
		return nil
	}

	candidates, err := w.store.GetSignatureStatesForPipe(e.ContractID, e.PipeID)
	if err != nil {
		return apierr.Internal(err)
	}

	eligible := make([]model.SignatureState, 0, len(candidates))
	for _, ss := range candidates {
		if ss.ForPrincipal == closure.Closer {
			continue
		}
		eligible = append(eligible, ss)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Nonce != eligible[j].Nonce {
			return eligible[i].Nonce > eligible[j].Nonce
		}
		return eligible[i].UpdatedAt > eligible[j].UpdatedAt
	})

	var chosen *model.SignatureState
	for i := range eligible {
		ss := eligible[i]

		if ss.Nonce <= *closure.Nonce {
			continue
		}
		if ss.ValidAfter != nil && e.BlockHeight < *ss.ValidAfter {
			continue
		}
		if w.requiresBeneficial(ss) && !isBeneficial(ss, e) {
			continue
		}

		chosen = &ss
		break
	}

	if chosen == nil {
		wtlog.WTLog.Debugf("pipeId=%s result=dispute-skipped reason=no-eligible-candidate", closure.PipeID)
		return nil
	}

	triggerTxid := e.Txid
	if triggerTxid == "" {
		triggerTxid = e.ContractID + "|" + e.PipeID + "|" + itoa(*closure.Nonce)
	}
	attemptID := triggerTxid + "|" + chosen.ForPrincipal

	existing, err := w.store.GetDisputeAttempt(attemptID)
	if err != nil {
		return apierr.Internal(err)
	}
	if existing != nil && existing.Success {
		wtlog.WTLog.Debugf("pipeId=%s attemptId=%s result=dispute-skipped reason=already-submitted",
			closure.PipeID, attemptID)
		return nil
	}

	sub := executor.Submission{
		SignatureState: *chosen,
		Closure:        closure,
		TriggerTxid:    triggerTxid,
		TriggerHeight:  e.BlockHeight,
	}

	attempt := model.DisputeAttempt{
		AttemptID:    attemptID,
		ContractID:   e.ContractID,
		PipeID:       e.PipeID,
		ForPrincipal: chosen.ForPrincipal,
		TriggerTxid:  triggerTxid,
	}

	txid, submitErr := w.executor.Submit(ctx, sub)
	if submitErr != nil {
		msg := submitErr.Error()
		attempt.Success = false
		attempt.Error = &msg
		if err := w.store.SetDisputeAttempt(attempt); err != nil {
			return apierr.Internal(err)
		}
		wtlog.WTLog.Errorf("pipeId=%s attemptId=%s result=dispute-failed error=%s",
			closure.PipeID, attemptID, msg)
		return nil
	}

	attempt.Success = true
	attempt.DisputeTxid = &txid
	if err := w.store.SetDisputeAttempt(attempt); err != nil {
		return apierr.Internal(err)
	}
	wtlog.WTLog.Infof("pipeId=%s attemptId=%s disputeTxid=%s result=dispute-submitted",
		closure.PipeID, attemptID, txid)
	return nil
}

func (w *Watchtower) requiresBeneficial(ss model.SignatureState) bool {
	return w.cfg.DisputeOnlyBeneficial || ss.BeneficialOnly
}

// isBeneficial reports whether ss.MyBalance strictly exceeds the balance
// the triggering closure event recorded for ss.ForPrincipal's canonical
// side. Quantities are decimal strings lifted into math/big only for
// this comparison. If the event carries no pipe record, or
// ss.ForPrincipal occupies neither side of it, the candidate is
// rejected rather than guessed at.
func isBeneficial(ss model.SignatureState, e chainevent.DecodedEvent) bool {
	if e.Pipe == nil {
		return false
	}

	var existingStr string
	switch ss.ForPrincipal {
	case e.PipeKey.PrincipalLow:
		existingStr = e.Pipe.BalanceLow
	case e.PipeKey.PrincipalHigh:
		existingStr = e.Pipe.BalanceHigh
	default:
		return false
	}

	candidate, ok := new(big.Int).SetString(ss.MyBalance, 10)
	if !ok {
		return false
	}
	existing, ok := new(big.Int).SetString(existingStr, 10)
	if !ok {
		return false
	}

	return candidate.Cmp(existing) > 0
}
