package watchtower

import (
	"math/big"

	"github.com/obycode/stackflow-sub001/internal/apierr"
	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/wtlog"
)

// IngestBurnBlockResult mirrors the POST /new_burn_block response body.
type IngestBurnBlockResult struct {
	ProcessedPipes int
	SettledPipes   int
}

// IngestBurnBlock settles every pending deposit whose unlock height has
// matured by height: each matured pending amount is folded into its
// side's balance and the pending is cleared, leaving pipes without a
// matured pending untouched.
func (w *Watchtower) IngestBurnBlock(height uint64) (IngestBurnBlockResult, error) {
	pipes, err := w.store.ListObservedPipes()
	if err != nil {
		return IngestBurnBlockResult{}, apierr.Internal(err)
	}

	result := IngestBurnBlockResult{ProcessedPipes: len(pipes)}
	for _, p := range pipes {
		settled, updated := settlePending(p, height)
		if !settled {
			continue
		}

		if err := w.store.SetObservedPipe(updated); err != nil {
			return result, apierr.Internal(err)
		}
		result.SettledPipes++
		wtlog.WTLog.Infof("pipeId=%s burnHeight=%d result=pending-settled", p.PipeID, height)
	}

	return result, nil
}

// settlePending returns (true, updated) if p had at least one matured
// pending side at height, folding the matured amount into its balance
// and clearing the pending. p itself is left unmodified.
func settlePending(p model.ObservedPipe, height uint64) (bool, model.ObservedPipe) {
	settled := false

	if p.PendingLow != nil && p.PendingLow.UnlockBurnHeight <= height {
		p.BalanceLow = addDecimal(p.BalanceLow, p.PendingLow.Amount)
		p.PendingLow = nil
		settled = true
	}
	if p.PendingHigh != nil && p.PendingHigh.UnlockBurnHeight <= height {
		p.BalanceHigh = addDecimal(p.BalanceHigh, p.PendingHigh.Amount)
		p.PendingHigh = nil
		settled = true
	}

	return settled, p
}

func addDecimal(a, b string) string {
	x, okA := new(big.Int).SetString(a, 10)
	y, okB := new(big.Int).SetString(b, 10)
	if !okA || !okB {
		return a
	}
	return x.Add(x, y).String()
}
