package watchtower

import (
	"context"
	"encoding/hex"

	"github.com/obycode/stackflow-sub001/internal/apierr"
	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/pipekey"
	"github.com/obycode/stackflow-sub001/internal/wtlog"
)

// SubmitSignatureStateRequest is the caller-supplied half of a signed
// off-chain state, before PipeKey canonicalization and verification.
type SubmitSignatureStateRequest struct {
	ContractID    string
	ForPrincipal  string
	WithPrincipal string
	Token         string

	Action         model.Action
	Amount         string
	MyBalance      string
	TheirBalance   string
	MySignature    string
	TheirSignature string
	Nonce          uint64
	Actor          string

	Secret         *string
	ValidAfter     *uint64
	BeneficialOnly bool

	// SkipVerification is set by the producer service (internal/producer)
	// when it has already authored and validated the state itself; the
	// HTTP surface never sets this.
	SkipVerification bool
}

// SubmitSignatureStateResult mirrors the POST /signature-states response
// body.
type SubmitSignatureStateResult struct {
	Stored   bool
	Replaced bool
	Reason   string
	State    model.SignatureState
}

// SubmitSignatureState runs the signature-state acceptance algorithm:
// syntactic validation, watch-set membership, PipeKey canonicalization
// (the verifier needs the pipe_id), signature verification, then an
// atomic nonce-gated upsert.
func (w *Watchtower) SubmitSignatureState(ctx context.Context, req SubmitSignatureStateRequest) (SubmitSignatureStateResult, error) {
	if err := validateSignatureStateRequest(req); err != nil {
		return SubmitSignatureStateResult{}, err
	}
	if req.Amount == "" {
		req.Amount = "0"
	}

	if !w.cfg.isWatchedPrincipal(req.ForPrincipal) {
		return SubmitSignatureStateResult{}, apierr.PrincipalNotWatched(req.ForPrincipal)
	}

	ss := model.SignatureState{
		ContractID:     req.ContractID,
		ForPrincipal:   req.ForPrincipal,
		WithPrincipal:  req.WithPrincipal,
		Token:          req.Token,
		Action:         req.Action,
		Amount:         req.Amount,
		MyBalance:      req.MyBalance,
		TheirBalance:   req.TheirBalance,
		MySignature:    req.MySignature,
		TheirSignature: req.TheirSignature,
		Nonce:          req.Nonce,
		Actor:          req.Actor,
		Secret:         req.Secret,
		ValidAfter:     req.ValidAfter,
		BeneficialOnly: req.BeneficialOnly,
	}

	key := pipekey.Canonicalize(req.Token, req.ForPrincipal, req.WithPrincipal)
	ss.PipeID = pipekey.ID(key)

	if !req.SkipVerification {
		result, err := w.verifier.Verify(ctx, ss)
		if err != nil {
			return SubmitSignatureStateResult{}, apierr.Internal(err)
		}
		if !result.Valid {
			reason := result.Reason
			if reason == "" {
				reason = "signature verification failed"
			}
			return SubmitSignatureStateResult{}, apierr.SignatureValidation(reason)
		}
	}

	stored, replaced, existing, err := w.store.UpsertSignatureStateIfHigherNonce(ss)
	if err != nil {
		return SubmitSignatureStateResult{}, apierr.Internal(err)
	}

	if !stored {
		wtlog.SGNLog.Debugf("pipeId=%s forPrincipal=%s nonce=%d result=rejected reason=nonce-too-low",
			ss.PipeID, ss.ForPrincipal, ss.Nonce)
		existingNonce := uint64(0)
		if existing != nil {
			existingNonce = existing.Nonce
		}
		return SubmitSignatureStateResult{}, apierr.NonceTooLow(itoa(existingNonce))
	}

	wtlog.SGNLog.Infof("pipeId=%s forPrincipal=%s nonce=%d replaced=%t result=stored",
		ss.PipeID, ss.ForPrincipal, ss.Nonce, replaced)

	return SubmitSignatureStateResult{
		Stored:   true,
		Replaced: replaced,
		State:    ss,
	}, nil
}

func validateSignatureStateRequest(req SubmitSignatureStateRequest) *apierr.Error {
	if req.ForPrincipal == "" || req.WithPrincipal == "" {
		return apierr.BadRequest("forPrincipal and withPrincipal are required")
	}
	if req.ForPrincipal == req.WithPrincipal {
		return apierr.BadRequest("forPrincipal and withPrincipal must differ")
	}
	if !req.Action.Valid() {
		return apierr.BadRequest("unrecognized action %d", req.Action)
	}
	if len(req.MySignature) != 130 {
		return apierr.BadRequest("mySignature must be 65 bytes (130 hex chars)")
	}
	if len(req.TheirSignature) != 130 {
		return apierr.BadRequest("theirSignature must be 65 bytes (130 hex chars)")
	}
	if _, err := hex.DecodeString(req.MySignature); err != nil {
		return apierr.BadRequest("mySignature is not valid hex: %v", err)
	}
	if _, err := hex.DecodeString(req.TheirSignature); err != nil {
		return apierr.BadRequest("theirSignature is not valid hex: %v", err)
	}
	if req.Secret != nil && len(*req.Secret) != 64 {
		return apierr.BadRequest("secret must be 32 bytes (64 hex chars)")
	}
	if req.MyBalance == "" || req.TheirBalance == "" {
		return apierr.BadRequest("myBalance and theirBalance are required")
	}
	return nil
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
