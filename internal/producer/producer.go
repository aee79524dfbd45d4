// Package producer is the Signer Service: it signs proposed balance
// updates on behalf of the operator principal, runs the operator-local
// safety checks (nonce monotonicity, non-decreasing claim, balance
// conservation), and hands the result to the watchtower core's
// signature-state upsert path with verification skipped, since the
// operator trusts the signature it just produced itself.
package producer

import (
	"context"
	"encoding/hex"

	"github.com/obycode/stackflow-sub001/internal/apierr"
	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/pipekey"
	"github.com/obycode/stackflow-sub001/internal/signerbackend"
	"github.com/obycode/stackflow-sub001/internal/sip018"
	"github.com/obycode/stackflow-sub001/internal/watchtower"
)

// Config identifies the operator and the signing-message domain.
type Config struct {
	OperatorPrincipal string
	Domain            sip018.Domain
}

// Producer signs and upserts SignatureStates on the operator's behalf.
type Producer struct {
	wt     *watchtower.Watchtower
	signer signerbackend.Backend
	cfg    Config
}

func New(wt *watchtower.Watchtower, signer signerbackend.Backend, cfg Config) *Producer {
	return &Producer{wt: wt, signer: signer, cfg: cfg}
}

// TransferRequest is the body of POST /producer/transfer.
type TransferRequest struct {
	ContractID            string
	Token                 string
	CounterpartyPrincipal string
	Nonce                 uint64
	MyBalance             string
	TheirBalance          string
	TheirSignature        string
	Actor                 string
	Secret                *string
	ValidAfter            *uint64
	BeneficialOnly        bool
}

// SignTransfer signs a transfer: action is always transfer, amount is
// always "0".
func (p *Producer) SignTransfer(ctx context.Context, req TransferRequest) (watchtower.SubmitSignatureStateResult, error) {
	return p.signAndStore(ctx, signRequest{
		ContractID:            req.ContractID,
		Token:                 req.Token,
		CounterpartyPrincipal: req.CounterpartyPrincipal,
		Action:                model.ActionTransfer,
		Amount:                "0",
		Nonce:                 req.Nonce,
		MyBalance:             req.MyBalance,
		TheirBalance:          req.TheirBalance,
		TheirSignature:        req.TheirSignature,
		Actor:                 req.Actor,
		Secret:                req.Secret,
		ValidAfter:            req.ValidAfter,
		BeneficialOnly:        req.BeneficialOnly,
	})
}

// SignatureRequestRequest is the body of POST /producer/signature-request.
type SignatureRequestRequest struct {
	ContractID            string
	Token                 string
	CounterpartyPrincipal string
	Action                model.Action
	Amount                string
	Nonce                 uint64
	MyBalance             string
	TheirBalance          string
	TheirSignature        string
	Actor                 string
	Secret                *string
	ValidAfter            *uint64
	BeneficialOnly        bool
}

// SignSignatureRequest signs a close/deposit/withdraw request; transfer
// is rejected (use SignTransfer instead).
func (p *Producer) SignSignatureRequest(ctx context.Context, req SignatureRequestRequest) (watchtower.SubmitSignatureStateResult, error) {
	if req.Action == model.ActionTransfer {
		return watchtower.SubmitSignatureStateResult{}, apierr.BadRequest("use /producer/transfer for action=transfer")
	}
	if (req.Action == model.ActionDeposit || req.Action == model.ActionWithdraw) && req.Amount == "" {
		return watchtower.SubmitSignatureStateResult{}, apierr.BadRequest("amount is required for action=%d", req.Action)
	}

	return p.signAndStore(ctx, signRequest{
		ContractID:            req.ContractID,
		Token:                 req.Token,
		CounterpartyPrincipal: req.CounterpartyPrincipal,
		Action:                req.Action,
		Amount:                req.Amount,
		Nonce:                 req.Nonce,
		MyBalance:             req.MyBalance,
		TheirBalance:          req.TheirBalance,
		TheirSignature:        req.TheirSignature,
		Actor:                 req.Actor,
		Secret:                req.Secret,
		ValidAfter:            req.ValidAfter,
		BeneficialOnly:        req.BeneficialOnly,
	})
}

// signRequest is the union of fields both endpoints share once their
// endpoint-specific validation has run.
type signRequest struct {
	ContractID            string
	Token                 string
	CounterpartyPrincipal string
	Action                model.Action
	Amount                string
	Nonce                 uint64
	MyBalance             string
	TheirBalance          string
	TheirSignature        string
	Actor                 string
	Secret                *string
	ValidAfter            *uint64
	BeneficialOnly        bool
}

func (p *Producer) signAndStore(ctx context.Context, req signRequest) (watchtower.SubmitSignatureStateResult, error) {
	if req.CounterpartyPrincipal == "" || req.CounterpartyPrincipal == p.cfg.OperatorPrincipal {
		return watchtower.SubmitSignatureStateResult{}, apierr.BadRequest("counterpartyPrincipal must be set and differ from the operator")
	}

	key := pipekey.Canonicalize(req.Token, p.cfg.OperatorPrincipal, req.CounterpartyPrincipal)
	pipeID := pipekey.ID(key)

	baseline, err := p.wt.ObservedPipe(req.ContractID, pipeID)
	if err != nil {
		return watchtower.SubmitSignatureStateResult{}, apierr.Internal(err)
	}
	if baseline == nil {
		return watchtower.SubmitSignatureStateResult{}, apierr.UnknownPipeState()
	}
	if req.Nonce <= baseline.Nonce {
		return watchtower.SubmitSignatureStateResult{}, apierr.NonceTooLow(itoa(baseline.Nonce))
	}

	operatorLow, ok := pipekey.Side(key, p.cfg.OperatorPrincipal)
	if !ok {
		return watchtower.SubmitSignatureStateResult{}, apierr.Internal(errNotInPipe)
	}

	operatorBaseline := baseline.BalanceHigh
	if operatorLow {
		operatorBaseline = baseline.BalanceLow
	}

	decreasing, ok := decimalLess(req.MyBalance, operatorBaseline)
	if !ok {
		return watchtower.SubmitSignatureStateResult{}, apierr.BadRequest("myBalance/theirBalance must be base-10 integers")
	}
	if decreasing {
		selfWithdraw := req.Action == model.ActionWithdraw && req.Actor == p.cfg.OperatorPrincipal
		if !selfWithdraw {
			return watchtower.SubmitSignatureStateResult{}, apierr.ProducerBalanceDecrease()
		}
	}

	if ok := decimalSumEquals(req.MyBalance, req.TheirBalance, baseline.BalanceLow, baseline.BalanceHigh); !ok {
		return watchtower.SubmitSignatureStateResult{}, apierr.BadRequest("myBalance + theirBalance must equal the pipe's total balance")
	}

	balanceLow, balanceHigh := req.TheirBalance, req.MyBalance
	if operatorLow {
		balanceLow, balanceHigh = req.MyBalance, req.TheirBalance
	}

	hashedSecret := ""
	if req.Secret != nil {
		hashedSecret = *req.Secret
	}

	msg := sip018.Message{
		Token:         req.Token,
		PrincipalLow:  key.PrincipalLow,
		PrincipalHigh: key.PrincipalHigh,
		BalanceLow:    balanceLow,
		BalanceHigh:   balanceHigh,
		Nonce:         req.Nonce,
		Action:        req.Action,
		Actor:         req.Actor,
		HashedSecret:  hashedSecret,
		ValidAfter:    req.ValidAfter,
	}
	digest := sip018.Digest(p.cfg.Domain, msg)

	if err := p.signer.EnsureReady(); err != nil {
		return watchtower.SubmitSignatureStateResult{}, wrapSignerErr(err)
	}
	sig, err := p.signer.Sign(digest)
	if err != nil {
		return watchtower.SubmitSignatureStateResult{}, wrapSignerErr(err)
	}
	mySignature := hex.EncodeToString(sig[:])

	return p.wt.SubmitSignatureState(ctx, watchtower.SubmitSignatureStateRequest{
		ContractID:       req.ContractID,
		ForPrincipal:     p.cfg.OperatorPrincipal,
		WithPrincipal:    req.CounterpartyPrincipal,
		Token:            req.Token,
		Action:           req.Action,
		Amount:           req.Amount,
		MyBalance:        req.MyBalance,
		TheirBalance:     req.TheirBalance,
		MySignature:      mySignature,
		TheirSignature:   req.TheirSignature,
		Nonce:            req.Nonce,
		Actor:            req.Actor,
		Secret:           req.Secret,
		ValidAfter:       req.ValidAfter,
		BeneficialOnly:   req.BeneficialOnly,
		SkipVerification: true,
	})
}

func wrapSignerErr(err error) error {
	if apiErr, ok := apierr.As(err); ok {
		return apiErr
	}
	return apierr.Internal(err)
}
