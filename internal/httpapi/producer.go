package httpapi

import (
	"net/http"

	"github.com/obycode/stackflow-sub001/internal/apierr"
	"github.com/obycode/stackflow-sub001/internal/producer"
)

type transferRequest struct {
	ContractID            string  `json:"contractId"`
	Token                 string  `json:"token"`
	CounterpartyPrincipal string  `json:"counterpartyPrincipal"`
	Nonce                 uint64  `json:"nonce"`
	MyBalance             string  `json:"myBalance"`
	TheirBalance          string  `json:"theirBalance"`
	TheirSignature        string  `json:"theirSignature"`
	Actor                 string  `json:"actor"`
	Secret                *string `json:"secret,omitempty"`
	ValidAfter            *uint64 `json:"validAfter,omitempty"`
	BeneficialOnly        bool    `json:"beneficialOnly"`
}

func (h *handlers) producerTransfer(w http.ResponseWriter, r *http.Request) {
	if h.producer == nil {
		writeError(w, apierr.SignerDisabled())
		return
	}

	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.producer.SignTransfer(r.Context(), producer.TransferRequest{
		ContractID:            req.ContractID,
		Token:                 req.Token,
		CounterpartyPrincipal: req.CounterpartyPrincipal,
		Nonce:                 req.Nonce,
		MyBalance:             req.MyBalance,
		TheirBalance:          req.TheirBalance,
		TheirSignature:        req.TheirSignature,
		Actor:                 req.Actor,
		Secret:                req.Secret,
		ValidAfter:            req.ValidAfter,
		BeneficialOnly:        req.BeneficialOnly,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	view := signatureStateViewOf(result.State)
	writeJSON(w, http.StatusOK, signatureStateResponse{
		Stored: result.Stored, Replaced: result.Replaced, Reason: result.Reason, State: &view,
	})
}

type signatureRequestRequest struct {
	ContractID            string  `json:"contractId"`
	Token                 string  `json:"token"`
	CounterpartyPrincipal string  `json:"counterpartyPrincipal"`
	Action                string  `json:"action"`
	Amount                string  `json:"amount"`
	Nonce                 uint64  `json:"nonce"`
	MyBalance             string  `json:"myBalance"`
	TheirBalance          string  `json:"theirBalance"`
	TheirSignature        string  `json:"theirSignature"`
	Actor                 string  `json:"actor"`
	Secret                *string `json:"secret,omitempty"`
	ValidAfter            *uint64 `json:"validAfter,omitempty"`
	BeneficialOnly        bool    `json:"beneficialOnly"`
}

func (h *handlers) producerSignatureRequest(w http.ResponseWriter, r *http.Request) {
	if h.producer == nil {
		writeError(w, apierr.SignerDisabled())
		return
	}

	var req signatureRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	action, ok := actionValues[req.Action]
	if !ok {
		writeError(w, apierr.BadRequest("unrecognized action %q", req.Action))
		return
	}

	result, err := h.producer.SignSignatureRequest(r.Context(), producer.SignatureRequestRequest{
		ContractID:            req.ContractID,
		Token:                 req.Token,
		CounterpartyPrincipal: req.CounterpartyPrincipal,
		Action:                action,
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
	if err != nil {
		writeError(w, err)
		return
	}

	view := signatureStateViewOf(result.State)
	writeJSON(w, http.StatusOK, signatureStateResponse{
		Stored: result.Stored, Replaced: result.Replaced, Reason: result.Reason, State: &view,
	})
}
