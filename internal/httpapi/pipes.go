package httpapi

import (
	"net/http"
	"strconv"

	"github.com/obycode/stackflow-sub001/internal/apierr"
	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/watchtower"
)

func (h *handlers) listPipes(w http.ResponseWriter, r *http.Request) {
	principal := r.URL.Query().Get("principal")

	pipes, err := h.wt.ListObservedPipes()
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]observedPipeView, 0, len(pipes))
	for _, p := range pipes {
		if principal != "" && p.PrincipalLow != principal && p.PrincipalHigh != principal {
			continue
		}
		views = append(views, observedPipeViewOf(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handlers) listClosures(w http.ResponseWriter, r *http.Request) {
	closures, err := h.wt.ListClosures()
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]closureView, 0, len(closures))
	for _, c := range closures {
		views = append(views, closureViewOf(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handlers) listDisputeAttempts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	attempts, err := h.wt.ListDisputeAttempts(limit)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]disputeAttemptView, 0, len(attempts))
	for _, d := range attempts {
		views = append(views, disputeAttemptViewOf(d))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handlers) listSignatureStates(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	states, err := h.wt.ListSignatureStates(limit)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]signatureStateView, 0, len(states))
	for _, ss := range states {
		views = append(views, signatureStateViewOf(ss))
	}
	writeJSON(w, http.StatusOK, views)
}

type signatureStateRequest struct {
	ContractID     string  `json:"contractId"`
	ForPrincipal   string  `json:"forPrincipal"`
	WithPrincipal  string  `json:"withPrincipal"`
	Token          string  `json:"token"`
	Action         string  `json:"action"`
	Amount         string  `json:"amount"`
	MyBalance      string  `json:"myBalance"`
	TheirBalance   string  `json:"theirBalance"`
	MySignature    string  `json:"mySignature"`
	TheirSignature string  `json:"theirSignature"`
	Nonce          uint64  `json:"nonce"`
	Actor          string  `json:"actor"`
	Secret         *string `json:"secret,omitempty"`
	ValidAfter     *uint64 `json:"validAfter,omitempty"`
	BeneficialOnly bool    `json:"beneficialOnly"`
}

type signatureStateResponse struct {
	Stored   bool                 `json:"stored"`
	Replaced bool                 `json:"replaced"`
	Reason   string               `json:"reason,omitempty"`
	State    *signatureStateView  `json:"state,omitempty"`
}

func (h *handlers) postSignatureState(w http.ResponseWriter, r *http.Request) {
	var req signatureStateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	action, ok := actionValues[req.Action]
	if !ok {
		writeError(w, apierr.BadRequest("unrecognized action %q", req.Action))
		return
	}

	result, err := h.wt.SubmitSignatureState(r.Context(), stateRequestToCore(req, action))
	if err != nil {
		writeError(w, err)
		return
	}

	view := signatureStateViewOf(result.State)
	writeJSON(w, http.StatusOK, signatureStateResponse{
		Stored: result.Stored, Replaced: result.Replaced, Reason: result.Reason, State: &view,
	})
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func stateRequestToCore(req signatureStateRequest, action model.Action) watchtower.SubmitSignatureStateRequest {
	return watchtower.SubmitSignatureStateRequest{
		ContractID:     req.ContractID,
		ForPrincipal:   req.ForPrincipal,
		WithPrincipal:  req.WithPrincipal,
		Token:          req.Token,
		Action:         action,
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
}
