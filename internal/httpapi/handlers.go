package httpapi

import (
	"io"
	"net/http"

	"github.com/obycode/stackflow-sub001/internal/apierr"
	"github.com/obycode/stackflow-sub001/internal/producer"
	"github.com/obycode/stackflow-sub001/internal/watchtower"
)

type handlers struct {
	wt       *watchtower.Watchtower
	producer *producer.Producer
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wt.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotJSON(snap))
}

type newBlockResponse struct {
	OK             bool `json:"ok"`
	ObservedEvents int  `json:"observedEvents"`
}

func (h *handlers) newBlock(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apierr.BadRequest("unable to read request body: %v", err))
		return
	}

	result, submitErr := h.wt.IngestBlock(r.Context(), payload)
	if submitErr != nil {
		writeError(w, submitErr)
		return
	}
	writeJSON(w, http.StatusOK, newBlockResponse{OK: true, ObservedEvents: result.ObservedEvents})
}

type newBurnBlockRequest struct {
	BurnBlockHeight uint64 `json:"burn_block_height"`
}

type newBurnBlockResponse struct {
	BurnBlockHeight uint64 `json:"burnBlockHeight"`
	ProcessedPipes  int    `json:"processedPipes"`
	SettledPipes    int    `json:"settledPipes"`
}

func (h *handlers) newBurnBlock(w http.ResponseWriter, r *http.Request) {
	var req newBurnBlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.wt.IngestBurnBlock(req.BurnBlockHeight)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBurnBlockResponse{
		BurnBlockHeight: req.BurnBlockHeight,
		ProcessedPipes:  result.ProcessedPipes,
		SettledPipes:    result.SettledPipes,
	})
}

// ignoredRoute satisfies chain-node compatibility: these routes must
// be accepted, never processed, and always answer 200 so an upstream
// node's webhook delivery doesn't treat them as failing.
func (h *handlers) ignoredRoute(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok": true, "ignored": true, "route": route,
		})
	}
}
