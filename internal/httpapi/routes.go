package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func registerRoutes(r *mux.Router, h *handlers) {
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)

	r.HandleFunc("/new_block", h.newBlock).Methods(http.MethodPost)
	r.HandleFunc("/new_burn_block", h.newBurnBlock).Methods(http.MethodPost)

	for _, route := range []string{"/new_mempool_tx", "/drop_mempool_tx", "/new_microblocks"} {
		r.HandleFunc(route, h.ignoredRoute(route)).Methods(http.MethodPost)
	}

	r.HandleFunc("/signature-states", h.postSignatureState).Methods(http.MethodPost)
	r.HandleFunc("/signature-states", h.listSignatureStates).Methods(http.MethodGet)
	r.HandleFunc("/pipes", h.listPipes).Methods(http.MethodGet)
	r.HandleFunc("/closures", h.listClosures).Methods(http.MethodGet)
	r.HandleFunc("/dispute-attempts", h.listDisputeAttempts).Methods(http.MethodGet)

	r.HandleFunc("/producer/transfer", h.producerTransfer).Methods(http.MethodPost)
	r.HandleFunc("/producer/signature-request", h.producerSignatureRequest).Methods(http.MethodPost)

	r.PathPrefix("/app").Handler(staticAssetsHandler())
}
