package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/obycode/stackflow-sub001/internal/apierr"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders err through apierr's status mapping, falling back
// to 500 internal for anything that isn't a tagged *apierr.Error.
func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.Internal(err)
	}

	body := map[string]interface{}{
		"error": apiErr.Code,
		"kind":  apiErr.Kind,
		"message": apiErr.Message,
	}
	if len(apiErr.Fields) > 0 {
		body["fields"] = apiErr.Fields
	}
	writeJSON(w, apiErr.Status(), body)
}

func decodeJSON(r *http.Request, dst interface{}) *apierr.Error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierr.BadRequest("invalid JSON body: %v", err)
	}
	return nil
}
