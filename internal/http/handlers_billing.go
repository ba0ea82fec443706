package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/billing"
)

// handleBillingEvent applies a signed subscription update pushed by the billing provider.
func (r *Router) handleBillingEvent(w http.ResponseWriter, req *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorCode(w, http.StatusRequestEntityTooLarge, "invalid_body", "request body too large")
			return
		}
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "unable to read request body")
		return
	}
	event, err := r.billing.Handle(req.Context(), payload, req.Header.Get(billing.SignatureHeader))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "applied",
		"team_id": event.TeamID,
	})
}
