package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/repository"
	"github.com/FayezAlshami/DTC/internal/service"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeError maps the domain error taxonomy onto HTTP statuses. Stable
// eligibility codes travel in the reason field so clients can localize.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr  *entity.ValidationError
		authErr        *entity.AuthError
		stateErr       *entity.StateError
		eligibilityErr *entity.EligibilityError
		publishErr     *entity.PublishError
	)

	status := http.StatusInternalServerError
	resp := errorResponse{Error: "internal server error"}

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		resp.Error = validationErr.Error()
	case errors.As(err, &authErr):
		status = http.StatusForbidden
		resp.Error = "operation not permitted"
	case errors.As(err, &eligibilityErr):
		status = http.StatusUnprocessableEntity
		resp.Error = eligibilityErr.Error()
		resp.Reason = string(eligibilityErr.Reason)
	case errors.As(err, &stateErr):
		status = http.StatusConflict
		resp.Error = stateErr.Error()
	case errors.As(err, &publishErr):
		status = http.StatusBadGateway
		resp.Error = "listing could not be published, it was returned to draft"
	case errors.Is(err, service.ErrNegotiationExists):
		status = http.StatusConflict
		resp.Error = err.Error()
	case errors.Is(err, repository.ErrOptimisticLock):
		status = http.StatusConflict
		resp.Error = "resource was modified concurrently, retry"
	case errors.Is(err, entity.ErrListingNotFound),
		errors.Is(err, entity.ErrNegotiationNotFound),
		errors.Is(err, entity.ErrUserNotFound),
		errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
		resp.Error = "not found"
	default:
		h.logger.Errorf("Unhandled error on %s %s: %v", r.Method, r.URL.Path, err)
	}

	pattern := chi.RouteContext(r.Context()).RoutePattern()
	h.metrics.CommandErrorsTotal.WithLabelValues(r.Method+" "+pattern, errorType(status)).Inc()

	writeJSON(w, status, resp)
}

func errorType(status int) string {
	switch {
	case status >= 500:
		return "server"
	case status == http.StatusConflict:
		return "conflict"
	case status == http.StatusNotFound:
		return "not_found"
	default:
		return "client"
	}
}
