package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/repository"
)

type rejectListingRequest struct {
	Reason string `json:"reason"`
}

type auditRecordResponse struct {
	ID         string            `json:"id"`
	AdminID    string            `json:"admin_id"`
	ActionType string            `json:"action_type"`
	TargetType string            `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Details    map[string]string `json:"details,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type auditLogResponse struct {
	Records    []auditRecordResponse `json:"records"`
	TotalCount int64                 `json:"total_count"`
}

func (h *Handler) listPendingListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.moderation.ListPending(r.Context(), UserIDFromContext(r.Context()),
		queryInt(q.Get("page"), 1), queryInt(q.Get("page_size"), 20))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingPageResponse(result.Listings, result.TotalCount))
}

func (h *Handler) approveListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.moderation.Approve(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "listingID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *Handler) rejectListing(w http.ResponseWriter, r *http.Request) {
	var req rejectListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Reason == "" {
		writeJSONError(w, http.StatusBadRequest, "rejection reason is required")
		return
	}

	listing, err := h.moderation.Reject(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "listingID"), req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.moderation.Stats(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) auditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, total, err := h.moderation.AuditLog(r.Context(), UserIDFromContext(r.Context()), repository.ListAuditParams{
		AdminID:  q.Get("admin_id"),
		Page:     queryInt(q.Get("page"), 1),
		PageSize: queryInt(q.Get("page_size"), 50),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := auditLogResponse{
		Records:    make([]auditRecordResponse, 0, len(records)),
		TotalCount: total,
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, toAuditRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toAuditRecordResponse(rec entity.AuditRecord) auditRecordResponse {
	return auditRecordResponse{
		ID:         rec.ID,
		AdminID:    rec.AdminID,
		ActionType: rec.ActionType,
		TargetType: rec.TargetType,
		TargetID:   rec.TargetID,
		Details:    rec.Details,
		CreatedAt:  rec.CreatedAt,
	}
}
