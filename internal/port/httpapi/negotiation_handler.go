package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
)

type negotiationResponse struct {
	ID          string    `json:"id"`
	ListingID   string    `json:"listing_id"`
	ListingKind string    `json:"listing_kind"`
	InitiatorID string    `json:"initiator_id"`
	OwnerID     string    `json:"owner_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toNegotiationResponse(n *entity.ContactNegotiation) negotiationResponse {
	return negotiationResponse{
		ID:          n.ID,
		ListingID:   n.ListingID,
		ListingKind: string(n.ListingKind),
		InitiatorID: n.InitiatorID,
		OwnerID:     n.OwnerID,
		Status:      string(n.Status),
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func toNegotiationListResponse(negotiations []entity.ContactNegotiation) []negotiationResponse {
	out := make([]negotiationResponse, 0, len(negotiations))
	for i := range negotiations {
		out = append(out, toNegotiationResponse(&negotiations[i]))
	}
	return out
}

func (h *Handler) proposeContact(w http.ResponseWriter, r *http.Request) {
	negotiation, err := h.negotiations.Propose(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "listingID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNegotiationResponse(negotiation))
}

func (h *Handler) acceptNegotiation(w http.ResponseWriter, r *http.Request) {
	negotiation, err := h.negotiations.Accept(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "negotiationID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNegotiationResponse(negotiation))
}

func (h *Handler) rejectNegotiation(w http.ResponseWriter, r *http.Request) {
	negotiation, err := h.negotiations.Reject(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "negotiationID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNegotiationResponse(negotiation))
}

func (h *Handler) listMyNegotiations(w http.ResponseWriter, r *http.Request) {
	negotiations, err := h.negotiations.ListMine(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNegotiationListResponse(negotiations))
}

func (h *Handler) listPendingNegotiations(w http.ResponseWriter, r *http.Request) {
	negotiations, err := h.negotiations.ListPendingForOwner(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNegotiationListResponse(negotiations))
}
