package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/service"
)

const maxMediaUploadBytes = 32 << 20

type pricingPayload struct {
	Mode  string  `json:"mode"`
	Fixed float64 `json:"fixed,omitempty"`
	Min   float64 `json:"min,omitempty"`
	Max   float64 `json:"max,omitempty"`
}

func (p pricingPayload) toEntity() entity.Pricing {
	return entity.Pricing{
		Mode:  entity.PricingMode(p.Mode),
		Fixed: p.Fixed,
		Min:   p.Min,
		Max:   p.Max,
	}
}

type createDraftRequest struct {
	Kind                   string         `json:"kind"`
	Title                  string         `json:"title"`
	Description            string         `json:"description"`
	Pricing                pricingPayload `json:"pricing"`
	AllowedSpecializations []string       `json:"allowed_specializations,omitempty"`
	PreferredGender        string         `json:"preferred_gender,omitempty"`
}

type updateDraftRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Pricing     pricingPayload `json:"pricing"`
}

type listingResponse struct {
	ID                     string         `json:"id"`
	Kind                   string         `json:"kind"`
	OwnerID                string         `json:"owner_id"`
	Title                  string         `json:"title"`
	Description            string         `json:"description"`
	Pricing                pricingPayload `json:"pricing"`
	Specialization         string         `json:"specialization,omitempty"`
	AllowedSpecializations []string       `json:"allowed_specializations,omitempty"`
	PreferredGender        string         `json:"preferred_gender,omitempty"`
	MediaObjectKey         string         `json:"media_object_key,omitempty"`
	MediaType              string         `json:"media_type,omitempty"`
	Status                 string         `json:"status"`
	ChannelPostRef         string         `json:"channel_post_ref,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

func toListingResponse(l *entity.Listing) listingResponse {
	resp := listingResponse{
		ID:          l.ID,
		Kind:        string(l.Kind),
		OwnerID:     l.OwnerID,
		Title:       l.Title,
		Description: l.Description,
		Pricing: pricingPayload{
			Mode:  string(l.Pricing.Mode),
			Fixed: l.Pricing.Fixed,
			Min:   l.Pricing.Min,
			Max:   l.Pricing.Max,
		},
		Specialization:         l.Specialization,
		AllowedSpecializations: l.AllowedSpecializations,
		PreferredGender:        string(l.PreferredGender),
		Status:                 string(l.Status),
		ChannelPostRef:         l.ChannelPostRef,
		CreatedAt:              l.CreatedAt,
		UpdatedAt:              l.UpdatedAt,
	}
	if l.Media != nil {
		resp.MediaObjectKey = l.Media.ObjectKey
		resp.MediaType = string(l.Media.Type)
	}
	return resp
}

type listingPageResponse struct {
	Listings   []listingResponse `json:"listings"`
	TotalCount int64             `json:"total_count"`
}

func toListingPageResponse(listings []entity.Listing, total int64) listingPageResponse {
	page := listingPageResponse{
		Listings:   make([]listingResponse, 0, len(listings)),
		TotalCount: total,
	}
	for i := range listings {
		page.Listings = append(page.Listings, toListingResponse(&listings[i]))
	}
	return page
}

func (h *Handler) createDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	listing, err := h.listings.CreateDraft(r.Context(), UserIDFromContext(r.Context()), service.CreateDraftInput{
		Kind:                   entity.ListingKind(req.Kind),
		Title:                  req.Title,
		Description:            req.Description,
		Pricing:                req.Pricing.toEntity(),
		AllowedSpecializations: req.AllowedSpecializations,
		PreferredGender:        entity.Gender(req.PreferredGender),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toListingResponse(listing))
}

func (h *Handler) updateDraft(w http.ResponseWriter, r *http.Request) {
	var req updateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	listing, err := h.listings.UpdateDraft(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "listingID"), service.UpdateDraftInput{
		Title:       req.Title,
		Description: req.Description,
		Pricing:     req.Pricing.toEntity(),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *Handler) attachMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMediaUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}
	file, header, err := r.FormFile("media")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "media file is required")
		return
	}
	defer file.Close()

	listing, err := h.listings.AttachMedia(
		r.Context(),
		UserIDFromContext(r.Context()),
		chi.URLParam(r, "listingID"),
		file,
		header.Size,
		header.Header.Get("Content-Type"),
		entity.MediaType(r.FormValue("type")),
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *Handler) submitListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.Submit(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "listingID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *Handler) withdrawListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.Withdraw(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "listingID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

// expireListing is called by the scheduler, not by end users. The TTL
// guard in the service makes a premature call a no-op conflict.
func (h *Handler) expireListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.Expire(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *Handler) getListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetListing(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *Handler) browseListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minPrice, _ := strconv.ParseFloat(q.Get("min_price"), 64)
	maxPrice, _ := strconv.ParseFloat(q.Get("max_price"), 64)

	result, err := h.listings.BrowsePublished(r.Context(), service.BrowseParams{
		Kind:           entity.ListingKind(q.Get("kind")),
		Specialization: q.Get("specialization"),
		MinPrice:       minPrice,
		MaxPrice:       maxPrice,
		Page:           queryInt(q.Get("page"), 1),
		PageSize:       queryInt(q.Get("page_size"), 20),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingPageResponse(result.Listings, result.TotalCount))
}

func (h *Handler) listOwnListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.listings.ListOwn(r.Context(), UserIDFromContext(r.Context()),
		queryInt(q.Get("page"), 1), queryInt(q.Get("page_size"), 20))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingPageResponse(result.Listings, result.TotalCount))
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
