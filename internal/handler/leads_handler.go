package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/domain"
	apperrors "github.com/mwhitford/leadchat/internal/errors"
)

const (
	defaultLeadPageSize = 50
	maxLeadPageSize     = 200
)

// LeadsHandler exposes stored lead captures for review tooling.
type LeadsHandler struct {
	repo   domain.LeadCaptureRepository
	logger *zap.Logger
}

// NewLeadsHandler creates a LeadsHandler.
func NewLeadsHandler(repo domain.LeadCaptureRepository, logger *zap.Logger) *LeadsHandler {
	return &LeadsHandler{repo: repo, logger: logger}
}

// RegisterRoutes registers lead routes.
func (h *LeadsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/leads", func(r chi.Router) {
		r.Get("/", h.ListLeads)
		r.Get("/{leadID}", h.GetLead)
	})
}

// ListLeads handles GET /api/v1/leads with limit/offset paging, newest first.
func (h *LeadsHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultLeadPageSize)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > maxLeadPageSize {
		BadRequest(w, r, "limit must be between 1 and "+strconv.Itoa(maxLeadPageSize))
		return
	}
	if offset < 0 {
		BadRequest(w, r, "offset must not be negative")
		return
	}

	captures, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		Error(w, r, err, h.logger)
		return
	}
	total, err := h.repo.Count(r.Context())
	if err != nil {
		Error(w, r, err, h.logger)
		return
	}

	resp := LeadListResponse{
		Leads:  make([]LeadCaptureResponse, 0, len(captures)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, c := range captures {
		resp.Leads = append(resp.Leads, toLeadCaptureResponse(c))
	}
	JSON(w, r, http.StatusOK, resp)
}

// GetLead handles GET /api/v1/leads/{leadID}.
func (h *LeadsHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "leadID"))
	if err != nil {
		Error(w, r, apperrors.ValidationFailed("invalid lead id"), h.logger)
		return
	}

	capture, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		Error(w, r, err, h.logger)
		return
	}
	JSON(w, r, http.StatusOK, toLeadCaptureResponse(capture))
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
