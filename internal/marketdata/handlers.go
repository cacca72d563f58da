package marketdata

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles market status HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new market status handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "markets").Logger(),
	}
}

// RegisterRoutes registers all market routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/markets", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{code}", h.HandleGet)
		r.Get("/{code}/freshness", h.HandleFreshness)
	})
}

// HandleList handles GET /api/markets
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	statuses := h.service.GetAllMarketStatuses(time.Now())
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": statuses})
}

// HandleGet handles GET /api/markets/{code}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	status, ok := h.service.GetMarketStatus(code, time.Now())
	if !ok {
		h.writeError(w, http.StatusNotFound, "Unknown exchange: "+code)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": status})
}

// HandleFreshness handles GET /api/markets/{code}/freshness.
// Optional query parameters: last_updated (RFC3339), tz (IANA name used
// when the code is unknown), force (bool).
func (h *Handler) HandleFreshness(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var lastUpdated *time.Time
	if v := r.URL.Query().Get("last_updated"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid last_updated time: "+err.Error())
			return
		}
		lastUpdated = &parsed
	}

	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			force = parsed
		}
	}

	q, err := NewQuery(code, r.URL.Query().Get("tz"), lastUpdated, force)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision := h.service.ShouldFetchData(q)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": decision})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
