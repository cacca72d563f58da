package assets

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles asset HTTP requests
type Handler struct {
	repo    *Repository
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new asset handler
func NewHandler(repo *Repository, service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		repo:    repo,
		service: service,
		log:     log.With().Str("handler", "assets").Logger(),
	}
}

// RegisterRoutes registers all asset routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
		r.Get("/{id}/chart", h.HandleChart)
	})
}

// HandleList handles GET /api/assets
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	assets, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assets")
		h.writeError(w, http.StatusInternalServerError, "Failed to list assets")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": assets})
}

// HandleCreate handles POST /api/assets
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var asset Asset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	created, err := h.repo.Create(&asset)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to create asset: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": created})
}

// HandleGet handles GET /api/assets/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asset, err := h.repo.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Str("asset", id).Msg("Failed to get asset")
		h.writeError(w, http.StatusInternalServerError, "Failed to get asset")
		return
	}
	if asset == nil {
		h.writeError(w, http.StatusNotFound, "Asset not found")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": asset})
}

// HandleDelete handles DELETE /api/assets/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(id); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleChart handles GET /api/assets/{id}/chart?start=RFC3339&end=RFC3339&force=bool
// The window defaults to the last 30 days ending now.
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if v := r.URL.Query().Get("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid start time: "+err.Error())
			return
		}
		start = parsed
	}
	if v := r.URL.Query().Get("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid end time: "+err.Error())
			return
		}
		end = parsed
	}

	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			force = parsed
		}
	}

	chart, err := h.service.GetChart(id, start, end, force)
	if err != nil {
		h.log.Error().Err(err).Str("asset", id).Msg("Failed to load chart")
		h.writeError(w, http.StatusInternalServerError, "Failed to load chart: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": chart})
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
