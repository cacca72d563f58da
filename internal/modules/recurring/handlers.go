package recurring

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles recurring plan HTTP requests
type Handler struct {
	repo      *Repository
	scheduler *Scheduler
	log       zerolog.Logger
}

// NewHandler creates a new recurring plan handler
func NewHandler(repo *Repository, scheduler *Scheduler, log zerolog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		scheduler: scheduler,
		log:       log.With().Str("handler", "recurring").Logger(),
	}
}

// RegisterRoutes registers all recurring plan routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/recurring", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/pause", h.HandlePause)
		r.Post("/{id}/resume", h.HandleResume)
		r.Post("/{id}/run", h.HandleRunNow)
	})
}

// HandleList handles GET /api/recurring
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	plans, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list plans")
		h.writeError(w, http.StatusInternalServerError, "Failed to list plans")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": plans})
}

// HandleCreate handles POST /api/recurring. A created plan is registered
// with the scheduler immediately.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p Plan
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	created, err := h.repo.Create(&p)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to create plan: "+err.Error())
		return
	}

	if err := h.scheduler.Register(created); err != nil {
		// The schedule never parsed; remove the row rather than keeping a
		// plan that can never run.
		_ = h.repo.Delete(created.ID)
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": created})
}

// HandleGet handles GET /api/recurring/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.repo.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Str("plan", id).Msg("Failed to get plan")
		h.writeError(w, http.StatusInternalServerError, "Failed to get plan")
		return
	}
	if p == nil {
		h.writeError(w, http.StatusNotFound, "Plan not found")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": p})
}

// HandleDelete handles DELETE /api/recurring/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(id); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.scheduler.Unregister(id)

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandlePause handles POST /api/recurring/{id}/pause
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.SetActive(id, false); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.scheduler.Unregister(id)

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// HandleResume handles POST /api/recurring/{id}/resume
func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.SetActive(id, true); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	p, err := h.repo.GetByID(id)
	if err != nil || p == nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to reload plan")
		return
	}
	if err := h.scheduler.Register(p); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

// HandleRunNow handles POST /api/recurring/{id}/run
func (h *Handler) HandleRunNow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.repo.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Str("plan", id).Msg("Failed to get plan")
		h.writeError(w, http.StatusInternalServerError, "Failed to get plan")
		return
	}
	if p == nil {
		h.writeError(w, http.StatusNotFound, "Plan not found")
		return
	}

	if err := h.scheduler.RunNow(p); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "executed"})
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
