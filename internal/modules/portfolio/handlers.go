package portfolio

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	repo    *Repository
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(repo *Repository, service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		repo:    repo,
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
		r.Get("/{id}/summary", h.HandleSummary)
		r.Get("/{id}/transactions", h.HandleListTransactions)
		r.Post("/{id}/transactions", h.HandleCreateTransaction)
		r.Delete("/{id}/transactions/{txID}", h.HandleDeleteTransaction)
	})
}

// HandleList handles GET /api/portfolios
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.repo.GetAllPortfolios()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list portfolios")
		h.writeError(w, http.StatusInternalServerError, "Failed to list portfolios")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": portfolios})
}

// HandleCreate handles POST /api/portfolios
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p Portfolio
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	created, err := h.repo.CreatePortfolio(&p)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to create portfolio: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": created})
}

// HandleGet handles GET /api/portfolios/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.repo.GetPortfolio(id)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio", id).Msg("Failed to get portfolio")
		h.writeError(w, http.StatusInternalServerError, "Failed to get portfolio")
		return
	}
	if p == nil {
		h.writeError(w, http.StatusNotFound, "Portfolio not found")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": p})
}

// HandleDelete handles DELETE /api/portfolios/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.DeletePortfolio(id); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleSummary handles GET /api/portfolios/{id}/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	summary, err := h.service.Summarize(id)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio", id).Msg("Failed to summarize portfolio")
		h.writeError(w, http.StatusInternalServerError, "Failed to summarize portfolio: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": summary})
}

// HandleListTransactions handles GET /api/portfolios/{id}/transactions
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	txs, err := h.repo.GetTransactions(id)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio", id).Msg("Failed to list transactions")
		h.writeError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": txs})
}

// HandleCreateTransaction handles POST /api/portfolios/{id}/transactions
func (h *Handler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var tx Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	tx.PortfolioID = id

	created, err := h.repo.CreateTransaction(&tx)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to create transaction: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"data": created})
}

// HandleDeleteTransaction handles DELETE /api/portfolios/{id}/transactions/{txID}
func (h *Handler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txID")

	if err := h.repo.DeleteTransaction(txID); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
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
