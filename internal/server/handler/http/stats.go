package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/venditori/internal/models"
)

// StatsService defines the dashboard query required by StatsHandler.
type StatsService interface {
	Stats(ctx context.Context) (*models.Stats, error)
}

// StatsHandler serves dashboard figures.
type StatsHandler struct {
	StatsService StatsService
}

// Stats handles GET /statistiche.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.StatsService.Stats(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
