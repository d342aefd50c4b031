package http

import (
	"context"
	"net/http"
)

// SectorService defines the sector operations required by SectorHandler.
type SectorService interface {
	Add(ctx context.Context, name string) (int64, error)
	List(ctx context.Context) ([]string, error)
}

// SectorHandler handles sector requests.
type SectorHandler struct {
	SectorService SectorService
}

// Add handles POST /aggiungi_settore with body {"settore": name}. A
// duplicate name answers 400.
func (h *SectorHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sector string `json:"settore"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.SectorService.Add(r.Context(), req.Sector)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "sector added", "id": id})
}

// List handles GET /settori.
func (h *SectorHandler) List(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.SectorService.List(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sectors)
}
