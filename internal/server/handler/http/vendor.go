package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/atinyakov/venditori/internal/cvstore"
	"github.com/atinyakov/venditori/internal/models"
)

// VendorService defines the vendor operations required by VendorHandler.
type VendorService interface {
	Upsert(ctx context.Context, v models.Vendor) (int64, error)
	Update(ctx context.Context, id int64, v models.Vendor) error
	Get(ctx context.Context, id int64) (*models.Vendor, error)
	Search(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error)
	Delete(ctx context.Context, id int64) error
	Cities(ctx context.Context) ([]string, error)
	Import(ctx context.Context, vendors []models.Vendor, overwrite bool) (models.BulkResult, error)
	AttachCV(ctx context.Context, id int64, r io.Reader) (string, error)
}

// CVFiles opens stored résumés.
type CVFiles interface {
	Open(ref string) (*os.File, error)
}

// VendorHandler handles vendor CRUD, search and résumé requests.
type VendorHandler struct {
	VendorService VendorService
	CVFiles       CVFiles
}

// Insert handles POST /inserisci_venditore: it creates the vendor or updates
// the one with the same email.
func (h *VendorHandler) Insert(w http.ResponseWriter, r *http.Request) {
	var v models.Vendor
	if !decodeJSON(w, r, &v) {
		return
	}
	id, err := h.VendorService.Upsert(r.Context(), v)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "vendor saved", "id": id})
}

func filterFromQuery(r *http.Request) models.VendorFilter {
	q := r.URL.Query()
	return models.VendorFilter{
		Name:          q.Get("nome"),
		City:          q.Get("citta"),
		Sector:        q.Get("settore"),
		VATRegistered: q.Get("partita_iva"),
		Enasarco:      q.Get("agente_isenarco"),
	}
}

// List handles GET /venditori.
func (h *VendorHandler) List(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.VendorService.Search(r.Context(), filterFromQuery(r))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vendors)
}

// Get handles GET /venditori/{id}.
func (h *VendorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	v, err := h.VendorService.Get(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Update handles PUT /venditori/{id}.
func (h *VendorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var v models.Vendor
	if !decodeJSON(w, r, &v) {
		return
	}
	if err := h.VendorService.Update(r.Context(), id, v); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "vendor updated", "id": id})
}

// Delete handles DELETE /venditori/{id}. Unknown ids answer 404.
func (h *VendorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.VendorService.Delete(r.Context(), id); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "vendor deleted", "id": id})
}

// Cities handles GET /citta.
func (h *VendorHandler) Cities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.VendorService.Cities(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

// UploadCV handles POST /venditori/{id}/cv with the PDF in multipart field "cv".
func (h *VendorHandler) UploadCV(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, cvstore.MaxSize+1<<20)
	file, _, err := r.FormFile("cv")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, cvstore.ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, `missing multipart file field "cv"`)
		return
	}
	defer file.Close()

	ref, err := h.VendorService.AttachCV(r.Context(), id, file)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "cv saved", "cv": ref})
}

// DownloadCV handles GET /venditori/{id}/cv. Stored files are served as
// PDF; URL references are redirected.
func (h *VendorHandler) DownloadCV(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	v, err := h.VendorService.Get(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	if v.CV == "" {
		writeError(w, http.StatusNotFound, "vendor has no cv")
		return
	}
	if cvstore.IsURL(v.CV) {
		http.Redirect(w, r, v.CV, http.StatusFound)
		return
	}
	if h.CVFiles == nil {
		writeError(w, http.StatusNotFound, "cv file not found")
		return
	}

	f, err := h.CVFiles.Open(v.CV)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "cv file not found")
			return
		}
		fail(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(v.CV)+`"`)
	http.ServeContent(w, r, filepath.Base(v.CV), info.ModTime(), f)
}
