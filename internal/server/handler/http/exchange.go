package http

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/atinyakov/venditori/internal/exchange"
)

// MaxImportSize bounds the size of an uploaded vendor file.
const MaxImportSize = 32 << 20

// Export handles GET /venditori/export?format=csv|xlsx. The search filters
// of GET /venditori apply.
func (h *VendorHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exchange.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		fail(w, err)
		return
	}
	vendors, err := h.VendorService.Search(r.Context(), filterFromQuery(r))
	if err != nil {
		fail(w, err)
		return
	}

	buf := new(bytes.Buffer)
	if err := exchange.Export(buf, format, vendors); err != nil {
		fail(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// Import handles POST /venditori/import?format=csv|xlsx&overwrite=true|false.
// The file is the raw request body or the multipart field "file".
func (h *VendorHandler) Import(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := exchange.ParseFormat(q.Get("format"))
	if err != nil {
		fail(w, err)
		return
	}
	overwrite := false
	if s := q.Get("overwrite"); s != "" {
		if overwrite, err = strconv.ParseBool(s); err != nil {
			writeError(w, http.StatusBadRequest, "overwrite must be true or false")
			return
		}
	}

	data, ok := readUpload(w, r, "file", MaxImportSize)
	if !ok {
		return
	}
	vendors, err := exchange.Import(bytes.NewReader(data), format)
	if err != nil {
		fail(w, err)
		return
	}
	result, err := h.VendorService.Import(r.Context(), vendors, overwrite)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// readUpload returns the request payload: the multipart field named field
// when the request is multipart, the raw body otherwise.
func readUpload(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, _, err := r.FormFile(field)
		if err != nil {
			writeError(w, http.StatusBadRequest, `missing multipart file field "`+field+`"`)
			return nil, false
		}
		defer file.Close()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read upload: "+err.Error())
		return nil, false
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty upload")
		return nil, false
	}
	return data, true
}
