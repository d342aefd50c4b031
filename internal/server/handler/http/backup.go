package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/atinyakov/venditori/internal/backup"
)

// MaxArchiveSize bounds the size of an uploaded backup archive.
const MaxArchiveSize = 512 << 20

// BackupEngine defines the operations required by BackupHandler.
type BackupEngine interface {
	Backup(ctx context.Context) ([]byte, error)
	Restore(ctx context.Context, archive []byte) (*backup.Report, error)
}

// BackupHandler serves manual backups and restores.
type BackupHandler struct {
	Engine BackupEngine
	// Now is used to name archives. Defaults to time.Now.
	Now func() time.Time
}

// Backup handles POST /backup by streaming backup_manual_<timestamp>.zip.
func (h *BackupHandler) Backup(w http.ResponseWriter, r *http.Request) {
	data, err := h.Engine.Backup(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "backup failed: "+err.Error())
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	name := "backup_manual_" + now().Format("20060102_150405") + ".zip"

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// Restore handles POST /restore. The archive is the raw body or the
// multipart field "file". A partial restore answers 500 with the report
// naming the failed tables.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	archive, ok := readUpload(w, r, "file", MaxArchiveSize)
	if !ok {
		return
	}

	report, err := h.Engine.Restore(r.Context(), archive)
	if err != nil {
		fail(w, err)
		return
	}
	if !report.OK() {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":    "restore incomplete",
			"restored": report.Restored,
			"failed":   report.Failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}
