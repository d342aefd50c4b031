package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/atinyakov/venditori/internal/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Vendor *VendorHandler
	Sector *SectorHandler
	Stats  *StatsHandler
	Backup *BackupHandler
}

// RouterConfig carries the access settings of the API.
type RouterConfig struct {
	// APIToken is the shared bearer secret.
	APIToken string
	// APITokenHash is a bcrypt hash of the secret, preferred over APIToken.
	APITokenHash string
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string
}

// NewRouter constructs the HTTP handler that serves the vendor API.
//
// Routes:
//
//	GET    /test                  health check, public
//	POST   /inserisci_venditore   insert or update a vendor
//	POST   /aggiungi_settore      add a sector
//	GET    /settori               list sectors
//	GET    /citta                 list cities
//	GET    /statistiche           dashboard figures
//	GET    /venditori             search vendors
//	GET    /venditori/export      download as CSV or XLSX
//	POST   /venditori/import      upload CSV or XLSX
//	GET    /venditori/{id}        read a vendor
//	PUT    /venditori/{id}        update a vendor
//	DELETE /venditori/{id}        delete a vendor
//	POST   /venditori/{id}/cv     upload a PDF résumé
//	GET    /venditori/{id}/cv     download or redirect to the résumé
//	POST   /backup                download a backup archive
//	POST   /restore               restore from a backup archive
//
// Every route but /test requires "Authorization: Bearer <token>". JSON
// bodies must be sent as application/json.
func NewRouter(h Handlers, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", middleware.RequestIDHeader},
	}).Handler)

	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "API is working!"})
	})

	// Protected group: requires the bearer token
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIToken, cfg.APITokenHash))

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/inserisci_venditore", h.Vendor.Insert)
			r.Post("/aggiungi_settore", h.Sector.Add)
			r.Put("/venditori/{id}", h.Vendor.Update)
		})

		r.Get("/settori", h.Sector.List)
		r.Get("/citta", h.Vendor.Cities)
		r.Get("/statistiche", h.Stats.Stats)

		r.Get("/venditori", h.Vendor.List)
		r.Get("/venditori/export", h.Vendor.Export)
		r.Post("/venditori/import", h.Vendor.Import)
		r.Get("/venditori/{id}", h.Vendor.Get)
		r.Delete("/venditori/{id}", h.Vendor.Delete)
		r.Post("/venditori/{id}/cv", h.Vendor.UploadCV)
		r.Get("/venditori/{id}/cv", h.Vendor.DownloadCV)

		r.Post("/backup", h.Backup.Backup)
		r.Post("/restore", h.Backup.Restore)
	})

	return r
}
