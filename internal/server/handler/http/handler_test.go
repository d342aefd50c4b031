package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/atinyakov/venditori/internal/backup"
	"github.com/atinyakov/venditori/internal/models"
	handler "github.com/atinyakov/venditori/internal/server/handler/http"
)

const token = "s3cret"

type fakeVendorService struct {
	UpsertFunc   func(ctx context.Context, v models.Vendor) (int64, error)
	UpdateFunc   func(ctx context.Context, id int64, v models.Vendor) error
	GetFunc      func(ctx context.Context, id int64) (*models.Vendor, error)
	SearchFunc   func(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error)
	DeleteFunc   func(ctx context.Context, id int64) error
	CitiesFunc   func(ctx context.Context) ([]string, error)
	ImportFunc   func(ctx context.Context, vendors []models.Vendor, overwrite bool) (models.BulkResult, error)
	AttachCVFunc func(ctx context.Context, id int64, r io.Reader) (string, error)
}

func (f *fakeVendorService) Upsert(ctx context.Context, v models.Vendor) (int64, error) {
	return f.UpsertFunc(ctx, v)
}
func (f *fakeVendorService) Update(ctx context.Context, id int64, v models.Vendor) error {
	return f.UpdateFunc(ctx, id, v)
}
func (f *fakeVendorService) Get(ctx context.Context, id int64) (*models.Vendor, error) {
	return f.GetFunc(ctx, id)
}
func (f *fakeVendorService) Search(ctx context.Context, flt models.VendorFilter) ([]models.Vendor, error) {
	return f.SearchFunc(ctx, flt)
}
func (f *fakeVendorService) Delete(ctx context.Context, id int64) error {
	return f.DeleteFunc(ctx, id)
}
func (f *fakeVendorService) Cities(ctx context.Context) ([]string, error) {
	return f.CitiesFunc(ctx)
}
func (f *fakeVendorService) Import(ctx context.Context, vendors []models.Vendor, overwrite bool) (models.BulkResult, error) {
	return f.ImportFunc(ctx, vendors, overwrite)
}
func (f *fakeVendorService) AttachCV(ctx context.Context, id int64, r io.Reader) (string, error) {
	return f.AttachCVFunc(ctx, id, r)
}

type fakeSectorService struct {
	AddFunc  func(ctx context.Context, name string) (int64, error)
	ListFunc func(ctx context.Context) ([]string, error)
}

func (f *fakeSectorService) Add(ctx context.Context, name string) (int64, error) {
	return f.AddFunc(ctx, name)
}
func (f *fakeSectorService) List(ctx context.Context) ([]string, error) {
	return f.ListFunc(ctx)
}

type fakeStatsService struct {
	stats *models.Stats
	err   error
}

func (f *fakeStatsService) Stats(context.Context) (*models.Stats, error) { return f.stats, f.err }

type fakeEngine struct {
	archive  []byte
	backErr  error
	report   *backup.Report
	restErr  error
	received []byte
}

func (f *fakeEngine) Backup(context.Context) ([]byte, error) { return f.archive, f.backErr }
func (f *fakeEngine) Restore(_ context.Context, archive []byte) (*backup.Report, error) {
	f.received = archive
	return f.report, f.restErr
}

type fakeCVFiles struct {
	path string
}

func (f *fakeCVFiles) Open(ref string) (*os.File, error) {
	if ref != f.path {
		return nil, models.ErrNotFound
	}
	return os.Open(f.path)
}

type deps struct {
	vendors *fakeVendorService
	sectors *fakeSectorService
	stats   *fakeStatsService
	engine  *fakeEngine
	cv      *fakeCVFiles
}

func newDeps() *deps {
	return &deps{
		vendors: &fakeVendorService{},
		sectors: &fakeSectorService{},
		stats:   &fakeStatsService{},
		engine:  &fakeEngine{},
		cv:      &fakeCVFiles{},
	}
}

func (d *deps) router() http.Handler {
	return handler.NewRouter(handler.Handlers{
		Vendor: &handler.VendorHandler{VendorService: d.vendors, CVFiles: d.cv},
		Sector: &handler.SectorHandler{SectorService: d.sectors},
		Stats:  &handler.StatsHandler{StatsService: d.stats},
		Backup: &handler.BackupHandler{Engine: d.engine},
	}, handler.RouterConfig{APIToken: token}, zap.NewNop())
}

// do sends an authenticated request through the router.
func (d *deps) do(method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	d.router().ServeHTTP(w, req)
	return w
}

func assertJSON(t *testing.T, w *httptest.ResponseRecorder, wantCode int, wantSubstr string) {
	t.Helper()
	if w.Code != wantCode {
		t.Errorf("status = %d; want %d (body %q)", w.Code, wantCode, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q; want application/json", ct)
	}
	if !strings.Contains(w.Body.String(), wantSubstr) {
		t.Errorf("body = %q; want substring %q", w.Body.String(), wantSubstr)
	}
}
