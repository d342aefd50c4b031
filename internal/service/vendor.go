// Package service holds the business rules of the registry: input
// validation and the orchestration of repositories and file storage.
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/atinyakov/venditori/internal/models"
)

// VendorRepository defines the persistence operations needed by VendorService.
type VendorRepository interface {
	UpsertVendor(ctx context.Context, v models.Vendor) (int64, error)
	UpdateVendor(ctx context.Context, id int64, v models.Vendor) error
	GetVendor(ctx context.Context, id int64) (*models.Vendor, error)
	SearchVendors(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error)
	DeleteVendor(ctx context.Context, id int64) error
	SetCV(ctx context.Context, id int64, ref string) error
	BulkUpsert(ctx context.Context, vendors []models.Vendor, overwrite bool) (models.BulkResult, error)
	ListCities(ctx context.Context) ([]string, error)
}

// FileStore keeps résumé files.
type FileStore interface {
	Save(vendorID int64, r io.Reader) (string, error)
	Remove(ref string) error
}

// VendorService validates vendor input and delegates to the repository.
type VendorService struct {
	repo  VendorRepository
	files FileStore
	now   func() time.Time
}

// NewVendorService constructs a VendorService. files may be nil when
// résumé uploads are not served.
func NewVendorService(repo VendorRepository, files FileStore) *VendorService {
	return &VendorService{repo: repo, files: files, now: time.Now}
}

// Upsert validates v and inserts it, or updates the vendor with the same email.
// The sector is created when missing.
func (s *VendorService) Upsert(ctx context.Context, v models.Vendor) (int64, error) {
	if err := ValidateVendor(&v, s.now()); err != nil {
		return 0, err
	}
	return s.repo.UpsertVendor(ctx, v)
}

// Update validates v and overwrites the vendor with the given id.
func (s *VendorService) Update(ctx context.Context, id int64, v models.Vendor) error {
	if err := ValidateVendor(&v, s.now()); err != nil {
		return err
	}
	return s.repo.UpdateVendor(ctx, id, v)
}

// Get returns one vendor or models.ErrNotFound.
func (s *VendorService) Get(ctx context.Context, id int64) (*models.Vendor, error) {
	return s.repo.GetVendor(ctx, id)
}

// Search returns vendors matching every present filter.
func (s *VendorService) Search(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error) {
	return s.repo.SearchVendors(ctx, f)
}

// Delete removes the vendor and its stored résumé. A missing id yields
// models.ErrNotFound.
func (s *VendorService) Delete(ctx context.Context, id int64) error {
	v, err := s.repo.GetVendor(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteVendor(ctx, id); err != nil {
		return err
	}
	if s.files != nil && v.CV != "" {
		if err := s.files.Remove(v.CV); err != nil {
			return fmt.Errorf("vendor deleted, cv left behind: %w", err)
		}
	}
	return nil
}

// Cities lists the distinct vendor cities alphabetically.
func (s *VendorService) Cities(ctx context.Context) ([]string, error) {
	return s.repo.ListCities(ctx)
}

// Import validates every vendor and then bulk-upserts them in one
// transaction. The first invalid row aborts the import before anything is
// written. Existing emails are updated when overwrite is set and skipped otherwise.
func (s *VendorService) Import(ctx context.Context, vendors []models.Vendor, overwrite bool) (models.BulkResult, error) {
	now := s.now()
	seen := make(map[string]int, len(vendors))
	for i := range vendors {
		if err := ValidateVendor(&vendors[i], now); err != nil {
			return models.BulkResult{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		if prev, dup := seen[vendors[i].Email]; dup {
			return models.BulkResult{}, fmt.Errorf("row %d: %w: email %s repeats row %d",
				i+1, models.ErrInvalid, vendors[i].Email, prev)
		}
		seen[vendors[i].Email] = i + 1
	}
	if len(vendors) == 0 {
		return models.BulkResult{}, nil
	}
	return s.repo.BulkUpsert(ctx, vendors, overwrite)
}

// AttachCV stores a PDF résumé for the vendor and records its path,
// replacing and removing any previously stored file.
func (s *VendorService) AttachCV(ctx context.Context, id int64, r io.Reader) (string, error) {
	if s.files == nil {
		return "", fmt.Errorf("%w: cv storage is not configured", models.ErrInvalid)
	}
	v, err := s.repo.GetVendor(ctx, id)
	if err != nil {
		return "", err
	}

	ref, err := s.files.Save(id, r)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetCV(ctx, id, ref); err != nil {
		_ = s.files.Remove(ref)
		return "", err
	}
	if v.CV != "" && v.CV != ref {
		_ = s.files.Remove(v.CV)
	}
	return ref, nil
}
