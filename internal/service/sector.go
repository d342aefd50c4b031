package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/venditori/internal/models"
)

// SectorRepository defines the persistence operations needed by SectorService.
type SectorRepository interface {
	AddSector(ctx context.Context, name string) (int64, error)
	ListSectors(ctx context.Context) ([]string, error)
}

// SectorService manages the sector list.
type SectorService struct {
	repo SectorRepository
}

// NewSectorService constructs a SectorService with the provided repository.
func NewSectorService(repo SectorRepository) *SectorService {
	return &SectorService{repo: repo}
}

// Add creates a sector. A duplicate name yields models.ErrConflict.
func (s *SectorService) Add(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		ve := &ValidationErrors{}
		ve.Add("settore", "is required")
		return 0, ve
	}
	id, err := s.repo.AddSector(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("add sector %q: %w", name, err)
	}
	return id, nil
}

// List returns every sector name alphabetically.
func (s *SectorService) List(ctx context.Context) ([]string, error) {
	return s.repo.ListSectors(ctx)
}

// StatsRepository computes dashboard figures.
type StatsRepository interface {
	Stats(ctx context.Context) (*models.Stats, error)
}

// StatsService exposes dashboard figures.
type StatsService struct {
	repo StatsRepository
}

// NewStatsService constructs a StatsService.
func NewStatsService(repo StatsRepository) *StatsService {
	return &StatsService{repo: repo}
}

// Stats returns the vendor totals grouped for the dashboard.
func (s *StatsService) Stats(ctx context.Context) (*models.Stats, error) {
	return s.repo.Stats(ctx)
}
