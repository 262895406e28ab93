package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/user/prospector/internal/entity"
)

// ProspectRepository is the record store of harvested prospects.
type ProspectRepository interface {
	// Exists reports whether any non-empty key matches a stored prospect.
	// Email-shaped values never match the site column and vice versa.
	Exists(ctx context.Context, keys entity.MatchKeys) (bool, error)
	// Create stores a new prospect. A uniqueness violation is returned as a
	// *DuplicateConstraintError.
	Create(ctx context.Context, p *entity.Prospect) error
	// Query returns one page of prospects, newest first.
	Query(ctx context.Context, filters entity.ProspectFilters, page entity.PageRequest) (*entity.ProspectPage, error)
	// FindByID returns ErrNotFound for unknown ids.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Prospect, error)
	// UpdateStatus moves a prospect to another pipeline stage.
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ProspectStatus) error
	Ping(ctx context.Context) error
	Close() error
}
