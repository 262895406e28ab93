package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
)

var ErrInvalidStatus = errors.New("unknown prospect status")

// ProspectManager is the read and pipeline side of stored prospects.
type ProspectManager interface {
	Query(ctx context.Context, filters entity.ProspectFilters, page entity.PageRequest) (*entity.ProspectPage, error)
	Find(ctx context.Context, id uuid.UUID) (*entity.Prospect, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ProspectStatus) (*entity.Prospect, error)
}

type prospectManagerUseCase struct {
	store repository.ProspectRepository
}

func NewProspectManager(store repository.ProspectRepository) ProspectManager {
	return &prospectManagerUseCase{store: store}
}

func (uc *prospectManagerUseCase) Query(ctx context.Context, filters entity.ProspectFilters, page entity.PageRequest) (*entity.ProspectPage, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filters.Status)
	}
	return uc.store.Query(ctx, filters, page.Normalize())
}

func (uc *prospectManagerUseCase) Find(ctx context.Context, id uuid.UUID) (*entity.Prospect, error) {
	return uc.store.FindByID(ctx, id)
}

func (uc *prospectManagerUseCase) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ProspectStatus) (*entity.Prospect, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := uc.store.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return uc.store.FindByID(ctx, id)
}
