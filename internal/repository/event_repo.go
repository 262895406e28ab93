package repository

import (
	"context"

	"github.com/user/prospector/internal/entity"
)

// EventPublisher announces finished harvests to other services.
type EventPublisher interface {
	HarvestCompleted(ctx context.Context, jobID string, report *entity.HarvestReport) error
	Close() error
}
