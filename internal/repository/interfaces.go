package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/tunecheck/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a reading does not exist
var ErrNotFound = errors.New("reading not found")

// ReadingRepository defines the interface for tuning reading history
type ReadingRepository interface {
	Create(ctx context.Context, reading *models.Reading) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reading, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Reading, error)
}
