package db

import (
	"context"
	"errors"

	"github.com/AI2HU/sqlite2pg/internal/models"
)

// ErrNotFound is returned when an operation id is unknown
var ErrNotFound = errors.New("operation not found")

// Journal records every operation the service runs
type Journal interface {
	// Connection management
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error

	// Operation history
	RecordOperation(ctx context.Context, op *models.Operation) error
	GetOperation(ctx context.Context, id string) (*models.Operation, error)
	ListOperations(ctx context.Context, limit int) ([]*models.Operation, error)
}
