package repositories

import (
	"context"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

// DiagnosticRepository defines the interface for diagnostic record operations
type DiagnosticRepository interface {
	// Create creates a single diagnostic record
	Create(ctx context.Context, diagnostic *entities.Diagnostic) error

	// CreateBatch creates multiple diagnostic records in one statement
	CreateBatch(ctx context.Context, diagnostics []*entities.Diagnostic) error

	// GetByID retrieves a diagnostic by ID
	GetByID(ctx context.Context, id string) (*entities.Diagnostic, error)

	// ListByObject retrieves all diagnostics for one object
	ListByObject(ctx context.Context, objectID string) ([]*entities.Diagnostic, error)

	// ListByObjects retrieves diagnostics for a set of objects, keyed by object ID.
	// Objects with no records are absent from the result.
	ListByObjects(ctx context.Context, objectIDs []string) (map[string][]*entities.Diagnostic, error)
}
