package repositories

import (
	"context"
	"time"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

// ObjectRepository defines the interface for object data operations
type ObjectRepository interface {
	// Create creates a new object
	Create(ctx context.Context, object *entities.Object) error

	// GetByID retrieves an object by ID
	GetByID(ctx context.Context, id string) (*entities.Object, error)

	// GetByIDs retrieves multiple objects by their IDs
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Object, error)

	// List retrieves objects with filters
	List(ctx context.Context, filter ObjectFilter) ([]*entities.Object, error)

	// Update updates an object's base attributes
	Update(ctx context.Context, object *entities.Object) error

	// UpdateAssessment writes the derived analysis fields onto an object
	UpdateAssessment(ctx context.Context, id string, assessment *entities.Assessment, analyzedAt time.Time) error

	// Delete deletes an object
	Delete(ctx context.Context, id string) error

	// CountByHealthStatus returns object counts grouped by health status.
	// Objects never analyzed are reported under the empty key.
	CountByHealthStatus(ctx context.Context) (map[string]int, error)
}

// ObjectFilter defines filters for listing objects
type ObjectFilter struct {
	Type         string
	HealthStatus string
	Limit        int
	Offset       int
}
