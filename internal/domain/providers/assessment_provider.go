package providers

import (
	"context"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

// AssessmentProvider defines the interface for AI health assessments
type AssessmentProvider interface {
	// AssessObject produces a raw assessment for a single object
	AssessObject(ctx context.Context, request *entities.AssessmentRequest) (*entities.RawAssessment, error)

	// AssessObjects produces raw assessments for several objects in one
	// model call, keyed by object ID
	AssessObjects(ctx context.Context, requests []*entities.AssessmentRequest) (map[string]*entities.RawAssessment, error)
}
