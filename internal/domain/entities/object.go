package entities

import (
	"time"
)

// ObjectType represents the kind of physical asset being tracked
type ObjectType string

const (
	ObjectTypeCrane           ObjectType = "crane"
	ObjectTypeCompressor      ObjectType = "compressor"
	ObjectTypePipelineSection ObjectType = "pipeline_section"
)

// ParseObjectType parses an object type string
func ParseObjectType(s string) (ObjectType, bool) {
	switch ObjectType(s) {
	case ObjectTypeCrane, ObjectTypeCompressor, ObjectTypePipelineSection:
		return ObjectType(s), true
	}
	return "", false
}

// HealthStatus represents the derived health state of an object.
// It is always derived from the urgency score, never set directly.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusWarning  HealthStatus = "WARNING"
	HealthStatusCritical HealthStatus = "CRITICAL"
)

// Urgency score bands. Score is authoritative; status is derived.
const (
	okScoreMax      = 25
	warningScoreMax = 65
)

// HealthStatusForScore derives the health status from an urgency score.
// 0-25 OK, 26-65 WARNING, 66-100 CRITICAL.
func HealthStatusForScore(score int) HealthStatus {
	switch {
	case score <= okScoreMax:
		return HealthStatusOK
	case score <= warningScoreMax:
		return HealthStatusWarning
	default:
		return HealthStatusCritical
	}
}

// Object represents a physical pipeline infrastructure asset
type Object struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Type        ObjectType `json:"type" db:"object_type"`
	Material    string     `json:"material" db:"material"`
	InstallYear int        `json:"install_year" db:"install_year"`
	Latitude    float64    `json:"latitude" db:"latitude"`
	Longitude   float64    `json:"longitude" db:"longitude"`

	// Derived fields, written only by the analysis write-back step.
	// Nil until the object has been analyzed at least once.
	HealthStatus      *HealthStatus `json:"health_status,omitempty" db:"health_status"`
	UrgencyScore      *int          `json:"urgency_score,omitempty" db:"urgency_score"`
	AISummary         string        `json:"ai_summary,omitempty" db:"ai_summary"`
	RecommendedAction string        `json:"recommended_action,omitempty" db:"recommended_action"`
	HasDefects        bool          `json:"has_defects" db:"has_defects"`
	LastAnalysisAt    *time.Time    `json:"last_analysis_at,omitempty" db:"last_analysis_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Analyzed reports whether the object carries an assessment
func (o *Object) Analyzed() bool {
	return o.UrgencyScore != nil
}
