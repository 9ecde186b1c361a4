package entities

// RawAssessment is the shape returned by the AI provider before
// reconciliation. The score is a pointer so a missing field can be told
// apart from a literal zero.
type RawAssessment struct {
	ObjectID          string   `json:"object_id,omitempty"`
	HealthStatus      string   `json:"health_status"`
	UrgencyScore      *float64 `json:"urgency_score"`
	AISummary         string   `json:"ai_summary"`
	RecommendedAction string   `json:"recommended_action"`
}

// Assessment is the reconciled analysis result written onto an object.
// HealthStatus is always derived from UrgencyScore, never taken from the
// raw model output.
type Assessment struct {
	HealthStatus      HealthStatus `json:"health_status"`
	UrgencyScore      int          `json:"urgency_score"`
	AISummary         string       `json:"ai_summary"`
	RecommendedAction string       `json:"recommended_action"`
	HasDefects        bool         `json:"has_defects"`
	ConflictDetected  bool         `json:"conflict_detected"`
}

// AssessmentRequest is the context serialized into the model prompt for
// one object.
type AssessmentRequest struct {
	ObjectID         string                 `json:"object_id"`
	ObjectName       string                 `json:"object_name"`
	ObjectType       ObjectType             `json:"object_type"`
	Material         string                 `json:"material,omitempty"`
	InstallYear      int                    `json:"install_year,omitempty"`
	RiskScore        int                    `json:"risk_score"`
	ConflictDetected bool                   `json:"conflict_detected"`
	Diagnostics      []AssessmentDiagnostic `json:"diagnostics"`
}

// AssessmentDiagnostic is the compact per-record view sent to the model
type AssessmentDiagnostic struct {
	Method            string       `json:"method"`
	Date              string       `json:"date,omitempty"`
	DefectFound       bool         `json:"defect_found"`
	DefectDescription string       `json:"defect_description,omitempty"`
	QualityGrade      string       `json:"quality_grade,omitempty"`
	MLLabel           string       `json:"ml_label,omitempty"`
	Params            MethodParams `json:"params,omitempty"`
}
