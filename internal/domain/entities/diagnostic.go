package entities

import (
	"strings"
	"time"
)

// Method represents a diagnostic inspection method code
type Method string

const (
	MethodMFL Method = "MFL" // magnetic flux leakage
	MethodTFI Method = "TFI" // transverse field inspection
	MethodUZT Method = "UZT" // ultrasonic thickness gauging
	MethodUZK Method = "UZK" // ultrasonic flaw detection
	MethodRGK Method = "RGK" // radiographic
	MethodMPK Method = "MPK" // magnetic particle
	MethodVIK Method = "VIK" // visual inspection
	MethodTVK Method = "TVK" // video (remote camera) inspection
	MethodPVK Method = "PVK" // penetrant (capillary)
	MethodVBR Method = "VBR" // vibration monitoring
	MethodGEO Method = "GEO" // geodetic positioning survey
)

// Methods lists all known method codes
var Methods = []Method{
	MethodMFL, MethodTFI, MethodUZT, MethodUZK, MethodRGK, MethodMPK,
	MethodVIK, MethodTVK, MethodPVK, MethodVBR, MethodGEO,
}

// ParseMethod parses a method code string
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// IsInternal reports whether the method is sensitive to internal defects
func (m Method) IsInternal() bool {
	switch m {
	case MethodMFL, MethodUZT, MethodRGK, MethodTFI:
		return true
	}
	return false
}

// IsSurface reports whether the method inspects the outer surface only
func (m Method) IsSurface() bool {
	switch m {
	case MethodVIK, MethodTVK, MethodPVK:
		return true
	}
	return false
}

// QualityGrade is the ordered categorical inspection outcome.
// Values are kept as imported from inspection reports.
type QualityGrade string

const (
	GradeSatisfactory QualityGrade = "удовлетворительно"
	GradeAcceptable   QualityGrade = "допустимо"
	GradeNeedsAction  QualityGrade = "требует принятия мер"
	GradeUnacceptable QualityGrade = "недопустимо"
)

// ParseQualityGrade normalizes and parses a quality grade string.
/// An empty input is valid: not every record carries a grade.
func ParseQualityGrade(s string) (QualityGrade, bool) {
	g := QualityGrade(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case "", GradeSatisfactory, GradeAcceptable, GradeNeedsAction, GradeUnacceptable:
		return g, true
	}
	return "", false
}

// MLLabel is the coarse precomputed risk bucket attached to a record,
// distinct from the LLM-derived urgency score.
type MLLabel string

const (
	MLLabelNormal MLLabel = "normal"
	MLLabelMedium MLLabel = "medium"
	MLLabelHigh   MLLabel = "high"
)

// ParseMLLabel normalizes and parses an ML label string.
// An empty input is valid: the label is optional.
func ParseMLLabel(s string) (MLLabel, bool) {
	l := MLLabel(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case "", MLLabelNormal, MLLabelMedium, MLLabelHigh:
		return l, true
	}
	return "", false
}

// Diagnostic represents one inspection event for an object.
// Records are immutable once created except through re-import.
type Diagnostic struct {
	ID       string `json:"id" db:"id"`
	ObjectID string `json:"object_id" db:"object_id"`
	Method   Method `json:"method" db:"method"`

	// InspectionDate is kept as imported; CSV sources are messy and some
	// records carry dates the parser cannot make sense of. Use
	// InspectionTime for a parsed value.
	InspectionDate string `json:"inspection_date" db:"inspection_date"`

	Param1 *float64 `json:"param1,omitempty" db:"param1"`
	Param2 *float64 `json:"param2,omitempty" db:"param2"`
	Param3 *float64 `json:"param3,omitempty" db:"param3"`

	DefectFound       bool         `json:"defect_found" db:"defect_found"`
	DefectDescription string       `json:"defect_description,omitempty" db:"defect_description"`
	QualityGrade      QualityGrade `json:"quality_grade,omitempty" db:"quality_grade"`
	MLLabel           MLLabel      `json:"ml_label,omitempty" db:"ml_label"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var inspectionDateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// InspectionTime parses the inspection date. The second return value is
// false when the stored date cannot be parsed.
func (d *Diagnostic) InspectionTime() (time.Time, bool) {
	raw := strings.TrimSpace(d.InspectionDate)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range inspectionDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EffectiveTime returns the inspection date when parsable, falling back to
// the record's update and creation timestamps.
func (d *Diagnostic) EffectiveTime() time.Time {
	if t, ok := d.InspectionTime(); ok {
		return t
	}
	if !d.UpdatedAt.IsZero() {
		return d.UpdatedAt
	}
	return d.CreatedAt
}
