package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ObjectEventType represents the type of object event
type ObjectEventType string

const (
	ObjectEventTypeAnalysisUpdate ObjectEventType = "analysis_update"
	ObjectEventTypePlanUpdate     ObjectEventType = "plan_update"
	ObjectEventTypeImport         ObjectEventType = "import"
)

// ObjectEvent represents a real-time update event for an object.
// The UI uses these only to trigger refetches, never for correctness.
type ObjectEvent struct {
	ID            string                 `json:"id"`
	ObjectID      string                 `json:"object_id"`
	EventType     ObjectEventType        `json:"event_type"`
	Timestamp     time.Time              `json:"timestamp"`
	ChangedFields map[string]interface{} `json:"changed_fields,omitempty"`
}

// NewObjectEvent creates a new object event
func NewObjectEvent(objectID string, eventType ObjectEventType, changedFields map[string]interface{}) *ObjectEvent {
	return &ObjectEvent{
		ID:            generateEventID(),
		ObjectID:      objectID,
		EventType:     eventType,
		Timestamp:     time.Now(),
		ChangedFields: changedFields,
	}
}

// generateEventID generates a unique event ID
func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(8)
}

// randomString generates a random string of specified length
func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based if crypto/rand fails
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
