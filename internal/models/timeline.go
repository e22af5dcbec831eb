package models

import (
	"time"
)

// EventType is the closed set of timeline events
type EventType string

const (
	EventAlertCreated        EventType = "alert_created"
	EventTaskCreated         EventType = "task_created"
	EventTaskAssigned        EventType = "task_assigned"
	EventTaskCompleted       EventType = "task_completed"
	EventTriagePerformed     EventType = "triage_performed"
	EventEscalationTriggered EventType = "escalation_triggered"
	EventEmergencyCalled     EventType = "emergency_called"
	EventMedicationEvent     EventType = "medication_event"
	EventFollowUpCreated     EventType = "followup_created"
)

// Valid reports whether e belongs to the closed set
func (e EventType) Valid() bool {
	switch e {
	case EventAlertCreated, EventTaskCreated, EventTaskAssigned, EventTaskCompleted,
		EventTriagePerformed, EventEscalationTriggered, EventEmergencyCalled,
		EventMedicationEvent, EventFollowUpCreated:
		return true
	}
	return false
}

// EvidenceType is the kind of attached proof
type EvidenceType string

const (
	EvidencePhoto     EvidenceType = "photo"
	EvidenceVideo     EvidenceType = "video"
	EvidenceNotes     EvidenceType = "notes"
	EvidenceDocuments EvidenceType = "documents"
	EvidenceTimestamp EvidenceType = "timestamp"
)

// Evidence references externally stored proof
type Evidence struct {
	Type      EvidenceType `json:"type"`
	Reference string       `json:"reference"`
}

// TimelineEntry is an immutable audit record (timeline_entries table)
type TimelineEntry struct {
	ID           string                 `json:"id" db:"id"`
	FamilyID     string                 `json:"family_id" db:"family_id"`
	SubjectID    string                 `json:"subject_id" db:"subject_id"`
	Timestamp    time.Time              `json:"timestamp" db:"occurred_at"`
	EventType    EventType              `json:"event_type" db:"event_type"`
	Title        string                 `json:"title" db:"title"`
	Description  string                 `json:"description" db:"description"`
	Details      map[string]interface{} `json:"details" db:"details"` // JSONB
	RecordedBy   string                 `json:"recorded_by" db:"recorded_by"`
	Evidence     []Evidence             `json:"evidence" db:"evidence"`           // JSONB
	RelatedItems []string               `json:"related_items" db:"related_items"` // JSONB
	Immutable    bool                   `json:"immutable" db:"immutable"`
}

// Clone returns a deep copy so callers cannot reach stored state
func (e *TimelineEntry) Clone() *TimelineEntry {
	c := *e
	c.Details = cloneMap(e.Details)
	if e.Evidence != nil {
		c.Evidence = append([]Evidence(nil), e.Evidence...)
	}
	if e.RelatedItems != nil {
		c.RelatedItems = append([]string(nil), e.RelatedItems...)
	}
	return &c
}

// OutcomeResult is the coarse result of a unit of work
type OutcomeResult string

const (
	ResultSuccess OutcomeResult = "success"
	ResultPartial OutcomeResult = "partial"
	ResultFailed  OutcomeResult = "failed"
)

// TemplateType selects an outcome option list and rule table
type TemplateType string

const (
	TemplateMedication  TemplateType = "medication"
	TemplateSafety      TemplateType = "safety"
	TemplateAppointment TemplateType = "appointment"
	TemplateGeneral     TemplateType = "general"
)

// Outcome is created once per completed unit of work (outcomes table)
type Outcome struct {
	ID               string         `json:"id" db:"id"`
	ItemID           string         `json:"item_id" db:"item_id"`
	TemplateType     TemplateType   `json:"template_type" db:"template_type"`
	Option           string         `json:"option" db:"option"`
	Result           OutcomeResult  `json:"result" db:"result"`
	Notes            string         `json:"notes" db:"notes"`
	Evidence         []Evidence     `json:"evidence" db:"evidence"`
	RecordedBy       string         `json:"recorded_by" db:"recorded_by"`
	RecordedAt       time.Time      `json:"recorded_at" db:"recorded_at"`
	FollowUpRequired bool           `json:"follow_up_required" db:"follow_up_required"`
	FollowUps        []FollowUpTask `json:"follow_ups" db:"follow_ups"` // JSONB
	NextCheckIn      *time.Time     `json:"next_check_in,omitempty" db:"next_check_in"`
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
