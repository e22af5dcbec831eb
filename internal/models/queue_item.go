package models

import (
	"time"
)

// ItemType is the origin of a queue item
type ItemType string

const (
	ItemTypeAlert      ItemType = "alert"
	ItemTypeTask       ItemType = "task"
	ItemTypeMedication ItemType = "medication"
	ItemTypeCheckIn    ItemType = "checkin"
	ItemTypeFollowUp   ItemType = "followup"
)

// Valid reports whether t is a known item type
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeAlert, ItemTypeTask, ItemTypeMedication, ItemTypeCheckIn, ItemTypeFollowUp:
		return true
	}
	return false
}

// Severity is the upstream urgency label
type Severity string

const (
	SeverityUrgent Severity = "urgent"
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities for sorting; lower is more severe
func (s Severity) Rank() int {
	switch s {
	case SeverityUrgent:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	return s.Rank() < 4
}

// Status is the queue item lifecycle state
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusSnoozed    Status = "snoozed"
	StatusEscalated  Status = "escalated"
)

// RiskLevel is the subject's standing risk classification
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// QueueItem is one unit of caregiving work (queue_items table)
type QueueItem struct {
	ID                string     `json:"id" db:"id"`
	Type              ItemType   `json:"type" db:"item_type"`
	Category          string     `json:"category,omitempty" db:"category"` // alert type: fall, medication, cognitive, ...
	Severity          Severity   `json:"severity" db:"severity"`
	Title             string     `json:"title" db:"title"`
	Description       string     `json:"description,omitempty" db:"description"`
	FamilyID          string     `json:"family_id" db:"family_id"`
	SubjectID         string     `json:"subject_id" db:"subject_id"`
	SubjectName       string     `json:"subject_name" db:"subject_name"`
	SubjectPostalCode string     `json:"subject_postal_code,omitempty" db:"subject_postal_code"`
	AssigneeID        string     `json:"assignee_id,omitempty" db:"assignee_id"`
	AssignedAt        *time.Time `json:"assigned_at,omitempty" db:"assigned_at"`
	DueAt             time.Time  `json:"due_at" db:"due_at"`
	EstimatedMinutes  int        `json:"estimated_minutes" db:"estimated_minutes"`
	Status            Status     `json:"status" db:"status"`
	RiskLevel         RiskLevel  `json:"risk_level" db:"risk_level"`
	EscalationCount   int        `json:"escalation_count" db:"escalation_count"`
	SourceID          string     `json:"source_id,omitempty" db:"source_id"`
	SuggestedAction   string     `json:"suggested_action,omitempty" db:"suggested_action"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`

	// Priority is derived on every read and never persisted
	Priority int `json:"priority" db:"-"`
}

// IsAssigned reports whether someone owns the item
func (q *QueueItem) IsAssigned() bool {
	return q.AssigneeID != ""
}

// IsOpen reports whether the item still needs work
func (q *QueueItem) IsOpen() bool {
	return q.Status != StatusCompleted
}

// Clone returns a copy that shares no pointers with q
func (q *QueueItem) Clone() *QueueItem {
	c := *q
	if q.AssignedAt != nil {
		at := *q.AssignedAt
		c.AssignedAt = &at
	}
	return &c
}

// QueueFilters are ANDed together; zero values disable a filter
type QueueFilters struct {
	UrgentOnly       bool       `json:"urgent_only"`
	DueToday         bool       `json:"due_today"`
	AssignedToMe     bool       `json:"assigned_to_me"`
	Types            []ItemType `json:"types,omitempty"`
	Categories       []string   `json:"categories,omitempty"` // medication, cognitive, safety
	IncludeCompleted bool       `json:"include_completed"`
}

// StressSignal summarizes queue pressure
type StressSignal struct {
	UrgentCount  int  `json:"urgent_count"`
	OverdueCount int  `json:"overdue_count"`
	OpenCount    int  `json:"open_count"`
	Suggest      bool `json:"suggest_stress_mode"`
}
