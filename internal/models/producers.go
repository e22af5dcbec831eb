package models

import (
	"time"
)

// AlertType is the category assigned by the upstream classifier
type AlertType string

const (
	AlertFall       AlertType = "fall"
	AlertMedication AlertType = "medication"
	AlertCognitive  AlertType = "cognitive"
	AlertEmotional  AlertType = "emotional"
	AlertSafety     AlertType = "safety"
	AlertInjury     AlertType = "injury"
	AlertChestPain  AlertType = "chest_pain"
	AlertConfusion  AlertType = "confusion"
)

// Alert is a health alert from the analysis pipeline (careops:alerts stream)
type Alert struct {
	ID          string    `json:"id"`
	FamilyID    string    `json:"family_id"`
	SubjectID   string    `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	PostalCode  string    `json:"postal_code,omitempty"`
	Type        AlertType `json:"type"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	RiskLevel   RiskLevel `json:"risk_level,omitempty"`
	AssigneeID  string    `json:"assignee_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task is a scheduled or ad-hoc care task (careops:tasks stream)
type Task struct {
	ID               string     `json:"id"`
	FamilyID         string     `json:"family_id"`
	SubjectID        string     `json:"subject_id"`
	SubjectName      string     `json:"subject_name"`
	PostalCode       string     `json:"postal_code,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Priority         Severity   `json:"priority"`
	AssigneeID       string     `json:"assignee_id,omitempty"`
	DueAt            *time.Time `json:"due_at,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes,omitempty"`
	ParentID         string     `json:"parent_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// MedicationReminder is a scheduled dose to verify
type MedicationReminder struct {
	ID             string    `json:"id"`
	FamilyID       string    `json:"family_id"`
	SubjectID      string    `json:"subject_id"`
	SubjectName    string    `json:"subject_name"`
	PostalCode     string    `json:"postal_code,omitempty"`
	MedicationName string    `json:"medication_name"`
	Dosage         string    `json:"dosage,omitempty"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	AssigneeID     string    `json:"assignee_id,omitempty"`
}

// CheckInKind selects the effort of a wellness check-in
type CheckInKind string

const (
	CheckInQuick    CheckInKind = "quick"
	CheckInStandard CheckInKind = "standard"
	CheckInFull     CheckInKind = "full"
)

// CheckIn is a scheduled wellness check-in
type CheckIn struct {
	ID          string      `json:"id"`
	FamilyID    string      `json:"family_id"`
	SubjectID   string      `json:"subject_id"`
	SubjectName string      `json:"subject_name"`
	PostalCode  string      `json:"postal_code,omitempty"`
	Kind        CheckInKind `json:"kind"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	AssigneeID  string      `json:"assignee_id,omitempty"`
}
