package models

import (
	"time"
)

// ProtocolType names a triage scenario
type ProtocolType string

const (
	ProtocolFall      ProtocolType = "fall"
	ProtocolInjury    ProtocolType = "injury"
	ProtocolChestPain ProtocolType = "chest_pain"
	ProtocolConfusion ProtocolType = "confusion"
)

// TriageState is where a protocol run stands
type TriageState string

const (
	TriageInProgress TriageState = "in_progress"
	TriageEmergency  TriageState = "emergency"
	TriageComplete   TriageState = "complete"
)

// IsTerminal reports whether no further steps are offered
func (s TriageState) IsTerminal() bool {
	return s == TriageEmergency || s == TriageComplete
}

// TriageProtocol is the persisted snapshot of one protocol run
type TriageProtocol struct {
	SessionID    string                 `json:"session_id"`
	AlertID      string                 `json:"alert_id"`
	ProtocolType ProtocolType           `json:"protocol_type"`
	SubjectID    string                 `json:"subject_id,omitempty"`
	SubjectName  string                 `json:"subject_name"`
	Location     string                 `json:"location,omitempty"`
	CurrentStep  int                    `json:"current_step"`
	State        TriageState            `json:"state"`
	Responses    map[string]interface{} `json:"responses"`
	Visited      []int                  `json:"visited"`
	StartedAt    time.Time              `json:"started_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// Recommendation is what the caregiver should do next
type Recommendation string

const (
	RecommendCall911     Recommendation = "call_911"
	RecommendUrgentCare  Recommendation = "urgent_care"
	RecommendNurseLine   Recommendation = "nurse_line"
	RecommendMonitor     Recommendation = "monitor"
	RecommendPrimaryCare Recommendation = "primary_care"
)

// CallScript is handed to the emergency dialer
type CallScript struct {
	Script           string   `json:"script"`
	KeyInformation   []string `json:"key_information"`
	CurrentCondition string   `json:"current_condition"`
}

// ActionPlan is immutable once generated for a protocol run
type ActionPlan struct {
	AlertID        string         `json:"alert_id"`
	ProtocolType   ProtocolType   `json:"protocol_type"`
	Recommendation Recommendation `json:"recommendation"`
	UrgencyLevel   int            `json:"urgency_level"` // 1..10
	Timeframe      string         `json:"timeframe"`
	CallScript     *CallScript    `json:"call_script,omitempty"`
	Checklist      []string       `json:"checklist,omitempty"`
	FollowUpTasks  []FollowUpTask `json:"follow_up_tasks"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// ChecklistItem is one line of a follow-up checklist. Optional lines may be
// left open when the follow-up is completed.
type ChecklistItem struct {
	Text      string `json:"text"`
	Required  bool   `json:"required"`
	Completed bool   `json:"completed"`
}

// FollowUpTask is a task template spawned by an outcome or action plan
type FollowUpTask struct {
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Priority         Severity        `json:"priority"`
	EstimatedMinutes int             `json:"estimated_minutes"`
	DueInHours       float64         `json:"due_in_hours"`
	Checklist        []ChecklistItem `json:"checklist,omitempty"`
}

// DueAt resolves the template's due time against now
func (f FollowUpTask) DueAt(now time.Time) time.Time {
	return now.Add(time.Duration(f.DueInHours * float64(time.Hour)))
}
