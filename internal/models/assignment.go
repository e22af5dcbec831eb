package models

import (
	"fmt"
)

// ScoreBreakdown holds the per-factor scores (0..100) and the weighted total
type ScoreBreakdown struct {
	Proximity    float64 `json:"proximity"`
	Skill        float64 `json:"skill"`
	Availability float64 `json:"availability"`
	Role         float64 `json:"role"`
	Performance  float64 `json:"performance"`
	Total        float64 `json:"total"`
}

// ScoredCandidate pairs a caregiver with its score
type ScoredCandidate struct {
	Member    FamilyMember   `json:"member"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// AssignmentRecommendation is produced fresh per request and never persisted
type AssignmentRecommendation struct {
	ItemID                   string            `json:"item_id"`
	Recommended              FamilyMember      `json:"recommended"`
	Confidence               int               `json:"confidence"`
	Reasoning                []string          `json:"reasoning"`
	Alternates               []ScoredCandidate `json:"alternates"`
	EstimatedResponseMinutes int               `json:"estimated_response_minutes"`
}

// EscalationReason explains why a plan was created
type EscalationReason string

const (
	EscalationNoResponse EscalationReason = "no_response"
	EscalationDeclined   EscalationReason = "declined"
	EscalationEmergency  EscalationReason = "emergency"
	EscalationManual     EscalationReason = "manual"
)

// EscalationPlan is one tier of a finite escalation chain
type EscalationPlan struct {
	ItemID                string           `json:"item_id"`
	Reason                EscalationReason `json:"reason"`
	EscalateTo            []FamilyMember   `json:"escalate_to"`
	Message               string           `json:"message"`
	TimeoutMinutes        int              `json:"timeout_minutes"`
	NeedsProfessionalCare bool             `json:"needs_professional_care"`
	Next                  *EscalationPlan  `json:"next_level_escalation,omitempty"`
}

// IsTerminal reports whether the plan gives up on family caregivers
func (p *EscalationPlan) IsTerminal() bool {
	return len(p.EscalateTo) == 0
}

// Depth counts tiers including p. A cyclic chain returns -1.
func (p *EscalationPlan) Depth() int {
	seen := make(map[*EscalationPlan]bool)
	depth := 0
	for cur := p; cur != nil; cur = cur.Next {
		if seen[cur] {
			return -1
		}
		seen[cur] = true
		depth++
	}
	return depth
}

// Validate checks every tier of the chain
func (p *EscalationPlan) Validate() error {
	var problems []string
	if p.Depth() < 0 {
		return &ValidationError{Problems: []string{"escalation chain contains a cycle"}}
	}
	tier := 1
	for cur := p; cur != nil; cur = cur.Next {
		if cur.Message == "" {
			problems = append(problems, fmt.Sprintf("tier %d: message is required", tier))
		}
		if cur.IsTerminal() {
			if !cur.NeedsProfessionalCare {
				problems = append(problems, fmt.Sprintf("tier %d: empty escalation list must flag professional care", tier))
			}
			if cur.Next != nil {
				problems = append(problems, fmt.Sprintf("tier %d: terminal tier cannot have a next tier", tier))
			}
		} else if cur.TimeoutMinutes <= 0 {
			problems = append(problems, fmt.Sprintf("tier %d: timeout must be positive", tier))
		}
		tier++
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// WorkloadRecommendation is the fairness signal per caregiver
type WorkloadRecommendation string

const (
	WorkloadReduce      WorkloadRecommendation = "reduce"
	WorkloadBalanced    WorkloadRecommendation = "balanced"
	WorkloadCanTakeMore WorkloadRecommendation = "can_take_more"
)

// WorkloadAnalysis is the burden report for one caregiver
type WorkloadAnalysis struct {
	MemberID       string                 `json:"member_id"`
	Name           string                 `json:"name"`
	ActiveTasks    int                    `json:"active_tasks"`
	CompletedWeek  int                    `json:"completed_this_week"`
	NightAlerts    int                    `json:"night_alerts"`
	BurdenScore    float64                `json:"burden_score"`
	Recommendation WorkloadRecommendation `json:"recommendation"`
}
