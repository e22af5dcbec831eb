package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning collects every empirically chosen threshold of the decision engine.
// Fields absent from a YAML override keep their defaults.
type Tuning struct {
	Priority   PriorityTuning   `yaml:"priority"`
	Assignment AssignmentTuning `yaml:"assignment"`
	Escalation EscalationTuning `yaml:"escalation"`
	Workload   WorkloadTuning   `yaml:"workload"`
	Stress     StressTuning     `yaml:"stress"`

	// Same-type alerts for the same subject inside this window are suppressed
	DuplicateAlertWindowMinutes int `yaml:"duplicate_alert_window_minutes"`

	// Completed items stay queryable in the queue this long before eviction
	CompletedRetentionMinutes int `yaml:"completed_retention_minutes"`
}

// PriorityWeights must sum to 1
type PriorityWeights struct {
	Severity   float64 `yaml:"severity"`
	TimeToDue  float64 `yaml:"time_to_due"`
	Risk       float64 `yaml:"risk"`
	Unassigned float64 `yaml:"unassigned"`
	Escalation float64 `yaml:"escalation"`
	Type       float64 `yaml:"type"`
}

// PriorityTuning drives the queue score.
type PriorityTuning struct {
	Weights PriorityWeights `yaml:"weights"`

	OverdueBase          float64 `yaml:"overdue_base"`
	OverdueBonusPerMin   float64 `yaml:"overdue_bonus_per_minute"`
	OverdueBonusCap      float64 `yaml:"overdue_bonus_cap"`
	WithinHourBase       float64 `yaml:"within_hour_base"`
	WithinHourSpread     float64 `yaml:"within_hour_spread"`
	WithinDayBase        float64 `yaml:"within_day_base"`
	WithinDaySpread      float64 `yaml:"within_day_spread"`
	LaterScore           float64 `yaml:"later_score"`
	EscalationStepPoints float64 `yaml:"escalation_step_points"`
}

// AssignmentWeights must sum to 1
type AssignmentWeights struct {
	Proximity    float64 `yaml:"proximity"`
	Skill        float64 `yaml:"skill"`
	Availability float64 `yaml:"availability"`
	Role         float64 `yaml:"role"`
	Performance  float64 `yaml:"performance"`
}

type AssignmentTuning struct {
	Weights            AssignmentWeights `yaml:"weights"`
	MaxAlternates      int               `yaml:"max_alternates"`
	ReasoningThreshold float64           `yaml:"reasoning_threshold"`
	NeutralProximity   float64           `yaml:"neutral_proximity"`
	ColdStartScore     float64           `yaml:"cold_start_performance"`
	OnCallBonus        float64           `yaml:"on_call_bonus"`
	WorkloadPenaltyCap float64           `yaml:"workload_penalty_cap"`
	WorkloadPerTask    float64           `yaml:"workload_penalty_per_task"`
	ExtraSkillBonus    float64           `yaml:"extra_skill_bonus"`
}

// EscalationTuning holds per-severity response timeouts in minutes
type EscalationTuning struct {
	UrgentMinutes     int `yaml:"urgent_minutes"`
	HighMinutes       int `yaml:"high_minutes"`
	MediumMinutes     int `yaml:"medium_minutes"`
	LowMinutes        int `yaml:"low_minutes"`
	NestedFloorMinute int `yaml:"nested_floor_minutes"`
	MaxTiers          int `yaml:"max_tiers"`
}

// WorkloadTuning drives burden scoring
type WorkloadTuning struct {
	TaskWeight        float64 `yaml:"task_weight"`
	CompletionWeight  float64 `yaml:"completion_weight"`
	NightAlertWeight  float64 `yaml:"night_alert_weight"`
	CompletionPoints  float64 `yaml:"completion_points"`
	NightAlertPoints  float64 `yaml:"night_alert_points"`
	ReduceThreshold   float64 `yaml:"reduce_threshold"`
	CanTakeMoreCutoff float64 `yaml:"can_take_more_cutoff"`
}

// StressTuning decides when the queue suggests stress mode
type StressTuning struct {
	UrgentItems  int `yaml:"urgent_items"`
	OverdueItems int `yaml:"overdue_items"`
}

// DefaultTuning returns the built-in thresholds
func DefaultTuning() *Tuning {
	return &Tuning{
		Priority: PriorityTuning{
			Weights: PriorityWeights{
				Severity:   0.35,
				TimeToDue:  0.25,
				Risk:       0.15,
				Unassigned: 0.10,
				Escalation: 0.10,
				Type:       0.05,
			},
			OverdueBase:          100,
			OverdueBonusPerMin:   0.5,
			OverdueBonusCap:      50,
			WithinHourBase:       85,
			WithinHourSpread:     10,
			WithinDayBase:        40,
			WithinDaySpread:      20,
			LaterScore:           10,
			EscalationStepPoints: 25,
		},
		Assignment: AssignmentTuning{
			Weights: AssignmentWeights{
				Proximity:    0.30,
				Skill:        0.25,
				Availability: 0.25,
				Role:         0.15,
				Performance:  0.05,
			},
			MaxAlternates:      3,
			ReasoningThreshold: 80,
			NeutralProximity:   50,
			ColdStartScore:     70,
			OnCallBonus:        30,
			WorkloadPenaltyCap: 30,
			WorkloadPerTask:    6,
			ExtraSkillBonus:    5,
		},
		Escalation: EscalationTuning{
			UrgentMinutes:     15,
			HighMinutes:       60,
			MediumMinutes:     240,
			LowMinutes:        1440,
			NestedFloorMinute: 10,
			MaxTiers:          2,
		},
		Workload: WorkloadTuning{
			TaskWeight:        0.4,
			CompletionWeight:  0.3,
			NightAlertWeight:  0.3,
			CompletionPoints:  10,
			NightAlertPoints:  20,
			ReduceThreshold:   70,
			CanTakeMoreCutoff: 30,
		},
		Stress: StressTuning{
			UrgentItems:  3,
			OverdueItems: 5,
		},
		DuplicateAlertWindowMinutes: 30,
		CompletedRetentionMinutes:   24 * 60,
	}
}

// LoadTuning reads a YAML file on top of the defaults and validates the result
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}
	return ParseTuning(data)
}

// ParseTuning decodes YAML on top of the defaults
func ParseTuning(data []byte) (*Tuning, error) {
	t := DefaultTuning()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate rejects weight sets that do not sum to 1 and non-positive timeouts
func (t *Tuning) Validate() error {
	w := t.Priority.Weights
	if !sumsToOne(w.Severity, w.TimeToDue, w.Risk, w.Unassigned, w.Escalation, w.Type) {
		return fmt.Errorf("priority weights must sum to 1")
	}
	a := t.Assignment.Weights
	if !sumsToOne(a.Proximity, a.Skill, a.Availability, a.Role, a.Performance) {
		return fmt.Errorf("assignment weights must sum to 1")
	}
	wl := t.Workload
	if !sumsToOne(wl.TaskWeight, wl.CompletionWeight, wl.NightAlertWeight) {
		return fmt.Errorf("workload weights must sum to 1")
	}
	e := t.Escalation
	if e.UrgentMinutes <= 0 || e.HighMinutes <= 0 || e.MediumMinutes <= 0 || e.LowMinutes <= 0 {
		return fmt.Errorf("escalation timeouts must be positive")
	}
	if e.MaxTiers < 1 {
		return fmt.Errorf("escalation max_tiers must be at least 1")
	}
	if wl.CanTakeMoreCutoff >= wl.ReduceThreshold {
		return fmt.Errorf("workload can_take_more_cutoff must be below reduce_threshold")
	}
	if t.CompletedRetentionMinutes <= 0 {
		return fmt.Errorf("completed_retention_minutes must be positive")
	}
	if t.Assignment.MaxAlternates < 0 {
		return fmt.Errorf("assignment max_alternates must not be negative")
	}
	return nil
}

func sumsToOne(values ...float64) bool {
	var sum float64
	for _, v := range values {
		if v < 0 {
			return false
		}
		sum += v
	}
	return math.Abs(sum-1) < 1e-6
}
