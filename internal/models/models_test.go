package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionError_Is(t *testing.T) {
	err := error(&TransitionError{From: "completed", To: "new"})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Contains(t, err.Error(), "allowed: none")

	err = &TransitionError{From: "new", To: "completed", Allowed: []string{"in_progress", "snoozed"}}
	assert.Contains(t, err.Error(), "in_progress, snoozed")

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "new", te.From)
}

func TestValidationError_Is(t *testing.T) {
	err := error(NewValidationError("a missing", "b missing"))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "validation failed: a missing; b missing", err.Error())
}

func TestSeverity_Rank(t *testing.T) {
	assert.Less(t, SeverityUrgent.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.False(t, Severity("critical").Valid())
}

func TestEscalationPlan_DepthAndValidate(t *testing.T) {
	terminal := &EscalationPlan{Message: "needs professional care", NeedsProfessionalCare: true}
	assert.Equal(t, 1, terminal.Depth())
	assert.NoError(t, terminal.Validate())

	plan := &EscalationPlan{
		EscalateTo:     []FamilyMember{{ID: "m1"}},
		Message:        "tier 1",
		TimeoutMinutes: 15,
		Next: &EscalationPlan{
			EscalateTo:     []FamilyMember{{ID: "m2"}},
			Message:        "tier 2",
			TimeoutMinutes: 10,
		},
	}
	assert.Equal(t, 2, plan.Depth())
	assert.NoError(t, plan.Validate())
}

func TestEscalationPlan_ValidateProblems(t *testing.T) {
	plan := &EscalationPlan{
		EscalateTo: []FamilyMember{{ID: "m1"}},
		Next:       &EscalationPlan{Message: "x", Next: &EscalationPlan{Message: "y", NeedsProfessionalCare: true}},
	}
	err := plan.Validate()
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Problems, "tier 1: message is required")
	assert.Contains(t, ve.Problems, "tier 1: timeout must be positive")
	assert.Contains(t, ve.Problems, "tier 2: empty escalation list must flag professional care")
	assert.Contains(t, ve.Problems, "tier 2: terminal tier cannot have a next tier")
}

func TestEscalationPlan_Cycle(t *testing.T) {
	a := &EscalationPlan{EscalateTo: []FamilyMember{{ID: "m1"}}, Message: "a", TimeoutMinutes: 5}
	b := &EscalationPlan{EscalateTo: []FamilyMember{{ID: "m2"}}, Message: "b", TimeoutMinutes: 5, Next: a}
	a.Next = b

	assert.Equal(t, -1, a.Depth())
	assert.ErrorIs(t, a.Validate(), ErrValidation)
}

func TestTimelineEntry_CloneIsDeep(t *testing.T) {
	entry := &TimelineEntry{
		ID:           "e1",
		Details:      map[string]interface{}{"nested": map[string]interface{}{"k": "v"}},
		Evidence:     []Evidence{{Type: EvidencePhoto, Reference: "s3://x"}},
		RelatedItems: []string{"i1"},
	}
	c := entry.Clone()
	c.Details["nested"].(map[string]interface{})["k"] = "changed"
	c.Evidence[0].Reference = "changed"
	c.RelatedItems[0] = "changed"

	assert.Equal(t, "v", entry.Details["nested"].(map[string]interface{})["k"])
	assert.Equal(t, "s3://x", entry.Evidence[0].Reference)
	assert.Equal(t, "i1", entry.RelatedItems[0])
}

func TestQueueItem_Clone(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	item := &QueueItem{ID: "q1", AssignedAt: &at}
	c := item.Clone()
	*c.AssignedAt = at.Add(time.Hour)
	assert.Equal(t, at, *item.AssignedAt)
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := NewFixedClock(start)
	assert.Equal(t, start, clock.Now())
	clock.Advance(20 * time.Minute)
	assert.Equal(t, start.Add(20*time.Minute), clock.Now())
}

func TestFollowUpTask_DueAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(30*time.Minute), FollowUpTask{DueInHours: 0.5}.DueAt(now))
}
