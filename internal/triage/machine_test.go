package triage

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newMachine(t *testing.T, pt models.ProtocolType) (*StateMachine, *models.FixedClock) {
	t.Helper()
	clock := models.NewFixedClock(testStart)
	m, err := New("alert-1", pt, Subject{ID: "elder-1", Name: "Mary", Location: "12 Oak St"}, clock, zap.NewNop())
	require.NoError(t, err)
	return m, clock
}

func record(t *testing.T, m *StateMachine, r Responses) {
	t.Helper()
	for k, v := range r {
		require.NoError(t, m.RecordResponse(k, v), k)
	}
}

func TestNew_UnknownProtocol(t *testing.T) {
	_, err := New("alert-1", "stroke", Subject{}, nil, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = New("", models.ProtocolFall, Subject{}, nil, nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestFall_UnconsciousShortCircuits(t *testing.T) {
	others := []Responses{
		{},
		{"severe_injury": "no", "pain_level_initial": 1},
		{"severe_injury": "yes", "pain_level_initial": 10},
	}
	for i, extra := range others {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			m, _ := newMachine(t, models.ProtocolFall)
			record(t, m, Responses{"consciousness": "no"})
			record(t, m, extra)

			assert.Equal(t, ToEmergency, m.GetNextStep())
			assert.True(t, m.HasCriticalFlags())
		})
	}
}

func TestFall_StableAdvancesToStepTwo(t *testing.T) {
	m, clock := newMachine(t, models.ProtocolFall)
	record(t, m, Responses{"consciousness": "yes", "severe_injury": "no", "pain_level_initial": 3})

	assert.False(t, m.HasCriticalFlags())
	assert.Equal(t, GoTo(2), m.GetNextStep())

	clock.Advance(time.Minute)
	step, state, err := m.ProceedToNextStep()
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, 2, step.Number)
	assert.Equal(t, "Rapid Assessment", step.Title)
	assert.Equal(t, models.TriageInProgress, state)
	assert.Equal(t, 2, m.CurrentStep().Number)
}

func TestFall_PainAtThresholdIsCritical(t *testing.T) {
	m, _ := newMachine(t, models.ProtocolFall)
	record(t, m, Responses{"consciousness": true, "severe_injury": false, "pain_level_initial": "8"})
	assert.Equal(t, ToEmergency, m.GetNextStep())
}

func TestProceed_IncompleteStepIsRejected(t *testing.T) {
	m, _ := newMachine(t, models.ProtocolFall)
	record(t, m, Responses{"consciousness": "yes"})

	ok, missing := m.ValidateCurrentStep()
	assert.False(t, ok)
	assert.Equal(t, []string{
		"Is there severe bleeding, head injury, or inability to move?",
		"On a scale of 1-10, how severe is the pain?",
	}, missing)

	_, state, err := m.ProceedToNextStep()
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, models.TriageInProgress, state)
	assert.Equal(t, 1, m.CurrentStep().Number)
}

func TestProceed_CriticalFlagBeatsIncompleteStep(t *testing.T) {
	m, clock := newMachine(t, models.ProtocolFall)
	record(t, m, Responses{"consciousness": "no"})

	clock.Advance(2 * time.Minute)
	step, state, err := m.ProceedToNextStep()
	require.NoError(t, err)
	assert.Nil(t, step)
	assert.Equal(t, models.TriageEmergency, state)

	snap := m.Snapshot()
	require.NotNil(t, snap.CompletedAt)
	assert.Equal(t, testStart.Add(2*time.Minute), *snap.CompletedAt)

	// absorbing
	_, _, err = m.ProceedToNextStep()
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.ErrorIs(t, m.RecordResponse("consciousness", "yes"), models.ErrInvalidTransition)
	assert.Equal(t, Next{Terminal: models.TriageEmergency}, m.GetNextStep())
}

func TestFall_StepTwoMobilityGoesToEmergency(t *testing.T) {
	m, _ := newMachine(t, models.ProtocolFall)
	record(t, m, Responses{"consciousness": "yes", "severe_injury": "no", "pain_level_initial": 2})
	_, _, err := m.ProceedToNextStep()
	require.NoError(t, err)

	record(t, m, Responses{
		"pain_location":       "Hip/Pelvis",
		"mobility_status":     "no",
		"current_medications": "no",
		"head_injury_check":   "no",
		"confusion_check":     "no",
	})
	assert.False(t, m.HasCriticalFlags(), "mobility is a transition, not a critical flag")

	_, state, err := m.ProceedToNextStep()
	require.NoError(t, err)
	assert.Equal(t, models.TriageEmergency, state)

	plan := m.GenerateActionPlan()
	assert.Equal(t, models.RecommendCall911, plan.Recommendation)
	assert.Contains(t, plan.CallScript.Script, "The person cannot move.")
}

func TestFall_LateCorrectionTripsEarlierFlag(t *testing.T) {
	m, _ := newMachine(t, models.ProtocolFall)
	record(t, m, Responses{"consciousness": "yes", "severe_injury": "no", "pain_level_initial": 2})
	_, _, err := m.ProceedToNextStep()
	require.NoError(t, err)

	require.NoError(t, m.RecordResponse("severe_injury", "yes"))
	assert.True(t, m.HasCriticalFlags())
	assert.Equal(t, ToEmergency, m.GetNextStep())
}

func TestFall_FullRunToComplete(t *testing.T) {
	m, clock := newMachine(t, models.ProtocolFall)
	steps := []Responses{
		{"consciousness": "yes", "severe_injury": "no", "pain_level_initial": 2},
		{"pain_location": "Leg/Knee", "mobility_status": "yes", "current_medications": "no", "head_injury_check": "no", "confusion_check": "no"},
		{"action_preference": "Monitor at Home"},
		{"action_taken": "Helped to chair, ice pack applied", "emergency_called": "no"},
	}

	var state models.TriageState
	for i, r := range steps {
		record(t, m, r)
		clock.Advance(time.Minute)
		var step *Step
		var err error
		step, state, err = m.ProceedToNextStep()
		require.NoError(t, err, "step %d", i+1)
		if i < 3 {
			require.NotNil(t, step)
			assert.Equal(t, i+2, step.Number)
		} else {
			assert.Nil(t, step)
		}
	}
	assert.Equal(t, models.TriageComplete, state)
	assert.Equal(t, []int{1, 2, 3, 4}, m.Snapshot().Visited)
	assert.NoError(t, ValidateResponses(models.ProtocolFall, m.Responses()))

	plan := m.GenerateActionPlan()
	assert.Equal(t, models.RecommendMonitor, plan.Recommendation)
	assert.Equal(t, 4, plan.UrgencyLevel)
	require.Len(t, plan.FollowUpTasks, 1)
	assert.Equal(t, "Monitor post-fall condition", plan.FollowUpTasks[0].Title)
	assert.Equal(t, "alert-1", plan.AlertID)
	assert.Equal(t, models.ProtocolFall, plan.ProtocolType)

	// fixed once the run ended
	clock.Advance(time.Hour)
	again := m.GenerateActionPlan()
	assert.Equal(t, plan, again)
	again.FollowUpTasks[0].Title = "changed"
	assert.Equal(t, "Monitor post-fall condition", m.GenerateActionPlan().FollowUpTasks[0].Title)
}

func TestRecordResponse_UnknownQuestion(t *testing.T) {
	m, _ := newMachine(t, models.ProtocolFall)
	assert.ErrorIs(t, m.RecordResponse("bleeding_severity", "Severe bleeding"), models.ErrValidation)
}

func TestEmptyTextAnswerIsMissing(t *testing.T) {
	m, _ := newMachine(t, models.ProtocolFall)
	record(t, m, Responses{"consciousness": "yes", "severe_injury": "no", "pain_level_initial": "  "})
	ok, missing := m.ValidateCurrentStep()
	assert.False(t, ok)
	assert.Len(t, missing, 1)
}

func TestEmergencyPlan(t *testing.T) {
	m, clock := newMachine(t, models.ProtocolFall)
	record(t, m, Responses{"consciousness": "no", "severe_injury": "yes"})

	plan := m.GenerateActionPlan()
	assert.Equal(t, models.RecommendCall911, plan.Recommendation)
	assert.Equal(t, 10, plan.UrgencyLevel)
	assert.Equal(t, "Immediate", plan.Timeframe)
	assert.Equal(t, clock.Now(), plan.GeneratedAt)

	require.NotNil(t, plan.CallScript)
	assert.Equal(t,
		"This is a medical emergency. An elderly person named Mary has fallen. The person is unconscious. "+
			"There are signs of severe injury. Please send an ambulance immediately to 12 Oak St.",
		plan.CallScript.Script)
	assert.Contains(t, plan.CallScript.KeyInformation, "Patient: Mary")
	assert.Contains(t, plan.CallScript.KeyInformation, "Conscious: No")
	assert.Contains(t, plan.CallScript.KeyInformation, "Pain level: unknown/10")
	assert.Contains(t, plan.CallScript.KeyInformation, "Head injury: Unknown")
	assert.Equal(t, "Critical - Unconscious", plan.CallScript.CurrentCondition)

	require.Len(t, plan.FollowUpTasks, 1)
	f := plan.FollowUpTasks[0]
	assert.Equal(t, "Follow up on emergency response", f.Title)
	assert.Equal(t, models.SeverityUrgent, f.Priority)
	assert.Equal(t, 1.0, f.DueInHours)
	assert.Len(t, f.Checklist, 3)
}

func TestProtocolPlans(t *testing.T) {
	tests := []struct {
		name    string
		pt      models.ProtocolType
		r       Responses
		want    models.Recommendation
		urgency int
	}{
		{"fall painful", models.ProtocolFall, Responses{"consciousness": "yes", "severe_injury": "no", "pain_level_initial": 6}, models.RecommendUrgentCare, 7},
		{"fall stable", models.ProtocolFall, Responses{"consciousness": "yes", "severe_injury": "no", "pain_level_initial": 2}, models.RecommendMonitor, 4},
		{"injury moderate bleeding", models.ProtocolInjury, Responses{"consciousness": "yes", "bleeding_severity": "Moderate bleeding", "breathing_status": "yes"}, models.RecommendUrgentCare, 6},
		{"injury minor", models.ProtocolInjury, Responses{"consciousness": "yes", "bleeding_severity": "Minor bleeding", "breathing_status": "yes", "pain_scale": 3}, models.RecommendMonitor, 3},
		{"chest pain mild", models.ProtocolChestPain, Responses{"consciousness": "yes", "chest_pain_severity": 3, "breathing_difficulty": "no", "sweating_nausea": "no"}, models.RecommendUrgentCare, 8},
		{"confusion med change", models.ProtocolConfusion, Responses{"responsiveness": "yes", "orientation_check": "Knows two", "physical_symptoms": "no", "medication_changes": "yes"}, models.RecommendUrgentCare, 7},
		{"confusion gradual", models.ProtocolConfusion, Responses{"responsiveness": "yes", "orientation_check": "Knows two", "physical_symptoms": "no", "confusion_onset": "Over days"}, models.RecommendNurseLine, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newMachine(t, tt.pt)
			record(t, m, tt.r)
			require.False(t, m.HasCriticalFlags())

			plan := m.GenerateActionPlan()
			assert.Equal(t, tt.want, plan.Recommendation)
			assert.Equal(t, tt.urgency, plan.UrgencyLevel)
			require.NotNil(t, plan.CallScript)
			assert.NotEmpty(t, plan.CallScript.Script)
			assert.NotEmpty(t, plan.FollowUpTasks)
		})
	}
}

func TestEmergencyCriticalFlagsPerProtocol(t *testing.T) {
	tests := []struct {
		pt models.ProtocolType
		r  Responses
	}{
		{models.ProtocolInjury, Responses{"bleeding_severity": "Severe bleeding"}},
		{models.ProtocolInjury, Responses{"breathing_status": "no"}},
		{models.ProtocolChestPain, Responses{"chest_pain_severity": 7}},
		{models.ProtocolChestPain, Responses{"sweating_nausea": "yes"}},
		{models.ProtocolConfusion, Responses{"orientation_check": "Knows none"}},
		{models.ProtocolConfusion, Responses{"responsiveness": false}},
	}
	for _, tt := range tests {
		m, _ := newMachine(t, tt.pt)
		record(t, m, tt.r)
		assert.Equal(t, ToEmergency, m.GetNextStep(), "%s %v", tt.pt, tt.r)
		assert.Equal(t, models.RecommendCall911, m.GenerateActionPlan().Recommendation)
	}
}

func TestChestPain_LongDurationEscalatesFromStepTwo(t *testing.T) {
	m, _ := newMachine(t, models.ProtocolChestPain)
	record(t, m, Responses{"consciousness": "yes", "chest_pain_severity": 4, "breathing_difficulty": "no", "sweating_nausea": "no"})
	_, _, err := m.ProceedToNextStep()
	require.NoError(t, err)

	record(t, m, Responses{"pain_duration": "More than 30 minutes"})
	assert.Equal(t, ToEmergency, m.GetNextStep())

	plan := m.GenerateActionPlan()
	assert.Equal(t, models.RecommendCall911, plan.Recommendation)
	assert.Contains(t, plan.CallScript.Script, "This may be a heart attack.")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	m, clock := newMachine(t, models.ProtocolFall)
	record(t, m, Responses{"consciousness": "yes", "severe_injury": "no", "pain_level_initial": 3})
	_, _, err := m.ProceedToNextStep()
	require.NoError(t, err)

	raw, err := json.Marshal(m.Snapshot())
	require.NoError(t, err)
	var snap models.TriageProtocol
	require.NoError(t, json.Unmarshal(raw, &snap))

	restored, err := Restore(&snap, clock, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, m.SessionID(), restored.SessionID())
	assert.Equal(t, "alert-1", restored.AlertID())
	assert.Equal(t, 2, restored.CurrentStep().Number)
	assert.Equal(t, models.TriageInProgress, restored.State())
	assert.False(t, restored.HasCriticalFlags())

	// json numbers come back as float64 and still evaluate
	require.NoError(t, restored.RecordResponse("pain_level_initial", snap.Responses["pain_level_initial"]))
	assert.Equal(t, 3.0, restored.Responses()["pain_level_initial"])

	require.NoError(t, restored.RecordResponse("head_injury_check", "yes"))
	assert.Equal(t, ToEmergency, restored.GetNextStep())
}

func TestRestore_Invalid(t *testing.T) {
	_, err := Restore(nil, nil, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = Restore(&models.TriageProtocol{ProtocolType: models.ProtocolFall, CurrentStep: 9, State: models.TriageInProgress}, nil, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = Restore(&models.TriageProtocol{ProtocolType: models.ProtocolFall, CurrentStep: 1, State: "paused"}, nil, nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestConcurrentResponses(t *testing.T) {
	m, _ := newMachine(t, models.ProtocolFall)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.RecordResponse("pain_level_initial", i%10)
			m.HasCriticalFlags()
			m.ValidateCurrentStep()
		}(i)
	}
	wg.Wait()
	_, ok := m.Responses()["pain_level_initial"]
	assert.True(t, ok)
}
