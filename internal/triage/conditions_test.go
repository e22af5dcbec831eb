package triage

import (
	"encoding/json"
	"testing"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionEval(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		r    Responses
		want bool
	}{
		{"yes bool", Yes("a"), Responses{"a": true}, true},
		{"yes string", Yes("a"), Responses{"a": "Yes"}, true},
		{"yes short", Yes("a"), Responses{"a": "y"}, true},
		{"yes on no", Yes("a"), Responses{"a": false}, false},
		{"no string", No("a"), Responses{"a": "no"}, true},
		{"no missing", No("a"), Responses{}, false},
		{"yes missing", Yes("a"), Responses{}, false},
		{"no garbage", No("a"), Responses{"a": "maybe"}, false},
		{"at least int", AtLeast("p", 8), Responses{"p": 8}, true},
		{"at least float", AtLeast("p", 8), Responses{"p": 7.5}, false},
		{"at least string", AtLeast("p", 8), Responses{"p": " 9 "}, true},
		{"at least json number", AtLeast("p", 8), Responses{"p": json.Number("10")}, true},
		{"at least not a number", AtLeast("p", 8), Responses{"p": "high"}, false},
		{"below", Below("p", 8), Responses{"p": 3}, true},
		{"below missing", Below("p", 8), Responses{}, false},
		{"equals case insensitive", Equals("b", "Severe bleeding"), Responses{"b": "severe bleeding"}, true},
		{"equals other", Equals("b", "Severe bleeding"), Responses{"b": "Minor bleeding"}, false},
		{"any of", AnyOf(Yes("a"), Yes("b")), Responses{"b": true}, true},
		{"any of none", AnyOf(Yes("a"), Yes("b")), Responses{}, false},
		{"all of", AllOf(Yes("a"), Below("p", 8)), Responses{"a": true, "p": 2}, true},
		{"all of partial", AllOf(Yes("a"), Below("p", 8)), Responses{"a": true}, false},
		{"all of empty", AllOf(), Responses{}, false},
		{"always", Always(), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Eval(tt.r))
		})
	}
}

func TestConditionString(t *testing.T) {
	c := AnyOf(No("consciousness"), AtLeast("pain", 8), AllOf(Yes("a"), Equals("b", "x")))
	assert.Equal(t, `(consciousness is no OR pain >= 8 OR (a is yes AND b = "x"))`, c.String())
}

func TestDefine_Validation(t *testing.T) {
	q := []Question{
		{ID: "ok", Type: QuestionYesNo, Required: true},
		{ID: "pain", Type: QuestionScale, Required: true},
		{ID: "where", Type: QuestionMultipleChoice, Options: []string{"Head", "Leg"}},
	}

	tests := []struct {
		name  string
		steps []Step
	}{
		{"no steps", nil},
		{"bad numbering", []Step{{Number: 2, Questions: q}}},
		{"unknown field", []Step{{Number: 1, Questions: q, CriticalFlags: []Condition{Yes("missing")}}}},
		{"yes on scale", []Step{{Number: 1, Questions: q, CriticalFlags: []Condition{Yes("pain")}}}},
		{"threshold on yes_no", []Step{{Number: 1, Questions: q, Transitions: []Transition{{When: AtLeast("ok", 1), Next: ToComplete}}}}},
		{"equals non-option", []Step{{Number: 1, Questions: q, Transitions: []Transition{{When: Equals("where", "Arm"), Next: ToComplete}}}}},
		{"empty any_of", []Step{{Number: 1, Questions: q, Transitions: []Transition{{When: AnyOf(), Next: ToComplete}}}}},
		{"backwards transition", []Step{
			{Number: 1, Questions: q, Transitions: []Transition{{When: Always(), Next: GoTo(2)}}},
			{Number: 2, Transitions: []Transition{{When: Always(), Next: GoTo(1)}}},
		}},
		{"missing step", []Step{{Number: 1, Questions: q, Transitions: []Transition{{When: Always(), Next: GoTo(5)}}}}},
		{"bad terminal", []Step{{Number: 1, Questions: q, Transitions: []Transition{{When: Always(), Next: Next{Terminal: models.TriageInProgress}}}}}},
		{"duplicate question", []Step{{Number: 1, Questions: append(q, Question{ID: "ok", Type: QuestionText})}}},
		{"choice without options", []Step{{Number: 1, Questions: []Question{{ID: "c", Type: QuestionMultipleChoice}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Define(models.ProtocolFall, tt.steps...)
			assert.Error(t, err)
		})
	}

	p, err := Define(models.ProtocolFall, Step{
		Number:      1,
		Questions:   q,
		Transitions: []Transition{{When: AllOf(Yes("ok"), Below("pain", 3), Equals("where", "head")), Next: ToComplete}},
	})
	require.NoError(t, err)
	_, ok := p.Question("where")
	assert.True(t, ok)
}

func TestBuiltInProtocols(t *testing.T) {
	assert.Equal(t, []models.ProtocolType{
		models.ProtocolChestPain, models.ProtocolConfusion, models.ProtocolFall, models.ProtocolInjury,
	}, Types())

	for _, pt := range Types() {
		p, ok := Lookup(pt)
		require.True(t, ok)
		require.Len(t, p.Steps, 4, "%s", pt)
		assert.Equal(t, "Immediate Safety Check", p.Steps[0].Title)
		assert.Equal(t, "Outcome Capture", p.Steps[3].Title)
		assert.NotEmpty(t, p.Steps[0].CriticalFlags, "%s step 1 has critical flags", pt)
	}

	_, ok := Lookup("stroke")
	assert.False(t, ok)
}

func TestProtocolFor(t *testing.T) {
	pt, ok := ProtocolFor(models.AlertFall)
	assert.True(t, ok)
	assert.Equal(t, models.ProtocolFall, pt)

	_, ok = ProtocolFor(models.AlertMedication)
	assert.False(t, ok)
}

func TestValidateResponses(t *testing.T) {
	err := ValidateResponses(models.ProtocolFall, Responses{"consciousness": "yes"})
	require.ErrorIs(t, err, models.ErrValidation)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, "Missing required response for: Is there severe bleeding, head injury, or inability to move?")
	for _, p := range verr.Problems {
		assert.NotContains(t, p, "Additional notes", "optional questions are not required")
	}

	complete := Responses{
		"consciousness":       "yes",
		"severe_injury":       "no",
		"pain_level_initial":  3,
		"pain_location":       "Hip/Pelvis",
		"mobility_status":     "yes",
		"current_medications": "no",
		"head_injury_check":   "no",
		"confusion_check":     "no",
		"action_preference":   "Monitor at Home",
		"action_taken":        "Helped up, resting",
		"emergency_called":    "no",
	}
	assert.NoError(t, ValidateResponses(models.ProtocolFall, complete))

	assert.ErrorIs(t, ValidateResponses("stroke", complete), models.ErrValidation)
}
