package ledger

import (
	"testing"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestCaptureOutcome_SomeDosesMissed(t *testing.T) {
	out, err := CaptureOutcome("med-1", models.TemplateMedication, "Some doses missed", "", nil, "cg-1", testNow)
	require.NoError(t, err)

	assert.Equal(t, OutcomeID("med-1"), out.ID)
	assert.Equal(t, models.ResultPartial, out.Result)
	assert.True(t, out.FollowUpRequired)
	require.Len(t, out.FollowUps, 1)
	assert.Equal(t, "Follow up on missed medication doses", out.FollowUps[0].Title)
	assert.Equal(t, 4.0, out.FollowUps[0].DueInHours)
	assert.Equal(t, models.SeverityHigh, out.FollowUps[0].Priority)
	checklist := out.FollowUps[0].Checklist
	require.Len(t, checklist, 4)
	assert.True(t, checklist[0].Required)
	assert.Equal(t, "Document reason in notes", checklist[3].Text)
	assert.False(t, checklist[3].Required)
	require.NotNil(t, out.NextCheckIn)
	assert.Equal(t, testNow.Add(4*time.Hour), *out.NextCheckIn)
}

func TestOutcomeID_StablePerItem(t *testing.T) {
	first, err := CaptureOutcome("med-1", models.TemplateMedication, "Some doses missed", "", nil, "cg-1", testNow)
	require.NoError(t, err)
	retry, err := CaptureOutcome("med-1", models.TemplateMedication, "All doses verified and taken", "", nil, "cg-2", testNow.Add(time.Minute))
	require.NoError(t, err)
	other, err := CaptureOutcome("med-2", models.TemplateMedication, "Some doses missed", "", nil, "cg-1", testNow)
	require.NoError(t, err)

	assert.Equal(t, first.ID, retry.ID)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestCaptureOutcome_SuccessHasNoFollowUp(t *testing.T) {
	out, err := CaptureOutcome("med-1", models.TemplateMedication, "All doses verified and taken", "", nil, "cg-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, models.ResultSuccess, out.Result)
	assert.False(t, out.FollowUpRequired)
	assert.Empty(t, out.FollowUps)
	assert.Nil(t, out.NextCheckIn)
}

func TestCaptureOutcome_AppointmentCompletedStillFollowsUp(t *testing.T) {
	out, err := CaptureOutcome("appt-1", models.TemplateAppointment, "Appointment completed successfully", "", nil, "cg-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, models.ResultSuccess, out.Result)
	require.Len(t, out.FollowUps, 1)
	assert.Equal(t, "Document appointment results", out.FollowUps[0].Title)
}

func TestCaptureOutcome_Validation(t *testing.T) {
	tests := []struct {
		name     string
		itemID   string
		tt       models.TemplateType
		option   string
		evidence []models.Evidence
		want     string
	}{
		{
			name:   "unknown template",
			itemID: "x",
			tt:     "dental",
			option: "Completed successfully",
			want:   "invalid outcome template type",
		},
		{
			name:   "option from another template",
			itemID: "x",
			tt:     models.TemplateSafety,
			option: "Some doses missed",
			want:   "allowed: All safety checks passed",
		},
		{
			name:   "missing item",
			tt:     models.TemplateGeneral,
			option: "Completed successfully",
			want:   "item id is required",
		},
		{
			name:     "bad evidence",
			itemID:   "x",
			tt:       models.TemplateGeneral,
			option:   "Completed successfully",
			evidence: []models.Evidence{{Type: "hologram", Reference: "r"}, {Type: models.EvidencePhoto}},
			want:     "unknown type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CaptureOutcome(tt.itemID, tt.tt, tt.option, "", tt.evidence, "cg-1", testNow)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGenerateFollowUpTasks_ExactMatchOnly(t *testing.T) {
	assert.Empty(t, GenerateFollowUpTasks(models.TemplateMedication, "some doses missed"))
	assert.Empty(t, GenerateFollowUpTasks("unknown", "Some doses missed"))

	tasks := GenerateFollowUpTasks(models.TemplateSafety, "Immediate intervention required")
	require.Len(t, tasks, 1)
	assert.Equal(t, 0.5, tasks[0].DueInHours)

	// returned checklists are copies
	tasks[0].Checklist[0].Completed = true
	again := GenerateFollowUpTasks(models.TemplateSafety, "Immediate intervention required")
	assert.False(t, again[0].Checklist[0].Completed)
}

func TestValidateOutcomeCompleteness(t *testing.T) {
	err := ValidateOutcomeCompleteness("nope", "x", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid template type")

	err = ValidateOutcomeCompleteness(models.TemplateGeneral, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Outcome selection")

	err = ValidateOutcomeCompleteness(models.TemplateMedication, "Doses refused", "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Notes (recommended for this outcome)")

	assert.NoError(t, ValidateOutcomeCompleteness(models.TemplateMedication, "Doses refused", "Said it tastes bad"))
	assert.NoError(t, ValidateOutcomeCompleteness(models.TemplateMedication, "Some doses missed", ""))
}

func TestTemplateFor(t *testing.T) {
	tests := []struct {
		item *models.QueueItem
		want models.TemplateType
	}{
		{&models.QueueItem{Type: models.ItemTypeMedication}, models.TemplateMedication},
		{&models.QueueItem{Type: models.ItemTypeAlert, Category: "medication"}, models.TemplateMedication},
		{&models.QueueItem{Type: models.ItemTypeAlert, Category: "fall"}, models.TemplateSafety},
		{&models.QueueItem{Type: models.ItemTypeTask, Category: "appointment"}, models.TemplateAppointment},
		{&models.QueueItem{Type: models.ItemTypeTask, Category: "errand"}, models.TemplateGeneral},
		{&models.QueueItem{Type: models.ItemTypeCheckIn}, models.TemplateGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TemplateFor(tt.item), "%s/%s", tt.item.Type, tt.item.Category)
	}
}

func TestTemplates_Sorted(t *testing.T) {
	var got []models.TemplateType
	for _, tpl := range Templates() {
		got = append(got, tpl.Type)
		assert.NotEmpty(t, tpl.Options)
		assert.Equal(t, models.ResultSuccess, tpl.Options[0].Result)
	}
	assert.Equal(t, []models.TemplateType{
		models.TemplateAppointment,
		models.TemplateGeneral,
		models.TemplateMedication,
		models.TemplateSafety,
	}, got)
}
