package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/google/uuid"
)

// CaptureOutcome validates the selected option against the template and builds
// the outcome record with its follow-ups. Evidence is optional.
func CaptureOutcome(itemID string, tt models.TemplateType, option, notes string, evidence []models.Evidence, recordedBy string, now time.Time) (*models.Outcome, error) {
	tpl, ok := GetTemplate(tt)
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("invalid outcome template type %q", tt))
	}

	var problems []string
	if itemID == "" {
		problems = append(problems, "item id is required")
	}
	opt, ok := tpl.option(option)
	if !ok {
		problems = append(problems, fmt.Sprintf("invalid outcome %q (allowed: %s)", option, strings.Join(tpl.OptionLabels(), ", ")))
	}
	for i, ev := range evidence {
		if !validEvidence(ev.Type) {
			problems = append(problems, fmt.Sprintf("evidence %d: unknown type %q", i, ev.Type))
		}
		if ev.Reference == "" {
			problems = append(problems, fmt.Sprintf("evidence %d: reference is required", i))
		}
	}
	if len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}

	followUps := GenerateFollowUpTasks(tt, option)
	out := &models.Outcome{
		ID:               OutcomeID(itemID),
		ItemID:           itemID,
		TemplateType:     tt,
		Option:           option,
		Result:           opt.Result,
		Notes:            notes,
		Evidence:         append([]models.Evidence(nil), evidence...),
		RecordedBy:       recordedBy,
		RecordedAt:       now,
		FollowUpRequired: len(followUps) > 0,
		FollowUps:        followUps,
	}
	if len(followUps) > 0 {
		next := followUps[0].DueAt(now)
		out.NextCheckIn = &next
	}
	return out, nil
}

// OutcomeID is the stable id of the outcome of an item. An item completes once,
// so a retried capture maps to the same outcome.
func OutcomeID(itemID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("careops/outcome/"+itemID)).String()
}

// GenerateFollowUpTasks returns one task per rule whose outcome matches exactly.
// Rules are independent, so one outcome may spawn several tasks.
func GenerateFollowUpTasks(tt models.TemplateType, option string) []models.FollowUpTask {
	tpl, ok := GetTemplate(tt)
	if !ok {
		return nil
	}
	var out []models.FollowUpTask
	for _, r := range tpl.Rules {
		if r.Outcome != option {
			continue
		}
		task := r.Task
		task.Checklist = append([]models.ChecklistItem(nil), r.Task.Checklist...)
		out = append(out, task)
	}
	return out
}

// ValidateOutcomeCompleteness reports what the caregiver still has to fill in
func ValidateOutcomeCompleteness(tt models.TemplateType, option, notes string) error {
	tpl, ok := GetTemplate(tt)
	if !ok {
		return models.NewValidationError("Invalid template type")
	}
	var missing []string
	opt, ok := tpl.option(option)
	if !ok {
		missing = append(missing, "Outcome selection")
	} else if opt.NotesExpected && strings.TrimSpace(notes) == "" {
		missing = append(missing, "Notes (recommended for this outcome)")
	}
	if len(missing) > 0 {
		return models.NewValidationError(missing...)
	}
	return nil
}

func validEvidence(t models.EvidenceType) bool {
	switch t {
	case models.EvidencePhoto, models.EvidenceVideo, models.EvidenceNotes,
		models.EvidenceDocuments, models.EvidenceTimestamp:
		return true
	}
	return false
}
