package ledger

import (
	"sort"

	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

// Option is one selectable outcome of a template. NotesExpected marks outcomes
// that should carry an explanation.
type Option struct {
	Label         string               `json:"label"`
	Result        models.OutcomeResult `json:"result"`
	NotesExpected bool                 `json:"notes_expected"`
}

// FollowUpRule spawns Task when the recorded outcome equals Outcome exactly
type FollowUpRule struct {
	Outcome string              `json:"outcome"`
	Task    models.FollowUpTask `json:"task"`
}

// Template is the option list and rule table for one kind of work
type Template struct {
	Type          models.TemplateType   `json:"type"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Options       []Option              `json:"options"`
	Rules         []FollowUpRule        `json:"rules"`
	EvidenceTypes []models.EvidenceType `json:"evidence_types"`
}

func (t *Template) option(label string) (Option, bool) {
	for _, o := range t.Options {
		if o.Label == label {
			return o, true
		}
	}
	return Option{}, false
}

// OptionLabels lists the selectable outcomes in display order
func (t *Template) OptionLabels() []string {
	out := make([]string, len(t.Options))
	for i, o := range t.Options {
		out[i] = o.Label
	}
	return out
}

// items builds required checklist lines
func items(texts ...string) []models.ChecklistItem {
	out := make([]models.ChecklistItem, len(texts))
	for i, s := range texts {
		out[i] = models.ChecklistItem{Text: s, Required: true}
	}
	return out
}

func optional(text string) models.ChecklistItem {
	return models.ChecklistItem{Text: text}
}

var templates = map[models.TemplateType]*Template{
	models.TemplateMedication: {
		Type:        models.TemplateMedication,
		Title:       "Medication Verification Outcome",
		Description: "Document the outcome of medication verification task",
		Options: []Option{
			{Label: "All doses verified and taken", Result: models.ResultSuccess},
			{Label: "Some doses missed", Result: models.ResultPartial},
			{Label: "Doses refused", Result: models.ResultFailed, NotesExpected: true},
			{Label: "Unable to verify", Result: models.ResultFailed},
			{Label: "Medication not available", Result: models.ResultFailed},
		},
		Rules: []FollowUpRule{
			{Outcome: "Some doses missed", Task: models.FollowUpTask{
				Title:            "Follow up on missed medication doses",
				Description:      "Contact elder to understand why doses were missed and reschedule",
				Priority:         models.SeverityHigh,
				EstimatedMinutes: 15,
				DueInHours:       4,
				Checklist: append(items(
					"Contact elder about missed doses",
					"Understand reason for missing doses",
					"Reschedule missed doses if appropriate",
				), optional("Document reason in notes")),
			}},
			{Outcome: "Doses refused", Task: models.FollowUpTask{
				Title:            "Investigate medication refusal",
				Description:      "Understand why elder is refusing medication and escalate if needed",
				Priority:         models.SeverityHigh,
				EstimatedMinutes: 20,
				DueInHours:       2,
				Checklist: items(
					"Ask about side effects or concerns",
					"Contact primary care physician if needed",
					"Document refusal reason",
				),
			}},
			{Outcome: "Unable to verify", Task: models.FollowUpTask{
				Title:            "Escalate medication verification issue",
				Description:      "Unable to verify medication status - escalate to primary caregiver",
				Priority:         models.SeverityUrgent,
				EstimatedMinutes: 10,
				DueInHours:       1,
				Checklist: items(
					"Contact primary caregiver",
					"Provide context about verification issue",
				),
			}},
			{Outcome: "Medication not available", Task: models.FollowUpTask{
				Title:            "Refill unavailable medication",
				Description:      "Arrange a refill or pickup so the next dose is not missed",
				Priority:         models.SeverityHigh,
				EstimatedMinutes: 30,
				DueInHours:       6,
				Checklist: items(
					"Call the pharmacy",
					"Arrange pickup or delivery",
				),
			}},
		},
		EvidenceTypes: []models.EvidenceType{models.EvidencePhoto, models.EvidenceNotes, models.EvidenceTimestamp},
	},
	models.TemplateSafety: {
		Type:        models.TemplateSafety,
		Title:       "Safety Check Outcome",
		Description: "Document the outcome of safety check task",
		Options: []Option{
			{Label: "All safety checks passed", Result: models.ResultSuccess},
			{Label: "Minor safety issues found", Result: models.ResultPartial},
			{Label: "Major safety concerns identified", Result: models.ResultFailed, NotesExpected: true},
			{Label: "Immediate intervention required", Result: models.ResultFailed, NotesExpected: true},
		},
		Rules: []FollowUpRule{
			{Outcome: "Minor safety issues found", Task: models.FollowUpTask{
				Title:            "Address minor safety issues",
				Description:      "Implement solutions for identified minor safety concerns",
				Priority:         models.SeverityMedium,
				EstimatedMinutes: 30,
				DueInHours:       24,
				Checklist: items(
					"Identify specific safety issues",
					"Implement corrective measures",
					"Verify improvements",
				),
			}},
			{Outcome: "Major safety concerns identified", Task: models.FollowUpTask{
				Title:            "Address major safety concerns",
				Description:      "Urgent action needed to address major safety concerns",
				Priority:         models.SeverityUrgent,
				EstimatedMinutes: 60,
				DueInHours:       2,
				Checklist: items(
					"Document all safety concerns",
					"Contact family members",
					"Implement immediate safety measures",
					"Consider professional assessment",
				),
			}},
			{Outcome: "Immediate intervention required", Task: models.FollowUpTask{
				Title:            "Emergency safety intervention",
				Description:      "Immediate action required for critical safety issue",
				Priority:         models.SeverityUrgent,
				EstimatedMinutes: 15,
				DueInHours:       0.5,
				Checklist: items(
					"Ensure elder safety immediately",
					"Contact emergency services if needed",
					"Notify all family members",
				),
			}},
		},
		EvidenceTypes: []models.EvidenceType{models.EvidencePhoto, models.EvidenceVideo, models.EvidenceNotes, models.EvidenceTimestamp},
	},
	models.TemplateAppointment: {
		Type:        models.TemplateAppointment,
		Title:       "Medical Appointment Outcome",
		Description: "Document the outcome of medical appointment",
		Options: []Option{
			{Label: "Appointment completed successfully", Result: models.ResultSuccess},
			{Label: "Appointment rescheduled", Result: models.ResultPartial},
			{Label: "Appointment cancelled", Result: models.ResultFailed, NotesExpected: true},
			{Label: "Elder refused to attend", Result: models.ResultFailed, NotesExpected: true},
			{Label: "Transportation issue", Result: models.ResultFailed},
		},
		Rules: []FollowUpRule{
			{Outcome: "Appointment completed successfully", Task: models.FollowUpTask{
				Title:            "Document appointment results",
				Description:      "Collect and document results from completed appointment",
				Priority:         models.SeverityMedium,
				EstimatedMinutes: 20,
				DueInHours:       4,
				Checklist: items(
					"Collect appointment summary from elder",
					"Document any new medications or instructions",
					"Schedule any recommended follow-ups",
				),
			}},
			{Outcome: "Appointment rescheduled", Task: models.FollowUpTask{
				Title:            "Confirm rescheduled appointment",
				Description:      "Confirm new appointment date and time with elder",
				Priority:         models.SeverityMedium,
				EstimatedMinutes: 10,
				DueInHours:       24,
				Checklist: items(
					"Confirm new appointment date/time",
					"Update calendar",
					"Arrange transportation if needed",
				),
			}},
			{Outcome: "Elder refused to attend", Task: models.FollowUpTask{
				Title:            "Follow up on appointment refusal",
				Description:      "Understand why elder refused appointment and escalate if needed",
				Priority:         models.SeverityHigh,
				EstimatedMinutes: 20,
				DueInHours:       4,
				Checklist: items(
					"Understand reason for refusal",
					"Contact physician if medically necessary",
					"Document refusal and reason",
				),
			}},
			{Outcome: "Transportation issue", Task: models.FollowUpTask{
				Title:            "Rebook appointment with transportation",
				Description:      "Find a new slot and line up a driver",
				Priority:         models.SeverityHigh,
				EstimatedMinutes: 20,
				DueInHours:       12,
				Checklist: items(
					"Call the clinic to rebook",
					"Confirm a driver for the new time",
				),
			}},
		},
		EvidenceTypes: []models.EvidenceType{models.EvidenceNotes, models.EvidenceDocuments, models.EvidenceTimestamp},
	},
	models.TemplateGeneral: {
		Type:        models.TemplateGeneral,
		Title:       "General Task Outcome",
		Description: "Document the outcome of a general care task",
		Options: []Option{
			{Label: "Completed successfully", Result: models.ResultSuccess},
			{Label: "Partially completed", Result: models.ResultPartial, NotesExpected: true},
			{Label: "Not completed", Result: models.ResultFailed, NotesExpected: true},
			{Label: "Escalated", Result: models.ResultPartial, NotesExpected: true},
		},
		Rules: []FollowUpRule{
			{Outcome: "Partially completed", Task: models.FollowUpTask{
				Title:            "Complete remaining task items",
				Description:      "Complete the remaining items from the original task",
				Priority:         models.SeverityMedium,
				EstimatedMinutes: 30,
				DueInHours:       24,
				Checklist: items(
					"Review what was not completed",
					"Complete remaining items",
					"Verify completion",
				),
			}},
			{Outcome: "Not completed", Task: models.FollowUpTask{
				Title:            "Retry incomplete task",
				Description:      "Attempt to complete the task again",
				Priority:         models.SeverityHigh,
				EstimatedMinutes: 30,
				DueInHours:       12,
				Checklist: items(
					"Understand reason for non-completion",
					"Address any barriers",
					"Retry task completion",
				),
			}},
			{Outcome: "Escalated", Task: models.FollowUpTask{
				Title:            "Handle escalated task",
				Description:      "Task has been escalated and requires attention",
				Priority:         models.SeverityUrgent,
				EstimatedMinutes: 20,
				DueInHours:       2,
				Checklist: items(
					"Review escalation reason",
					"Determine appropriate action",
					"Assign to appropriate person",
				),
			}},
		},
		EvidenceTypes: []models.EvidenceType{models.EvidenceNotes, models.EvidenceTimestamp},
	},
}

// GetTemplate returns the template for t
func GetTemplate(t models.TemplateType) (*Template, bool) {
	tpl, ok := templates[t]
	return tpl, ok
}

// Templates lists every template ordered by type
func Templates() []*Template {
	out := make([]*Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// TemplateFor picks the outcome template that fits a queue item
func TemplateFor(item *models.QueueItem) models.TemplateType {
	switch item.Type {
	case models.ItemTypeMedication:
		return models.TemplateMedication
	case models.ItemTypeAlert:
		if item.Category == "medication" {
			return models.TemplateMedication
		}
		return models.TemplateSafety
	}
	if item.Category != "" {
		switch models.TemplateType(item.Category) {
		case models.TemplateMedication, models.TemplateSafety, models.TemplateAppointment:
			return models.TemplateType(item.Category)
		}
	}
	return models.TemplateGeneral
}
