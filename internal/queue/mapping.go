package queue

import (
	"fmt"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

const (
	alertEffortMinutes      = 15
	taskEffortMinutes       = 30
	medicationEffortMinutes = 5
)

var checkInEffort = map[models.CheckInKind]int{
	models.CheckInQuick:    3,
	models.CheckInStandard: 10,
	models.CheckInFull:     30,
}

var alertActions = map[models.AlertType]string{
	models.AlertFall:       "Start fall triage protocol",
	models.AlertInjury:     "Start injury triage protocol",
	models.AlertChestPain:  "Start chest pain triage protocol",
	models.AlertConfusion:  "Start confusion triage protocol",
	models.AlertCognitive:  "Check orientation and call the elder",
	models.AlertMedication: "Verify medication was taken",
	models.AlertEmotional:  "Call the elder for emotional support",
	models.AlertSafety:     "Perform a safety check",
}

// ItemID builds the queue id for a producer object
func ItemID(t models.ItemType, sourceID string) string {
	return string(t) + ":" + sourceID
}

// FromAlert maps an alert to a queue item that is due immediately
func FromAlert(a *models.Alert, now time.Time) *models.QueueItem {
	title := a.Title
	if title == "" {
		title = fmt.Sprintf("%s alert for %s", humanize(string(a.Type)), a.SubjectName)
	}
	severity := a.Severity
	if !severity.Valid() {
		severity = models.SeverityHigh
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = now
	}

	item := &models.QueueItem{
		ID:                ItemID(models.ItemTypeAlert, a.ID),
		Type:              models.ItemTypeAlert,
		Category:          string(a.Type),
		Severity:          severity,
		Title:             title,
		Description:       a.Summary,
		FamilyID:          a.FamilyID,
		SubjectID:         a.SubjectID,
		SubjectName:       a.SubjectName,
		SubjectPostalCode: a.PostalCode,
		AssigneeID:        a.AssigneeID,
		DueAt:             now,
		EstimatedMinutes:  alertEffortMinutes,
		Status:            models.StatusNew,
		RiskLevel:         riskOrDefault(a.RiskLevel),
		SourceID:          a.ID,
		SuggestedAction:   alertActions[a.Type],
		CreatedAt:         created,
		UpdatedAt:         now,
	}
	if a.AssigneeID != "" {
		at := now
		item.AssignedAt = &at
	}
	return item
}

// FromTask maps a care task; tasks without a due time score as "later"
func FromTask(t *models.Task, now time.Time) *models.QueueItem {
	severity := t.Priority
	if !severity.Valid() {
		severity = models.SeverityMedium
	}
	effort := t.EstimatedMinutes
	if effort <= 0 {
		effort = taskEffortMinutes
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = now
	}

	item := &models.QueueItem{
		ID:                ItemID(models.ItemTypeTask, t.ID),
		Type:              models.ItemTypeTask,
		Severity:          severity,
		Title:             t.Title,
		Description:       t.Description,
		FamilyID:          t.FamilyID,
		SubjectID:         t.SubjectID,
		SubjectName:       t.SubjectName,
		SubjectPostalCode: t.PostalCode,
		AssigneeID:        t.AssigneeID,
		EstimatedMinutes:  effort,
		Status:            models.StatusNew,
		RiskLevel:         models.RiskMedium,
		SourceID:          t.ID,
		CreatedAt:         created,
		UpdatedAt:         now,
	}
	if t.DueAt != nil {
		item.DueAt = *t.DueAt
	}
	if t.AssigneeID != "" {
		at := now
		item.AssignedAt = &at
	}
	return item
}

// FromMedication synthesizes a dose-verification item
func FromMedication(m *models.MedicationReminder, now time.Time) *models.QueueItem {
	title := fmt.Sprintf("Verify medication dose: %s", m.MedicationName)
	if m.Dosage != "" {
		title = fmt.Sprintf("%s %s", title, m.Dosage)
	}

	item := &models.QueueItem{
		ID:                ItemID(models.ItemTypeMedication, m.ID),
		Type:              models.ItemTypeMedication,
		Category:          string(models.AlertMedication),
		Severity:          models.SeverityHigh,
		Title:             title,
		FamilyID:          m.FamilyID,
		SubjectID:         m.SubjectID,
		SubjectName:       m.SubjectName,
		SubjectPostalCode: m.PostalCode,
		AssigneeID:        m.AssigneeID,
		DueAt:             m.ScheduledAt,
		EstimatedMinutes:  medicationEffortMinutes,
		Status:            models.StatusNew,
		RiskLevel:         models.RiskMedium,
		SourceID:          m.ID,
		SuggestedAction:   "Confirm the dose was taken",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if m.AssigneeID != "" {
		at := now
		item.AssignedAt = &at
	}
	return item
}

// FromCheckIn synthesizes a wellness check-in item
func FromCheckIn(c *models.CheckIn, now time.Time) *models.QueueItem {
	effort, ok := checkInEffort[c.Kind]
	if !ok {
		effort = checkInEffort[models.CheckInStandard]
	}

	item := &models.QueueItem{
		ID:                ItemID(models.ItemTypeCheckIn, c.ID),
		Type:              models.ItemTypeCheckIn,
		Severity:          models.SeverityLow,
		Title:             fmt.Sprintf("Wellness check-in with %s", c.SubjectName),
		FamilyID:          c.FamilyID,
		SubjectID:         c.SubjectID,
		SubjectName:       c.SubjectName,
		SubjectPostalCode: c.PostalCode,
		AssigneeID:        c.AssigneeID,
		DueAt:             c.ScheduledAt,
		EstimatedMinutes:  effort,
		Status:            models.StatusNew,
		RiskLevel:         models.RiskMedium,
		SourceID:          c.ID,
		SuggestedAction:   "Call and ask how they are feeling",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if c.AssigneeID != "" {
		at := now
		item.AssignedAt = &at
	}
	return item
}

// FromFollowUp turns a generated follow-up template into a new item owned by parent's subject
func FromFollowUp(id string, f models.FollowUpTask, parent *models.QueueItem, now time.Time) *models.QueueItem {
	severity := f.Priority
	if !severity.Valid() {
		severity = models.SeverityMedium
	}
	return &models.QueueItem{
		ID:                ItemID(models.ItemTypeFollowUp, id),
		Type:              models.ItemTypeFollowUp,
		Category:          parent.Category,
		Severity:          severity,
		Title:             f.Title,
		Description:       f.Description,
		FamilyID:          parent.FamilyID,
		SubjectID:         parent.SubjectID,
		SubjectName:       parent.SubjectName,
		SubjectPostalCode: parent.SubjectPostalCode,
		DueAt:             f.DueAt(now),
		EstimatedMinutes:  f.EstimatedMinutes,
		Status:            models.StatusNew,
		RiskLevel:         riskOrDefault(parent.RiskLevel),
		SourceID:          parent.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func riskOrDefault(r models.RiskLevel) models.RiskLevel {
	switch r {
	case models.RiskHigh, models.RiskMedium, models.RiskLow:
		return r
	}
	return models.RiskMedium
}

func humanize(s string) string {
	if s == "" {
		return "Health"
	}
	out := []byte(s)
	for i, c := range out {
		if c == '_' {
			out[i] = ' '
		}
	}
	if out[0] >= 'a' && out[0] <= 'z' {
		out[0] -= 'a' - 'A'
	}
	return string(out)
}
