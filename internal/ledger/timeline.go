package ledger

import (
	"fmt"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/google/uuid"
)

// EntryParams describes a care event to record
type EntryParams struct {
	ID           string // optional; set it to make retries idempotent
	FamilyID     string
	SubjectID    string
	EventType    models.EventType
	Title        string
	Description  string
	Details      map[string]interface{}
	RecordedBy   string
	Evidence     []models.Evidence
	RelatedItems []string
}

// NewTimelineEntry builds an entry. Entries are always immutable.
func NewTimelineEntry(p EntryParams, now time.Time) (*models.TimelineEntry, error) {
	var problems []string
	if !p.EventType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown event type %q", p.EventType))
	}
	if p.SubjectID == "" {
		problems = append(problems, "subject id is required")
	}
	if p.Title == "" {
		problems = append(problems, "title is required")
	}
	if len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	e := &models.TimelineEntry{
		ID:           id,
		FamilyID:     p.FamilyID,
		SubjectID:    p.SubjectID,
		Timestamp:    now,
		EventType:    p.EventType,
		Title:        p.Title,
		Description:  p.Description,
		Details:      p.Details,
		RecordedBy:   p.RecordedBy,
		Evidence:     p.Evidence,
		RelatedItems: p.RelatedItems,
		Immutable:    true,
	}
	return e.Clone(), nil
}

// OutcomeEntry records a captured outcome as a task_completed event
func OutcomeEntry(item *models.QueueItem, outcome *models.Outcome) (*models.TimelineEntry, error) {
	description := outcome.Notes
	if description == "" {
		description = outcome.Option
	}
	related := []string{item.ID}
	for i := range outcome.FollowUps {
		related = append(related, "followup:"+FollowUpID(outcome.ID, i+1))
	}

	return NewTimelineEntry(EntryParams{
		ID:          "outcome:" + outcome.ID,
		FamilyID:    item.FamilyID,
		SubjectID:   item.SubjectID,
		EventType:   models.EventTaskCompleted,
		Title:       fmt.Sprintf("Task Outcome: %s", item.Title),
		Description: description,
		Details: map[string]interface{}{
			"item_id":            item.ID,
			"item_type":          string(item.Type),
			"assignee_id":        item.AssigneeID,
			"template_type":      string(outcome.TemplateType),
			"outcome":            outcome.Option,
			"result":             string(outcome.Result),
			"follow_up_required": outcome.FollowUpRequired,
		},
		RecordedBy:   outcome.RecordedBy,
		Evidence:     outcome.Evidence,
		RelatedItems: related,
	}, outcome.RecordedAt)
}

// OutcomeEntryID is the id of the task_completed entry of an item
func OutcomeEntryID(itemID string) string {
	return "outcome:" + OutcomeID(itemID)
}

// FollowUpID is the stable id of the n-th (1-based) follow-up of an outcome
func FollowUpID(outcomeID string, n int) string {
	return fmt.Sprintf("%s:%d", outcomeID, n)
}
