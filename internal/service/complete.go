package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/samalpartha/CareCircle-sub001/internal/ledger"
	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"go.uber.org/zap"
)

// CompleteRequest describes how a unit of work ended
type CompleteRequest struct {
	ItemID     string
	Template   models.TemplateType // empty picks the template that fits the item
	Option     string
	Notes      string
	Evidence   []models.Evidence
	RecordedBy string
}

// Completion is the result of CompleteItem
type Completion struct {
	Item      *models.QueueItem   `json:"item"`
	Outcome   *models.Outcome     `json:"outcome"`
	FollowUps []*models.QueueItem `json:"follow_ups"`
}

// CheckCompletion lists what the caregiver still should fill in before completing
func (s *CareOpsService) CheckCompletion(req CompleteRequest) error {
	item, err := s.queue.GetItem(req.ItemID)
	if err != nil {
		return err
	}
	return ledger.ValidateOutcomeCompleteness(s.templateFor(item, req.Template), req.Option, req.Notes)
}

// CompleteItem closes the item, then records its outcome on the timeline and
// queues the follow-ups the outcome calls for. Items that were never started
// are moved to in_progress first. The outcome and its entry are written only
// once the status change has committed; if writing them fails, calling
// CompleteItem again records them without touching the status.
func (s *CareOpsService) CompleteItem(ctx context.Context, req CompleteRequest) (*Completion, error) {
	item, err := s.queue.GetItem(req.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsOpen() && s.outcomeRecorded(item.ID) {
		return nil, &models.TransitionError{From: string(item.Status), To: string(models.StatusCompleted)}
	}

	outcome, err := ledger.CaptureOutcome(item.ID, s.templateFor(item, req.Template), req.Option, req.Notes, req.Evidence, req.RecordedBy, s.clock.Now())
	if err != nil {
		return nil, err
	}
	entry, err := ledger.OutcomeEntry(item, outcome)
	if err != nil {
		return nil, err
	}

	completed := item
	if item.IsOpen() {
		if item.Status == models.StatusNew || item.Status == models.StatusSnoozed {
			if _, err := s.TransitionItem(ctx, item.ID, models.StatusInProgress); err != nil {
				return nil, err
			}
		}
		completed, err = s.queue.TransitionStatusWith(item.ID, models.StatusCompleted, s.commit(ctx))
		if err != nil {
			if isConflict(err) {
				s.logger.Warn("Completion lost a status race", zap.String("item_id", item.ID), zap.Error(err))
			}
			return nil, err
		}
		s.clearEscalation(item.ID)
	} else {
		s.logger.Info("Recording missing outcome of completed item", zap.String("item_id", item.ID))
	}

	if err := s.recordOutcome(ctx, outcome, entry); err != nil {
		s.logger.Error("Item completed without its outcome",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("item %s completed but its outcome was not recorded: %w", item.ID, err)
	}

	result := &Completion{Item: completed, Outcome: outcome}
	for i, f := range outcome.FollowUps {
		if next := s.enqueueFollowUp(ctx, ledger.FollowUpID(outcome.ID, i+1), f, completed); next != nil {
			result.FollowUps = append(result.FollowUps, next)
		}
	}

	s.logger.Info("Item completed",
		zap.String("item_id", item.ID),
		zap.String("outcome", outcome.Option),
		zap.String("result", string(outcome.Result)),
		zap.Int("follow_ups", len(result.FollowUps)),
	)
	return result, nil
}

// recordOutcome writes the outcome row and its task_completed entry. Either
// one already stored counts as written, so a retry fills in only what is missing.
func (s *CareOpsService) recordOutcome(ctx context.Context, outcome *models.Outcome, entry *models.TimelineEntry) error {
	if s.deps.Outcomes != nil {
		if err := s.deps.Outcomes.Insert(ctx, outcome); err != nil && !errors.Is(err, models.ErrDuplicateRecord) {
			return fmt.Errorf("failed to store outcome: %w", err)
		}
	}
	if err := s.ledger.AddEntry(ctx, entry); err != nil && !errors.Is(err, models.ErrDuplicateRecord) {
		return err
	}
	return nil
}

func (s *CareOpsService) outcomeRecorded(itemID string) bool {
	_, err := s.ledger.Get(ledger.OutcomeEntryID(itemID))
	return err == nil
}

func (s *CareOpsService) templateFor(item *models.QueueItem, requested models.TemplateType) models.TemplateType {
	if requested != "" {
		return requested
	}
	return ledger.TemplateFor(item)
}
