package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/ledger"
	"github.com/samalpartha/CareCircle-sub001/internal/models"
	"github.com/samalpartha/CareCircle-sub001/internal/queue"

	"go.uber.org/zap"
)

// activeEscalation is the tier currently notified for an item. fired counts
// the firings since the item entered escalated.
type activeEscalation struct {
	plan  *models.EscalationPlan
	tier  int
	fired int
}

// AssignItem picks the best caregiver for an open item, assigns it and
// notifies them.
func (s *CareOpsService) AssignItem(ctx context.Context, itemID string) (*models.AssignmentRecommendation, error) {
	item, err := s.queue.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsOpen() {
		return nil, models.NewValidationError(fmt.Sprintf("item %s is completed", itemID))
	}

	members, err := s.members(ctx, item.SubjectID)
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.CalculateBestAssignee(item, members)
	if err != nil {
		return nil, err
	}

	assigned, err := s.queue.Assign(itemID, rec.Recommended.ID)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, assigned)

	s.record(ctx, ledger.EntryParams{
		FamilyID:    assigned.FamilyID,
		SubjectID:   assigned.SubjectID,
		EventType:   models.EventTaskAssigned,
		Title:       fmt.Sprintf("Assigned: %s", assigned.Title),
		Description: fmt.Sprintf("Assigned to %s", rec.Recommended.Name),
		Details: map[string]interface{}{
			"item_id":     assigned.ID,
			"item_type":   string(assigned.Type),
			"assignee_id": rec.Recommended.ID,
			"confidence":  rec.Confidence,
			"reasoning":   rec.Reasoning,
		},
		RelatedItems: []string{assigned.ID},
	})

	if s.deps.Dispatcher != nil {
		if err := s.deps.Dispatcher.DispatchAssignment(assigned, rec); err != nil {
			s.logger.Warn("Assignment notification failed",
				zap.String("item_id", assigned.ID),
				zap.String("assignee_id", rec.Recommended.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Item assigned",
		zap.String("item_id", assigned.ID),
		zap.String("assignee_id", rec.Recommended.ID),
		zap.Int("confidence", rec.Confidence),
	)
	return rec, nil
}

// TransitionItem applies a status change through the queue and the store.
// Completion goes through CompleteItem so an outcome is always captured.
func (s *CareOpsService) TransitionItem(ctx context.Context, itemID string, to models.Status) (*models.QueueItem, error) {
	if to == models.StatusCompleted {
		return nil, models.NewValidationError("completing an item requires an outcome")
	}
	item, err := s.queue.TransitionStatusWith(itemID, to, s.commit(ctx))
	if err != nil {
		return nil, err
	}
	if to != models.StatusEscalated {
		s.clearEscalation(itemID)
	}
	return item, nil
}

// commit writes a transition through to the queue store under the item lock
func (s *CareOpsService) commit(ctx context.Context) queue.CommitFunc {
	return func(before, after *models.QueueItem) error {
		if s.deps.Queue == nil {
			return nil
		}
		if err := s.deps.Queue.CompareAndSwapStatus(ctx, before.ID, before.Status, after.Status, after.UpdatedAt); err != nil {
			return err
		}
		if after.EscalationCount != before.EscalationCount {
			return s.deps.Queue.Upsert(ctx, after)
		}
		return nil
	}
}

// EscalateItem starts an escalation chain now instead of waiting for the
// response window to run out.
func (s *CareOpsService) EscalateItem(ctx context.Context, itemID string, reason models.EscalationReason) (*models.EscalationPlan, error) {
	item, err := s.queue.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsOpen() {
		return nil, models.NewValidationError(fmt.Sprintf("item %s is completed", itemID))
	}
	members, err := s.members(ctx, item.SubjectID)
	if err != nil {
		return nil, err
	}
	plan := s.engine.CreateEscalationPlan(item, item.AssigneeID, members, reason)
	if err := s.applyEscalation(ctx, item, plan, 1); err != nil {
		return nil, err
	}
	return plan, nil
}

// CheckEscalations sweeps assigned items awaiting action. An item whose
// response window has passed gets its first tier; an escalated item moves to
// the next tier once that tier's timeout passes. Returns the tiers fired.
func (s *CareOpsService) CheckEscalations(ctx context.Context) (int, error) {
	now := s.clock.Now()
	inFlight := s.queue.InFlight()
	live := make(map[string]bool, len(inFlight))

	fired, failed := 0, 0
	for _, item := range inFlight {
		live[item.ID] = true

		var next *models.EscalationPlan
		tier := 1
		active := s.activeEscalation(item.ID)
		switch {
		case active == nil:
			if !s.engine.ShouldEscalate(item, *item.AssignedAt, now) {
				continue
			}
			members, err := s.members(ctx, item.SubjectID)
			if err != nil {
				s.logger.Error("Failed to plan escalation", zap.String("item_id", item.ID), zap.Error(err))
				failed++
				continue
			}
			next = s.engine.CreateEscalationPlan(item, item.AssigneeID, members, models.EscalationNoResponse)
		case active.plan.IsTerminal():
			continue
		default:
			timeout := time.Duration(active.plan.TimeoutMinutes) * time.Minute
			if now.Sub(*item.AssignedAt) < timeout {
				continue
			}
			next = active.plan.Next
			if next == nil {
				next = s.engine.CreateEscalationPlan(item, item.AssigneeID, nil, active.plan.Reason)
			}
			tier = active.tier + 1
		}

		if err := s.applyEscalation(ctx, item, next, tier); err != nil {
			s.logger.Error("Failed to escalate item", zap.String("item_id", item.ID), zap.Error(err))
			failed++
			continue
		}
		fired++
	}

	s.mu.Lock()
	for id := range s.escalations {
		if !live[id] {
			delete(s.escalations, id)
		}
	}
	s.mu.Unlock()

	retention := time.Duration(s.tuning.CompletedRetentionMinutes) * time.Minute
	s.queue.EvictCompleted(now.Add(-retention))

	if failed > 0 {
		return fired, fmt.Errorf("%d escalations failed", failed)
	}
	return fired, nil
}

// applyEscalation moves item to escalated, hands it to the tier's first
// caregiver and notifies the tier.
func (s *CareOpsService) applyEscalation(ctx context.Context, item *models.QueueItem, plan *models.EscalationPlan, tier int) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	current := item
	if item.Status != models.StatusEscalated {
		escalated, err := s.queue.TransitionStatusWith(item.ID, models.StatusEscalated, s.commit(ctx))
		if err != nil {
			return err
		}
		current = escalated
	}
	if !plan.IsTerminal() {
		assigned, err := s.queue.Assign(item.ID, plan.EscalateTo[0].ID)
		if err != nil {
			return err
		}
		s.persist(ctx, assigned)
		current = assigned
	}

	s.mu.Lock()
	firing := 1
	if prev := s.escalations[item.ID]; prev != nil {
		firing = prev.fired + 1
	}
	s.escalations[item.ID] = &activeEscalation{plan: plan, tier: tier, fired: firing}
	s.mu.Unlock()

	recipients := make([]string, 0, len(plan.EscalateTo))
	for _, m := range plan.EscalateTo {
		recipients = append(recipients, m.ID)
	}
	s.record(ctx, ledger.EntryParams{
		ID:          fmt.Sprintf("escalation:%s:%d:%d:%d", item.ID, current.EscalationCount, firing, s.clock.Now().UnixMilli()),
		FamilyID:    item.FamilyID,
		SubjectID:   item.SubjectID,
		EventType:   models.EventEscalationTriggered,
		Title:       fmt.Sprintf("Escalated: %s", item.Title),
		Description: plan.Message,
		Details: map[string]interface{}{
			"item_id":                 item.ID,
			"reason":                  string(plan.Reason),
			"tier":                    tier,
			"firing":                  firing,
			"escalation_count":        current.EscalationCount,
			"recipients":              recipients,
			"needs_professional_care": plan.NeedsProfessionalCare,
		},
		RecordedBy:   item.AssigneeID,
		RelatedItems: []string{item.ID},
	})

	if s.deps.Dispatcher != nil {
		if err := s.deps.Dispatcher.DispatchEscalation(current, plan); err != nil {
			s.logger.Warn("Escalation notification failed", zap.String("item_id", item.ID), zap.Error(err))
		}
	}

	s.logger.Info("Item escalated",
		zap.String("item_id", item.ID),
		zap.String("reason", string(plan.Reason)),
		zap.Int("tier", tier),
		zap.Bool("needs_professional_care", plan.NeedsProfessionalCare),
	)
	return nil
}

func (s *CareOpsService) activeEscalation(itemID string) *activeEscalation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.escalations[itemID]
}

func (s *CareOpsService) clearEscalation(itemID string) {
	s.mu.Lock()
	delete(s.escalations, itemID)
	s.mu.Unlock()
}

// isConflict reports whether err came from a lost status race
func isConflict(err error) bool {
	return errors.Is(err, models.ErrInvalidTransition)
}
