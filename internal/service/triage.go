package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/consumer"
	"github.com/samalpartha/CareCircle-sub001/internal/ledger"
	"github.com/samalpartha/CareCircle-sub001/internal/models"
	"github.com/samalpartha/CareCircle-sub001/internal/queue"
	"github.com/samalpartha/CareCircle-sub001/internal/triage"

	"go.uber.org/zap"
)

// TriageStatus is what the caregiver sees after each triage call
type TriageStatus struct {
	Session *models.TriageProtocol `json:"session"`
	Step    *triage.Step           `json:"step,omitempty"` // nil once the run has ended
	Missing []string               `json:"missing,omitempty"` // required prompts still unanswered
	Plan    *models.ActionPlan     `json:"plan,omitempty"` // set once the run has ended
	CallID  string                 `json:"call_id,omitempty"`
}

// StartTriage opens a protocol run for an alert item
func (s *CareOpsService) StartTriage(ctx context.Context, itemID, location string) (*TriageStatus, error) {
	item, err := s.queue.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	if item.Type != models.ItemTypeAlert {
		return nil, models.NewValidationError(fmt.Sprintf("item %s is not an alert", itemID))
	}
	protocol, ok := triage.ProtocolFor(models.AlertType(item.Category))
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("no triage protocol for %q alerts", item.Category))
	}

	m, err := triage.New(item.ID, protocol, triage.Subject{
		ID:       item.SubjectID,
		Name:     item.SubjectName,
		Location: location,
	}, s.clock, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[m.SessionID()] = m
	s.mu.Unlock()
	s.saveSession(ctx, m)

	return s.triageStatus(m), nil
}

// RecordTriageResponse stores one answer on the current run
func (s *CareOpsService) RecordTriageResponse(ctx context.Context, sessionID, questionID string, value interface{}) (*TriageStatus, error) {
	m, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := m.RecordResponse(questionID, value); err != nil {
		return nil, err
	}
	s.saveSession(ctx, m)
	return s.triageStatus(m), nil
}

// AdvanceTriage moves the run forward. An incomplete step comes back with the
// missing prompts and no error. When the run ends the outcome is recorded,
// an emergency is dispatched and dialed, and the plan's follow-ups are queued.
func (s *CareOpsService) AdvanceTriage(ctx context.Context, sessionID string) (*TriageStatus, error) {
	m, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	step, state, err := m.ProceedToNextStep()
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			status := s.triageStatus(m)
			status.Missing = verr.Problems
			return status, nil
		}
		return nil, err
	}
	s.saveSession(ctx, m)

	if step != nil {
		return s.triageStatus(m), nil
	}

	plan := m.GenerateActionPlan()
	status := s.triageStatus(m)
	status.Plan = plan
	status.CallID = s.finishTriage(ctx, m, state, plan)
	s.closeSession(ctx, m.SessionID())
	return status, nil
}

// finishTriage records the run and acts on its plan; returns the emergency call id
func (s *CareOpsService) finishTriage(ctx context.Context, m *triage.StateMachine, state models.TriageState, plan *models.ActionPlan) string {
	item, err := s.queue.GetItem(m.AlertID())
	if err != nil {
		s.logger.Error("Triage finished for unknown item",
			zap.String("session_id", m.SessionID()),
			zap.String("item_id", m.AlertID()),
			zap.Error(err),
		)
		return ""
	}

	s.record(ctx, ledger.EntryParams{
		ID:          "triage:" + m.SessionID(),
		FamilyID:    item.FamilyID,
		SubjectID:   item.SubjectID,
		EventType:   models.EventTriagePerformed,
		Title:       fmt.Sprintf("Triage: %s", item.Title),
		Description: fmt.Sprintf("Recommendation: %s", plan.Recommendation),
		Details: map[string]interface{}{
			"session_id":     m.SessionID(),
			"protocol":       string(m.Type()),
			"state":          string(state),
			"recommendation": string(plan.Recommendation),
			"urgency_level":  plan.UrgencyLevel,
			"responses":      map[string]interface{}(m.Responses()),
		},
		RecordedBy:   item.AssigneeID,
		RelatedItems: []string{item.ID},
	})

	var callID string
	if plan.Recommendation == models.RecommendCall911 {
		callID = s.raiseEmergency(ctx, item, m.SessionID(), plan)
	}

	for i, f := range plan.FollowUpTasks {
		id := ledger.FollowUpID("triage:"+m.SessionID(), i+1)
		s.enqueueFollowUp(ctx, id, f, item)
	}
	return callID
}

// raiseEmergency notifies the circle and hands the call script to the dialer
func (s *CareOpsService) raiseEmergency(ctx context.Context, item *models.QueueItem, sessionID string, plan *models.ActionPlan) string {
	if s.deps.Dispatcher != nil {
		if err := s.deps.Dispatcher.DispatchEmergency(item.SubjectID, plan); err != nil {
			s.logger.Error("Emergency notification failed", zap.String("item_id", item.ID), zap.Error(err))
		}
	}
	if s.deps.Dialer == nil {
		s.logger.Warn("No emergency dialer configured", zap.String("item_id", item.ID))
		return ""
	}

	resp, err := s.deps.Dialer.Dial(item.SubjectID, plan)
	if err != nil {
		s.logger.Error("Emergency call failed",
			zap.String("item_id", item.ID),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return ""
	}

	s.record(ctx, ledger.EntryParams{
		ID:          "emergency:" + sessionID,
		FamilyID:    item.FamilyID,
		SubjectID:   item.SubjectID,
		EventType:   models.EventEmergencyCalled,
		Title:       fmt.Sprintf("Emergency services called: %s", item.Title),
		Description: plan.CallScript.CurrentCondition,
		Details: map[string]interface{}{
			"call_id":         resp.CallID,
			"status":          resp.Status,
			"key_information": plan.CallScript.KeyInformation,
		},
		RecordedBy:   item.AssigneeID,
		RelatedItems: []string{item.ID},
	})
	return resp.CallID
}

// session returns the live machine, restoring it from the session store
func (s *CareOpsService) session(ctx context.Context, sessionID string) (*triage.StateMachine, error) {
	s.mu.Lock()
	m, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok {
		return m, nil
	}
	if s.deps.Sessions == nil {
		return nil, fmt.Errorf("triage session %s: %w", sessionID, models.ErrNotFound)
	}

	snap, err := s.deps.Sessions.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, consumer.ErrSessionNotFound) {
			return nil, fmt.Errorf("triage session %s: %w", sessionID, models.ErrNotFound)
		}
		return nil, err
	}
	m, err = triage.Restore(snap, s.clock, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.sessions[sessionID]; ok {
		m = existing
	} else {
		s.sessions[sessionID] = m
	}
	s.mu.Unlock()
	return m, nil
}

func (s *CareOpsService) saveSession(ctx context.Context, m *triage.StateMachine) {
	if s.deps.Sessions == nil {
		return
	}
	if err := s.deps.Sessions.Save(ctx, m.Snapshot()); err != nil {
		s.logger.Warn("Failed to save triage session",
			zap.String("session_id", m.SessionID()),
			zap.Error(err),
		)
	}
}

// closeSession forgets a finished run; the timeline keeps its record
func (s *CareOpsService) closeSession(ctx context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if s.deps.Sessions == nil {
		return
	}
	if err := s.deps.Sessions.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to delete triage session", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *CareOpsService) triageStatus(m *triage.StateMachine) *TriageStatus {
	status := &TriageStatus{Session: m.Snapshot()}
	if !status.Session.State.IsTerminal() {
		step := m.CurrentStep()
		status.Step = &step
		if ok, missing := m.ValidateCurrentStep(); !ok {
			status.Missing = missing
		}
	}
	return status
}

// enqueueFollowUp adds a generated follow-up; a retry of the same id is a no-op
// and returns nil.
func (s *CareOpsService) enqueueFollowUp(ctx context.Context, id string, f models.FollowUpTask, parent *models.QueueItem) *models.QueueItem {
	item := queue.FromFollowUp(id, f, parent, s.clock.Now())
	if err := s.enqueue(ctx, item); err != nil {
		if !errors.Is(err, models.ErrDuplicateRecord) {
			s.logger.Error("Failed to queue follow-up",
				zap.String("item_id", item.ID),
				zap.String("parent_id", parent.ID),
				zap.Error(err),
			)
		}
		return nil
	}
	s.record(ctx, ledger.EntryParams{
		ID:          string(models.EventFollowUpCreated) + ":" + item.ID,
		FamilyID:    item.FamilyID,
		SubjectID:   item.SubjectID,
		EventType:   models.EventFollowUpCreated,
		Title:       item.Title,
		Description: item.Description,
		Details: map[string]interface{}{
			"item_id":   item.ID,
			"parent_id": parent.ID,
			"priority":  string(item.Severity),
			"due_at":    item.DueAt.Format(time.RFC3339),
		},
		RelatedItems: []string{item.ID, parent.ID},
	})
	return item
}
