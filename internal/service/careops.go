package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/assignment"
	"github.com/samalpartha/CareCircle-sub001/internal/config"
	"github.com/samalpartha/CareCircle-sub001/internal/ledger"
	"github.com/samalpartha/CareCircle-sub001/internal/models"
	"github.com/samalpartha/CareCircle-sub001/internal/notifier"
	"github.com/samalpartha/CareCircle-sub001/internal/queue"
	"github.com/samalpartha/CareCircle-sub001/internal/triage"

	"go.uber.org/zap"
)

// Roster supplies the care circle of a subject
type Roster interface {
	ListBySubject(ctx context.Context, subjectID string) ([]*models.FamilyMember, error)
}

// QueueStore is the durable copy of the queue
type QueueStore interface {
	Upsert(ctx context.Context, item *models.QueueItem) error
	CompareAndSwapStatus(ctx context.Context, id string, from, to models.Status, at time.Time) error
	ListOpen(ctx context.Context, familyIDs ...string) ([]*models.QueueItem, error)
	Delete(ctx context.Context, id string) error
}

// OutcomeStore keeps captured outcomes
type OutcomeStore interface {
	Insert(ctx context.Context, o *models.Outcome) error
}

// History reads stored timeline entries back
type History interface {
	ListBySubject(ctx context.Context, subjectID string, from, to time.Time) ([]*models.TimelineEntry, error)
}

// Dispatcher reaches caregivers
type Dispatcher interface {
	DispatchAssignment(item *models.QueueItem, rec *models.AssignmentRecommendation) error
	DispatchEscalation(item *models.QueueItem, plan *models.EscalationPlan) error
	DispatchEmergency(subjectID string, plan *models.ActionPlan) error
}

// Dialer places emergency calls
type Dialer interface {
	Dial(subjectID string, plan *models.ActionPlan) (*notifier.DialResponse, error)
}

// SessionStore keeps triage snapshots between calls
type SessionStore interface {
	Save(ctx context.Context, snap *models.TriageProtocol) error
	Load(ctx context.Context, sessionID string) (*models.TriageProtocol, error)
	Delete(ctx context.Context, sessionID string) error
}

// Deps are the external collaborators. Only Roster is required; a nil store
// keeps that state in memory only.
type Deps struct {
	Roster     Roster
	Queue      QueueStore
	Outcomes   OutcomeStore
	Timeline   ledger.EntryWriter
	History    History
	Dispatcher Dispatcher
	Dialer     Dialer
	Sessions   SessionStore
	Clock      models.Clock
}

// CareOpsService runs the decision engine against its collaborators
type CareOpsService struct {
	tuning *config.Tuning
	deps   Deps
	clock  models.Clock
	logger *zap.Logger

	queue  *queue.Manager
	engine *assignment.Engine
	ledger *ledger.Ledger

	mu          sync.Mutex
	sessions    map[string]*triage.StateMachine
	escalations map[string]*activeEscalation // tier currently notified per item
}

// NewCareOpsService wires the engine components
func NewCareOpsService(tuning *config.Tuning, deps Deps, logger *zap.Logger) (*CareOpsService, error) {
	if deps.Roster == nil {
		return nil, fmt.Errorf("roster is required")
	}
	if tuning == nil {
		tuning = config.DefaultTuning()
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = models.SystemClock{}
	}

	return &CareOpsService{
		tuning:      tuning,
		deps:        deps,
		clock:       clock,
		logger:      logger,
		queue:       queue.NewManager(tuning, clock, logger),
		engine:      assignment.NewEngine(tuning, nil, logger),
		ledger:      ledger.NewLedger(deps.Timeline, logger),
		sessions:    make(map[string]*triage.StateMachine),
		escalations: make(map[string]*activeEscalation),
	}, nil
}

// LoadQueue restores open items from the queue store after a restart
func (s *CareOpsService) LoadQueue(ctx context.Context, familyIDs ...string) (int, error) {
	if s.deps.Queue == nil {
		return 0, nil
	}
	items, err := s.deps.Queue.ListOpen(ctx, familyIDs...)
	if err != nil {
		return 0, fmt.Errorf("failed to load queue: %w", err)
	}
	loaded := 0
	for _, item := range items {
		if err := s.queue.AddItem(item); err != nil {
			s.logger.Warn("Skipped stored queue item",
				zap.String("item_id", item.ID),
				zap.Error(err),
			)
			continue
		}
		loaded++
	}
	s.logger.Info("Queue loaded", zap.Int("items", loaded))
	return loaded, nil
}

// LoadTimeline pulls a subject's stored entries into the ledger; zero bounds are open
func (s *CareOpsService) LoadTimeline(ctx context.Context, subjectID string, from, to time.Time) (int, error) {
	if s.deps.History == nil {
		return 0, nil
	}
	entries, err := s.deps.History.ListBySubject(ctx, subjectID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to load timeline of %s: %w", subjectID, err)
	}
	return s.ledger.Hydrate(entries), nil
}

// IngestAlert queues an alert and assigns it. A duplicate of an open alert is
// suppressed and returns a nil item.
func (s *CareOpsService) IngestAlert(ctx context.Context, a *models.Alert) (*models.QueueItem, error) {
	if a == nil || a.ID == "" || a.SubjectID == "" {
		return nil, models.NewValidationError("alert id and subject id are required")
	}
	item := queue.FromAlert(a, s.clock.Now())

	if dup := s.queue.FindDuplicateAlert(item); dup != nil {
		s.logger.Info("Duplicate alert suppressed",
			zap.String("alert_id", a.ID),
			zap.String("existing_item_id", dup.ID),
			zap.String("alert_type", string(a.Type)),
		)
		return nil, nil
	}

	if err := s.enqueue(ctx, item); err != nil {
		return nil, err
	}
	s.record(ctx, ledger.EntryParams{
		ID:          string(models.EventAlertCreated) + ":" + item.ID,
		FamilyID:    item.FamilyID,
		SubjectID:   item.SubjectID,
		EventType:   models.EventAlertCreated,
		Title:       item.Title,
		Description: item.Description,
		Details: map[string]interface{}{
			"item_id":    item.ID,
			"alert_type": item.Category,
			"severity":   string(item.Severity),
		},
		RelatedItems: []string{item.ID},
	})

	if !item.IsAssigned() {
		if _, err := s.AssignItem(ctx, item.ID); err != nil {
			// the alert stays queued and visible; assignment is retried by hand
			s.logger.Warn("Alert left unassigned",
				zap.String("item_id", item.ID),
				zap.Error(err),
			)
		}
	}
	return s.queue.GetItem(item.ID)
}

// IngestTask queues a care task
func (s *CareOpsService) IngestTask(ctx context.Context, t *models.Task) (*models.QueueItem, error) {
	if t == nil || t.ID == "" || t.SubjectID == "" {
		return nil, models.NewValidationError("task id and subject id are required")
	}
	item := queue.FromTask(t, s.clock.Now())
	return s.ingest(ctx, item, models.EventTaskCreated)
}

// IngestMedication queues a dose to verify
func (s *CareOpsService) IngestMedication(ctx context.Context, m *models.MedicationReminder) (*models.QueueItem, error) {
	if m == nil || m.ID == "" || m.SubjectID == "" {
		return nil, models.NewValidationError("medication id and subject id are required")
	}
	item := queue.FromMedication(m, s.clock.Now())
	return s.ingest(ctx, item, models.EventMedicationEvent)
}

// IngestCheckIn queues a wellness check-in
func (s *CareOpsService) IngestCheckIn(ctx context.Context, c *models.CheckIn) (*models.QueueItem, error) {
	if c == nil || c.ID == "" || c.SubjectID == "" {
		return nil, models.NewValidationError("check-in id and subject id are required")
	}
	item := queue.FromCheckIn(c, s.clock.Now())
	return s.ingest(ctx, item, models.EventTaskCreated)
}

func (s *CareOpsService) ingest(ctx context.Context, item *models.QueueItem, event models.EventType) (*models.QueueItem, error) {
	if err := s.enqueue(ctx, item); err != nil {
		return nil, err
	}
	s.record(ctx, ledger.EntryParams{
		ID:          string(event) + ":" + item.ID,
		FamilyID:    item.FamilyID,
		SubjectID:   item.SubjectID,
		EventType:   event,
		Title:       item.Title,
		Description: item.Description,
		Details: map[string]interface{}{
			"item_id":   item.ID,
			"item_type": string(item.Type),
			"due_at":    item.DueAt.Format(time.RFC3339),
		},
		RelatedItems: []string{item.ID},
	})
	return s.queue.GetItem(item.ID)
}

// enqueue adds item to the queue and the store. A store failure rolls the
// queue back.
func (s *CareOpsService) enqueue(ctx context.Context, item *models.QueueItem) error {
	if err := s.queue.AddItem(item); err != nil {
		return err
	}
	if s.deps.Queue == nil {
		return nil
	}
	stored, err := s.queue.GetItem(item.ID)
	if err != nil {
		return err
	}
	if err := s.deps.Queue.Upsert(ctx, stored); err != nil {
		if rmErr := s.queue.RemoveItem(item.ID); rmErr != nil {
			s.logger.Error("Failed to roll back queue item", zap.String("item_id", item.ID), zap.Error(rmErr))
		}
		return fmt.Errorf("failed to persist queue item %s: %w", item.ID, err)
	}
	return nil
}

// persist writes the current state of an item; failures are logged
func (s *CareOpsService) persist(ctx context.Context, item *models.QueueItem) {
	if s.deps.Queue == nil {
		return
	}
	if err := s.deps.Queue.Upsert(ctx, item); err != nil {
		s.logger.Error("Failed to persist queue item",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
	}
}

// record appends a timeline entry. Audit entries for side events never fail
// the operation that produced them.
func (s *CareOpsService) record(ctx context.Context, p ledger.EntryParams) {
	e, err := ledger.NewTimelineEntry(p, s.clock.Now())
	if err == nil {
		err = s.ledger.AddEntry(ctx, e)
	}
	if errors.Is(err, models.ErrDuplicateRecord) {
		s.logger.Warn("Timeline entry already recorded",
			zap.String("entry_id", p.ID),
			zap.String("event_type", string(p.EventType)),
		)
		return
	}
	if err != nil {
		s.logger.Error("Failed to record timeline entry",
			zap.String("event_type", string(p.EventType)),
			zap.String("subject_id", p.SubjectID),
			zap.Error(err),
		)
	}
}

// members loads the care circle as values for the engine
func (s *CareOpsService) members(ctx context.Context, subjectID string) ([]models.FamilyMember, error) {
	list, err := s.deps.Roster.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load care circle of %s: %w", subjectID, err)
	}
	out := make([]models.FamilyMember, 0, len(list))
	for _, m := range list {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

// Queue returns the filtered, priority-sorted queue for actorID
func (s *CareOpsService) Queue(filters models.QueueFilters, actorID string) []*models.QueueItem {
	return s.queue.GetFilteredItems(filters, actorID)
}

// RemoveItem drops an item from the queue and the store
func (s *CareOpsService) RemoveItem(ctx context.Context, id string) error {
	if err := s.queue.RemoveItem(id); err != nil {
		return err
	}
	s.clearEscalation(id)
	if s.deps.Queue == nil {
		return nil
	}
	if err := s.deps.Queue.Delete(ctx, id); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to delete queue item %s: %w", id, err)
	}
	return nil
}

func (s *CareOpsService) Item(id string) (*models.QueueItem, error) {
	return s.queue.GetItem(id)
}

// StressSignal reports whether the family should switch to stress mode
func (s *CareOpsService) StressSignal() models.StressSignal {
	return s.queue.StressSignal()
}

// SetRiskLevel changes a subject's standing risk; queued items re-rank on next read
func (s *CareOpsService) SetRiskLevel(ctx context.Context, subjectID string, level models.RiskLevel) int {
	n := s.queue.SetRiskLevel(subjectID, level)
	for _, item := range s.queue.Items() {
		if item.SubjectID == subjectID {
			s.persist(ctx, item)
		}
	}
	return n
}

// Timeline queries the ledger
func (s *CareOpsService) Timeline(q ledger.Query) []*models.TimelineEntry {
	return s.ledger.Find(q)
}

// MedicalReport summarizes a subject's care events in [start, end]
func (s *CareOpsService) MedicalReport(subjectID string, start, end time.Time) *ledger.MedicalReport {
	return s.ledger.ExportForMedicalReport(subjectID, start, end, s.clock.Now())
}

// MedicalReportXLSX renders MedicalReport as a workbook
func (s *CareOpsService) MedicalReportXLSX(subjectID string, start, end time.Time) ([]byte, error) {
	return ledger.WriteMedicalReportXLSX(s.MedicalReport(subjectID, start, end))
}

// WorkloadReport scores each caregiver's burden. Active items come from the
// queue; completions and night alerts of the last week come from the timeline,
// which is refreshed from History first.
func (s *CareOpsService) WorkloadReport(ctx context.Context, subjectID string) ([]models.WorkloadAnalysis, error) {
	members, err := s.members(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	weekAgo := now.Add(-7 * 24 * time.Hour)
	if _, err := s.LoadTimeline(ctx, subjectID, weekAgo, time.Time{}); err != nil {
		return nil, err
	}

	active := make(map[string]int)
	for _, item := range s.queue.Items() {
		if item.SubjectID == subjectID && item.IsAssigned() && item.IsOpen() {
			active[item.AssigneeID]++
		}
	}

	completed := make(map[string]int)
	nights := make(map[string]int)
	entries := s.ledger.Find(ledger.Query{
		SubjectID:  subjectID,
		EventTypes: []models.EventType{models.EventTaskCompleted, models.EventTaskAssigned},
		From:       weekAgo,
	})
	for _, e := range entries {
		caregiver := detailString(e, "assignee_id")
		if caregiver == "" {
			caregiver = e.RecordedBy
		}
		if caregiver == "" {
			continue
		}
		switch e.EventType {
		case models.EventTaskCompleted:
			completed[caregiver]++
		case models.EventTaskAssigned:
			if detailString(e, "item_type") == string(models.ItemTypeAlert) && isNight(e.Timestamp) {
				nights[caregiver]++
			}
		}
	}
	return s.engine.AnalyzeWorkloadDistribution(members, active, completed, nights), nil
}

func detailString(e *models.TimelineEntry, key string) string {
	v, _ := e.Details[key].(string)
	return v
}

// isNight covers 22:00 to 06:00
func isNight(t time.Time) bool {
	h := t.Hour()
	return h >= 22 || h < 6
}
