package queue

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/config"
	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"go.uber.org/zap"
)

// CommitFunc persists a status change while the item lock is held.
// Returning an error leaves the in-memory item untouched.
type CommitFunc func(before, after *models.QueueItem) error

type entry struct {
	mu   sync.Mutex
	item *models.QueueItem
}

// Manager holds the open queue items. Transitions on one item are serialized;
// different items do not contend beyond the map lock.
type Manager struct {
	tuning *config.Tuning
	clock  models.Clock
	logger *zap.Logger

	mu    sync.RWMutex
	items map[string]*entry
}

// NewManager creates an empty queue
func NewManager(tuning *config.Tuning, clock models.Clock, logger *zap.Logger) *Manager {
	if tuning == nil {
		tuning = config.DefaultTuning()
	}
	if clock == nil {
		clock = models.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		tuning: tuning,
		clock:  clock,
		logger: logger,
		items:  make(map[string]*entry),
	}
}

// AddItem stores a copy of item. Ids are unique.
func (m *Manager) AddItem(item *models.QueueItem) error {
	if err := validateItem(item); err != nil {
		return err
	}

	stored := item.Clone()
	if stored.Status == "" {
		stored.Status = models.StatusNew
	}
	stored.RiskLevel = riskOrDefault(stored.RiskLevel)
	now := m.clock.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[stored.ID]; exists {
		return fmt.Errorf("queue item %s: %w", stored.ID, models.ErrDuplicateRecord)
	}
	m.items[stored.ID] = &entry{item: stored}

	m.logger.Debug("Queue item added",
		zap.String("item_id", stored.ID),
		zap.String("type", string(stored.Type)),
		zap.String("severity", string(stored.Severity)),
	)
	return nil
}

// RemoveItem drops an item from the queue
func (m *Manager) RemoveItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("queue item %s: %w", id, models.ErrNotFound)
	}
	delete(m.items, id)
	return nil
}

// GetItem returns a copy with a freshly computed priority
func (m *Manager) GetItem(id string) (*models.QueueItem, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	item := e.item.Clone()
	e.mu.Unlock()

	item.Priority = Score(item, m.clock.Now(), &m.tuning.Priority)
	return item, nil
}

// UpdatePriority recomputes and returns the priority of id
func (m *Manager) UpdatePriority(id string) (int, error) {
	item, err := m.GetItem(id)
	if err != nil {
		return 0, err
	}
	return item.Priority, nil
}

// Assign sets the owner of an open item and restarts its response clock
func (m *Manager) Assign(id, assigneeID string) (*models.QueueItem, error) {
	return m.update(id, func(item *models.QueueItem, now time.Time) error {
		if !item.IsOpen() {
			return models.NewValidationError(fmt.Sprintf("item %s is completed", id))
		}
		item.AssigneeID = assigneeID
		if assigneeID == "" {
			item.AssignedAt = nil
		} else {
			at := now
			item.AssignedAt = &at
		}
		return nil
	})
}

// SetRiskLevel updates every item of a subject; returns the number changed
func (m *Manager) SetRiskLevel(subjectID string, level models.RiskLevel) int {
	level = riskOrDefault(level)
	now := m.clock.Now()
	changed := 0
	for _, e := range m.entries() {
		e.mu.Lock()
		if e.item.SubjectID == subjectID && e.item.RiskLevel != level {
			e.item.RiskLevel = level
			e.item.UpdatedAt = now
			changed++
		}
		e.mu.Unlock()
	}
	return changed
}

// TransitionStatus applies a validated status change
func (m *Manager) TransitionStatus(id string, to models.Status) (*models.QueueItem, error) {
	return m.TransitionStatusWith(id, to, nil)
}

// TransitionStatusWith is TransitionStatus with a write-through commit hook
func (m *Manager) TransitionStatusWith(id string, to models.Status, commit CommitFunc) (*models.QueueItem, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.item.Status
	if err := ValidateTransition(from, to); err != nil {
		m.logger.Debug("Rejected status transition",
			zap.String("item_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return nil, err
	}

	now := m.clock.Now()
	next := e.item.Clone()
	next.Status = to
	next.UpdatedAt = now
	if to == models.StatusEscalated {
		next.EscalationCount++
	}

	if commit != nil {
		if err := commit(e.item.Clone(), next.Clone()); err != nil {
			return nil, fmt.Errorf("failed to commit transition of %s: %w", id, err)
		}
	}
	e.item = next

	m.logger.Info("Queue item status changed",
		zap.String("item_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("escalation_count", next.EscalationCount),
	)

	out := next.Clone()
	out.Priority = Score(out, now, &m.tuning.Priority)
	return out, nil
}

// GetFilteredItems returns matching items sorted by priority
func (m *Manager) GetFilteredItems(filters models.QueueFilters, actorID string) []*models.QueueItem {
	now := m.clock.Now()
	var out []*models.QueueItem
	for _, item := range m.snapshot(now) {
		if matches(item, filters, actorID, now) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessItems(out[i], out[j]) })
	return out
}

// Items returns every item, completed included, sorted by priority
func (m *Manager) Items() []*models.QueueItem {
	return m.GetFilteredItems(models.QueueFilters{IncludeCompleted: true}, "")
}

// InFlight returns assigned items still awaiting action (new or escalated)
func (m *Manager) InFlight() []*models.QueueItem {
	var out []*models.QueueItem
	for _, item := range m.snapshot(m.clock.Now()) {
		if !item.IsAssigned() || item.AssignedAt == nil {
			continue
		}
		if item.Status == models.StatusNew || item.Status == models.StatusEscalated {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessItems(out[i], out[j]) })
	return out
}

// FindDuplicateAlert returns an open alert that suppresses candidate, if any
func (m *Manager) FindDuplicateAlert(candidate *models.QueueItem) *models.QueueItem {
	window := time.Duration(m.tuning.DuplicateAlertWindowMinutes) * time.Minute
	return FindDuplicateAlert(m.snapshot(m.clock.Now()), candidate, window)
}

// StressSignal counts urgent and overdue open items against the tuning thresholds
func (m *Manager) StressSignal() models.StressSignal {
	now := m.clock.Now()
	var sig models.StressSignal
	for _, item := range m.snapshot(now) {
		if !item.IsOpen() {
			continue
		}
		sig.OpenCount++
		if item.Severity == models.SeverityUrgent {
			sig.UrgentCount++
		}
		if !item.DueAt.IsZero() && item.DueAt.Before(now) {
			sig.OverdueCount++
		}
	}
	st := m.tuning.Stress
	sig.Suggest = sig.UrgentCount >= st.UrgentItems || sig.OverdueCount >= st.OverdueItems
	return sig
}

// EvictCompleted drops completed items last updated before cutoff and returns
// how many were removed
func (m *Manager) EvictCompleted(cutoff time.Time) int {
	var stale []*entry
	for _, e := range m.entries() {
		e.mu.Lock()
		if e.item.Status == models.StatusCompleted && e.item.UpdatedAt.Before(cutoff) {
			stale = append(stale, e)
		}
		e.mu.Unlock()
	}
	if len(stale) == 0 {
		return 0
	}

	// completed is terminal, so a stale entry cannot change under us
	evicted := 0
	m.mu.Lock()
	for _, e := range stale {
		if m.items[e.item.ID] == e {
			delete(m.items, e.item.ID)
			evicted++
		}
	}
	m.mu.Unlock()

	m.logger.Debug("Completed items evicted", zap.Int("count", evicted))
	return evicted
}

// Len returns the number of stored items
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Manager) update(id string, fn func(item *models.QueueItem, now time.Time) error) (*models.QueueItem, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.clock.Now()
	next := e.item.Clone()
	if err := fn(next, now); err != nil {
		return nil, err
	}
	next.UpdatedAt = now
	e.item = next

	out := next.Clone()
	out.Priority = Score(out, now, &m.tuning.Priority)
	return out, nil
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("queue item %s: %w", id, models.ErrNotFound)
	}
	return e, nil
}

func (m *Manager) entries() []*entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entry, 0, len(m.items))
	for _, e := range m.items {
		out = append(out, e)
	}
	return out
}

func (m *Manager) snapshot(now time.Time) []*models.QueueItem {
	entries := m.entries()
	out := make([]*models.QueueItem, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		item := e.item.Clone()
		e.mu.Unlock()
		item.Priority = Score(item, now, &m.tuning.Priority)
		out = append(out, item)
	}
	return out
}

func validateItem(item *models.QueueItem) error {
	if item == nil {
		return models.NewValidationError("item is required")
	}
	var problems []string
	if item.ID == "" {
		problems = append(problems, "id is required")
	}
	if !item.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown item type %q", item.Type))
	}
	if !item.Severity.Valid() {
		problems = append(problems, fmt.Sprintf("unknown severity %q", item.Severity))
	}
	if item.Title == "" {
		problems = append(problems, "title is required")
	}
	if len(problems) > 0 {
		return models.NewValidationError(problems...)
	}
	return nil
}
