package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"go.uber.org/zap"
)

// EntryWriter persists entries durably. It must reject an existing id with
// models.ErrDuplicateRecord.
type EntryWriter interface {
	InsertTimelineEntry(ctx context.Context, e *models.TimelineEntry) error
}

// Ledger is the append-only timeline store. Entries are write-once by id and
// reads return copies.
type Ledger struct {
	writer EntryWriter
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]*models.TimelineEntry
	pending map[string]struct{}
}

// NewLedger creates a ledger. writer may be nil for a memory-only ledger.
func NewLedger(writer EntryWriter, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		writer:  writer,
		logger:  logger,
		entries: make(map[string]*models.TimelineEntry),
		pending: make(map[string]struct{}),
	}
}

// AddEntry stores e once. Re-adding an id fails with models.ErrDuplicateRecord
// and leaves the stored entry untouched. The durable write happens first; the
// entry becomes visible only if it succeeds.
func (l *Ledger) AddEntry(ctx context.Context, e *models.TimelineEntry) error {
	if e == nil || e.ID == "" {
		return models.NewValidationError("timeline entry id is required")
	}
	if !e.Immutable {
		return models.NewValidationError("timeline entry must be immutable")
	}
	if !e.EventType.Valid() {
		return models.NewValidationError(fmt.Sprintf("unknown event type %q", e.EventType))
	}

	l.mu.Lock()
	_, stored := l.entries[e.ID]
	_, inFlight := l.pending[e.ID]
	if stored || inFlight {
		l.mu.Unlock()
		return fmt.Errorf("timeline entry %s: %w", e.ID, models.ErrDuplicateRecord)
	}
	l.pending[e.ID] = struct{}{}
	l.mu.Unlock()

	entry := e.Clone()
	var err error
	if l.writer != nil {
		err = l.writer.InsertTimelineEntry(ctx, entry)
	}

	l.mu.Lock()
	delete(l.pending, e.ID)
	if err == nil {
		l.entries[e.ID] = entry
	}
	l.mu.Unlock()

	if err != nil {
		if errors.Is(err, models.ErrDuplicateRecord) {
			return err
		}
		l.logger.Error("Failed to persist timeline entry",
			zap.String("entry_id", e.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to persist timeline entry %s: %w", e.ID, err)
	}

	l.logger.Info("Timeline entry recorded",
		zap.String("entry_id", e.ID),
		zap.String("event_type", string(e.EventType)),
		zap.String("subject_id", e.SubjectID),
	)
	return nil
}

// Hydrate loads entries already persisted elsewhere. Ids that are present are skipped.
func (l *Ledger) Hydrate(entries []*models.TimelineEntry) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		if _, ok := l.entries[e.ID]; ok {
			continue
		}
		l.entries[e.ID] = e.Clone()
		n++
	}
	return n
}

// Get returns a copy of one entry
func (l *Ledger) Get(id string) (*models.TimelineEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("timeline entry %s: %w", id, models.ErrNotFound)
	}
	return e.Clone(), nil
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Query selects entries; zero fields do not filter. From and To are inclusive.
type Query struct {
	SubjectID  string
	FamilyID   string
	EventTypes []models.EventType
	From       time.Time
	To         time.Time
	RecordedBy string
	Text       string
	Limit      int
}

func (q Query) matches(e *models.TimelineEntry) bool {
	if q.SubjectID != "" && e.SubjectID != q.SubjectID {
		return false
	}
	if q.FamilyID != "" && e.FamilyID != q.FamilyID {
		return false
	}
	if len(q.EventTypes) > 0 {
		found := false
		for _, t := range q.EventTypes {
			if e.EventType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !q.From.IsZero() && e.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.Timestamp.After(q.To) {
		return false
	}
	if q.RecordedBy != "" && e.RecordedBy != q.RecordedBy {
		return false
	}
	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(e.Title), needle) &&
			!strings.Contains(strings.ToLower(e.Description), needle) {
			return false
		}
	}
	return true
}

// Find returns matching entries newest first
func (l *Ledger) Find(q Query) []*models.TimelineEntry {
	l.mu.RLock()
	out := make([]*models.TimelineEntry, 0)
	for _, e := range l.entries {
		if q.matches(e) {
			out = append(out, e.Clone())
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (l *Ledger) BySubject(subjectID string) []*models.TimelineEntry {
	return l.Find(Query{SubjectID: subjectID})
}

func (l *Ledger) ByFamily(familyID string) []*models.TimelineEntry {
	return l.Find(Query{FamilyID: familyID})
}

func (l *Ledger) ByEventType(types ...models.EventType) []*models.TimelineEntry {
	return l.Find(Query{EventTypes: types})
}

func (l *Ledger) ByDateRange(from, to time.Time) []*models.TimelineEntry {
	return l.Find(Query{From: from, To: to})
}

func (l *Ledger) ByCaregiver(caregiverID string) []*models.TimelineEntry {
	return l.Find(Query{RecordedBy: caregiverID})
}

// Search matches text against title and description, case-insensitively
func (l *Ledger) Search(text string) []*models.TimelineEntry {
	return l.Find(Query{Text: text})
}
