package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"go.uber.org/zap"
)

// TimelineRepository is the durable side of the ledger. Rows are never updated
// or deleted.
type TimelineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewTimelineRepository(db *sql.DB, logger *zap.Logger) *TimelineRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimelineRepository{
		db:     db,
		logger: logger,
	}
}

// InsertTimelineEntry writes e once. An existing id yields models.ErrDuplicateRecord.
func (r *TimelineRepository) InsertTimelineEntry(ctx context.Context, e *models.TimelineEntry) error {
	details, err := marshalJSONB(e.Details, "{}")
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}
	evidence, err := marshalJSONB(e.Evidence, "[]")
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	related, err := marshalJSONB(e.RelatedItems, "[]")
	if err != nil {
		return fmt.Errorf("failed to marshal related items: %w", err)
	}

	query := `
		INSERT INTO timeline_entries (
			id,
			family_id,
			subject_id,
			occurred_at,
			event_type,
			title,
			description,
			details,
			recorded_by,
			evidence,
			related_items,
			immutable
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		e.ID,
		nullString(e.FamilyID),
		e.SubjectID,
		e.Timestamp,
		string(e.EventType),
		e.Title,
		nullString(e.Description),
		details,
		nullString(e.RecordedBy),
		evidence,
		related,
		true,
	)
	if err != nil {
		return fmt.Errorf("failed to insert timeline entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		r.logger.Warn("Timeline entry already exists",
			zap.String("entry_id", e.ID),
		)
		return fmt.Errorf("timeline entry %s: %w", e.ID, models.ErrDuplicateRecord)
	}
	return nil
}

// ListBySubject returns the subject's entries in [from, to], newest first.
// A zero bound is open.
func (r *TimelineRepository) ListBySubject(ctx context.Context, subjectID string, from, to time.Time) ([]*models.TimelineEntry, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject_id is required")
	}

	query := `
		SELECT
			id,
			family_id,
			subject_id,
			occurred_at,
			event_type,
			title,
			description,
			details,
			recorded_by,
			evidence,
			related_items,
			immutable
		FROM timeline_entries
		WHERE subject_id = $1
		  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
		  AND ($3::timestamptz IS NULL OR occurred_at <= $3)
		ORDER BY occurred_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, subjectID, boundTime(from), boundTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline entries: %w", err)
	}
	defer rows.Close()

	out := []*models.TimelineEntry{}
	for rows.Next() {
		var e models.TimelineEntry
		var eventType string
		var familyID, description, recordedBy sql.NullString
		var details, evidence, related []byte
		if err := rows.Scan(
			&e.ID,
			&familyID,
			&e.SubjectID,
			&e.Timestamp,
			&eventType,
			&e.Title,
			&description,
			&details,
			&recordedBy,
			&evidence,
			&related,
			&e.Immutable,
		); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		e.EventType = models.EventType(eventType)
		e.FamilyID = familyID.String
		e.Description = description.String
		e.RecordedBy = recordedBy.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to decode details of %s: %w", e.ID, err)
			}
		}
		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &e.Evidence); err != nil {
				return nil, fmt.Errorf("failed to decode evidence of %s: %w", e.ID, err)
			}
		}
		if len(related) > 0 {
			if err := json.Unmarshal(related, &e.RelatedItems); err != nil {
				return nil, fmt.Errorf("failed to decode related items of %s: %w", e.ID, err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// marshalJSONB encodes v for a JSONB column, using empty for nil values
func marshalJSONB(v any, empty string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte(empty), nil
	}
	return b, nil
}

func boundTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
