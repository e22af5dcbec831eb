package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// QueueItemRepository persists queue items (queue_items table)
type QueueItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewQueueItemRepository(db *sql.DB, logger *zap.Logger) *QueueItemRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueItemRepository{
		db:     db,
		logger: logger,
	}
}

const queueItemColumns = `
			id,
			item_type,
			category,
			severity,
			title,
			description,
			family_id,
			subject_id,
			subject_name,
			subject_postal_code,
			assignee_id,
			assigned_at,
			due_at,
			estimated_minutes,
			status,
			risk_level,
			escalation_count,
			source_id,
			suggested_action,
			created_at,
			updated_at`

// Upsert inserts the item or refreshes the mutable columns of an existing one.
// Status of an existing row only moves through CompareAndSwapStatus, and the
// escalation count never goes down.
func (r *QueueItemRepository) Upsert(ctx context.Context, item *models.QueueItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("queue item id is required")
	}

	query := `
		INSERT INTO queue_items (` + queueItemColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id) DO UPDATE SET
			severity = EXCLUDED.severity,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			assignee_id = EXCLUDED.assignee_id,
			assigned_at = EXCLUDED.assigned_at,
			due_at = EXCLUDED.due_at,
			estimated_minutes = EXCLUDED.estimated_minutes,
			risk_level = EXCLUDED.risk_level,
			escalation_count = GREATEST(queue_items.escalation_count, EXCLUDED.escalation_count),
			suggested_action = EXCLUDED.suggested_action,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		string(item.Type),
		nullString(item.Category),
		string(item.Severity),
		item.Title,
		nullString(item.Description),
		nullString(item.FamilyID),
		item.SubjectID,
		item.SubjectName,
		nullString(item.SubjectPostalCode),
		nullString(item.AssigneeID),
		nullTime(item.AssignedAt),
		item.DueAt,
		item.EstimatedMinutes,
		string(item.Status),
		string(item.RiskLevel),
		item.EscalationCount,
		nullString(item.SourceID),
		nullString(item.SuggestedAction),
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert queue item",
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to upsert queue item: %w", err)
	}
	return nil
}

// CompareAndSwapStatus moves an item from one status to another only if it is
// still in from. A lost race returns models.ErrInvalidTransition.
func (r *QueueItemRepository) CompareAndSwapStatus(ctx context.Context, id string, from, to models.Status, at time.Time) error {
	query := `
		UPDATE queue_items
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("failed to update queue item status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return &models.TransitionError{From: string(from), To: string(to)}
	}
	return nil
}

func (r *QueueItemRepository) Get(ctx context.Context, id string) (*models.QueueItem, error) {
	query := `
		SELECT` + queueItemColumns + `
		FROM queue_items
		WHERE id = $1
	`
	item, err := scanQueueItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("queue item %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}
	return item, nil
}

func (r *QueueItemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("queue item %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// ListOpen returns every item not yet completed. familyIDs narrows the result
// when non-empty.
func (r *QueueItemRepository) ListOpen(ctx context.Context, familyIDs ...string) ([]*models.QueueItem, error) {
	where := []string{"status <> $1"}
	args := []any{string(models.StatusCompleted)}
	if len(familyIDs) > 0 {
		where = append(where, "family_id = ANY($2)")
		args = append(args, pq.Array(familyIDs))
	}

	query := `
		SELECT` + queueItemColumns + `
		FROM queue_items
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY due_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list open queue items: %w", err)
	}
	defer rows.Close()

	out := []*models.QueueItem{}
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(s rowScanner) (*models.QueueItem, error) {
	var item models.QueueItem
	var itemType, severity, status, risk string
	var category, description, familyID, postal, assignee, sourceID, action sql.NullString
	var assignedAt sql.NullTime

	if err := s.Scan(
		&item.ID,
		&itemType,
		&category,
		&severity,
		&item.Title,
		&description,
		&familyID,
		&item.SubjectID,
		&item.SubjectName,
		&postal,
		&assignee,
		&assignedAt,
		&item.DueAt,
		&item.EstimatedMinutes,
		&status,
		&risk,
		&item.EscalationCount,
		&sourceID,
		&action,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	item.Type = models.ItemType(itemType)
	item.Severity = models.Severity(severity)
	item.Status = models.Status(status)
	item.RiskLevel = models.RiskLevel(risk)
	item.Category = category.String
	item.Description = description.String
	item.FamilyID = familyID.String
	item.SubjectPostalCode = postal.String
	item.AssigneeID = assignee.String
	item.SourceID = sourceID.String
	item.SuggestedAction = action.String
	if assignedAt.Valid {
		t := assignedAt.Time
		item.AssignedAt = &t
	}
	return &item, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
