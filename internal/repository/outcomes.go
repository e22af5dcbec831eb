package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"go.uber.org/zap"
)

// OutcomeRepository stores captured outcomes (outcomes table)
type OutcomeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOutcomeRepository(db *sql.DB, logger *zap.Logger) *OutcomeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeRepository{
		db:     db,
		logger: logger,
	}
}

// Insert writes the outcome once; a second outcome for the same id is rejected
func (r *OutcomeRepository) Insert(ctx context.Context, o *models.Outcome) error {
	evidence, err := marshalJSONB(o.Evidence, "[]")
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	followUps, err := marshalJSONB(o.FollowUps, "[]")
	if err != nil {
		return fmt.Errorf("failed to marshal follow-ups: %w", err)
	}

	query := `
		INSERT INTO outcomes (
			id,
			item_id,
			template_type,
			option,
			result,
			notes,
			evidence,
			recorded_by,
			recorded_at,
			follow_up_required,
			follow_ups,
			next_check_in
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		o.ID,
		o.ItemID,
		string(o.TemplateType),
		o.Option,
		string(o.Result),
		nullString(o.Notes),
		evidence,
		nullString(o.RecordedBy),
		o.RecordedAt,
		o.FollowUpRequired,
		followUps,
		nullTime(o.NextCheckIn),
	)
	if err != nil {
		r.logger.Error("Failed to insert outcome",
			zap.String("outcome_id", o.ID),
			zap.String("item_id", o.ItemID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("outcome %s: %w", o.ID, models.ErrDuplicateRecord)
	}
	return nil
}
