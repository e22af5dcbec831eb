package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// CaregiverRepository reads the care circle owned by family management.
// It never writes.
type CaregiverRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCaregiverRepository(db *sql.DB, logger *zap.Logger) *CaregiverRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaregiverRepository{
		db:     db,
		logger: logger,
	}
}

// ListBySubject returns the caregivers in the subject's care circle. Members
// without performance history get a nil Performance.
func (r *CaregiverRepository) ListBySubject(ctx context.Context, subjectID string) ([]*models.FamilyMember, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject_id is required")
	}

	query := `
		SELECT
			fm.id,
			fm.name,
			cc.role,
			fm.postal_code,
			fm.skills,
			fm.availability,
			fm.on_call,
			(SELECT COUNT(*) FROM queue_items qi
			  WHERE qi.assignee_id = fm.id AND qi.status <> 'completed') AS current_tasks,
			cp.completion_rate,
			cp.avg_response_minutes,
			cp.quality_score
		FROM care_circles cc
		JOIN family_members fm ON fm.id = cc.member_id
		LEFT JOIN caregiver_performance cp ON cp.member_id = fm.id
		WHERE cc.subject_id = $1
		ORDER BY fm.name, fm.id
	`
	rows, err := r.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list caregivers: %w", err)
	}
	defer rows.Close()

	out := []*models.FamilyMember{}
	for rows.Next() {
		var m models.FamilyMember
		var role, availability string
		var postal sql.NullString
		var skills pq.StringArray
		var rate, response, quality sql.NullFloat64
		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&role,
			&postal,
			&skills,
			&availability,
			&m.OnCall,
			&m.CurrentTasks,
			&rate,
			&response,
			&quality,
		); err != nil {
			return nil, fmt.Errorf("failed to scan caregiver: %w", err)
		}
		m.Role = models.Role(role)
		m.Availability = models.Availability(availability)
		m.PostalCode = postal.String
		for _, s := range skills {
			m.Skills = append(m.Skills, models.Skill(s))
		}
		if rate.Valid {
			m.Performance = &models.PerformanceHistory{
				CompletionRate:     rate.Float64,
				AvgResponseMinutes: response.Float64,
				QualityScore:       quality.Float64,
			}
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug("Loaded care circle",
		zap.String("subject_id", subjectID),
		zap.Int("caregivers", len(out)),
	)
	return out, nil
}
