package queue

import (
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

// IsDuplicateAlert reports whether existing suppresses candidate: both open alerts of the
// same category for the same subject, created within window, with existing at least as severe.
func IsDuplicateAlert(existing, candidate *models.QueueItem, window time.Duration) bool {
	if existing.Type != models.ItemTypeAlert || candidate.Type != models.ItemTypeAlert {
		return false
	}
	if existing.ID == candidate.ID || !existing.IsOpen() {
		return false
	}
	if existing.SubjectID != candidate.SubjectID || existing.Category != candidate.Category {
		return false
	}
	gap := candidate.CreatedAt.Sub(existing.CreatedAt)
	if gap < 0 {
		gap = -gap
	}
	if gap > window {
		return false
	}
	return existing.Severity.Rank() <= candidate.Severity.Rank()
}

// FindDuplicateAlert returns the first item in existing that suppresses candidate
func FindDuplicateAlert(existing []*models.QueueItem, candidate *models.QueueItem, window time.Duration) *models.QueueItem {
	for _, e := range existing {
		if IsDuplicateAlert(e, candidate, window) {
			return e
		}
	}
	return nil
}
