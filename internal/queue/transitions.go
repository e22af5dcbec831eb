package queue

import (
	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

var transitions = map[models.Status][]models.Status{
	models.StatusNew:        {models.StatusInProgress, models.StatusSnoozed, models.StatusEscalated},
	models.StatusInProgress: {models.StatusCompleted, models.StatusSnoozed, models.StatusEscalated},
	models.StatusSnoozed:    {models.StatusNew, models.StatusInProgress, models.StatusEscalated},
	models.StatusEscalated:  {models.StatusInProgress, models.StatusCompleted},
	models.StatusCompleted:  {},
}

// AllowedTransitions returns the legal next states of from
func AllowedTransitions(from models.Status) []models.Status {
	allowed := transitions[from]
	out := make([]models.Status, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransition reports whether from -> to is in the table
func CanTransition(from, to models.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *models.TransitionError for illegal moves
func ValidateTransition(from, to models.Status) error {
	if CanTransition(from, to) {
		return nil
	}
	allowed := transitions[from]
	names := make([]string, 0, len(allowed))
	for _, s := range allowed {
		names = append(names, string(s))
	}
	return &models.TransitionError{From: string(from), To: string(to), Allowed: names}
}
