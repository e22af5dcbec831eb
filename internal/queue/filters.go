package queue

import (
	"strings"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

// Keyword tables for the category filters. A category also matches on the alert type.
var categoryKeywords = map[string][]string{
	"medication": {"medication", "medicine", "dose", "pill", "prescription"},
	"cognitive":  {"confus", "memory", "cognitive", "disorient", "dementia", "forget"},
	"safety":     {"fall", "safety", "injur", "wander", "hazard", "bleed"},
}

var categoryAlertTypes = map[string][]string{
	"medication": {string(models.AlertMedication)},
	"cognitive":  {string(models.AlertCognitive), string(models.AlertConfusion)},
	"safety":     {string(models.AlertFall), string(models.AlertSafety), string(models.AlertInjury)},
}

// MatchesCategory reports whether item belongs to a keyword category
func MatchesCategory(item *models.QueueItem, category string) bool {
	if category == "medication" && item.Type == models.ItemTypeMedication {
		return true
	}
	for _, t := range categoryAlertTypes[category] {
		if item.Category == t {
			return true
		}
	}
	title := strings.ToLower(item.Title)
	for _, kw := range categoryKeywords[category] {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

func matches(item *models.QueueItem, f models.QueueFilters, actorID string, now time.Time) bool {
	if !f.IncludeCompleted && !item.IsOpen() {
		return false
	}
	if f.UrgentOnly && item.Severity != models.SeverityUrgent {
		return false
	}
	if f.DueToday && !isDueToday(item.DueAt, now) {
		return false
	}
	if f.AssignedToMe && (actorID == "" || item.AssigneeID != actorID) {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if item.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if MatchesCategory(item, c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// overdue items count as due today
func isDueToday(due, now time.Time) bool {
	if due.IsZero() {
		return false
	}
	if due.Before(now) {
		return true
	}
	d := due.In(now.Location())
	return d.Year() == now.Year() && d.YearDay() == now.YearDay()
}

// lessItems orders by priority desc, severity rank asc, due asc, then id
func lessItems(a, b *models.QueueItem) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
		return ra < rb
	}
	if !a.DueAt.Equal(b.DueAt) {
		if a.DueAt.IsZero() {
			return false
		}
		if b.DueAt.IsZero() {
			return true
		}
		return a.DueAt.Before(b.DueAt)
	}
	return a.ID < b.ID
}
