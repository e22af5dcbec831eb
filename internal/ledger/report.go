package ledger

import (
	"sort"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

// MedicalReport summarizes one subject's care events over a period. It is a
// derived view; the ledger stays the source of truth.
type MedicalReport struct {
	SubjectID        string                   `json:"subject_id"`
	Start            time.Time                `json:"start"`
	End              time.Time                `json:"end"`
	GeneratedAt      time.Time                `json:"generated_at"`
	TotalEntries     int                      `json:"total_entries"`
	CompletedTasks   int                      `json:"completed_tasks"`
	Alerts           int                      `json:"alerts"`
	MedicationEvents int                      `json:"medication_events"`
	Triages          int                      `json:"triages"`
	Escalations      int                      `json:"escalations"`
	EmergencyCalls   int                      `json:"emergency_calls"`
	ByEventType      map[models.EventType]int `json:"by_event_type"`
	Entries          []*models.TimelineEntry  `json:"entries"`
}

// ExportForMedicalReport aggregates the subject's entries between start and end
// (inclusive). Entries are listed oldest first.
func (l *Ledger) ExportForMedicalReport(subjectID string, start, end, now time.Time) *MedicalReport {
	entries := l.Find(Query{SubjectID: subjectID, From: start, To: end})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	r := &MedicalReport{
		SubjectID:    subjectID,
		Start:        start,
		End:          end,
		GeneratedAt:  now,
		TotalEntries: len(entries),
		ByEventType:  make(map[models.EventType]int),
		Entries:      entries,
	}
	for _, e := range entries {
		r.ByEventType[e.EventType]++
		switch e.EventType {
		case models.EventTaskCompleted:
			r.CompletedTasks++
		case models.EventAlertCreated:
			r.Alerts++
		case models.EventMedicationEvent:
			r.MedicationEvents++
		case models.EventTriagePerformed:
			r.Triages++
		case models.EventEscalationTriggered:
			r.Escalations++
		case models.EventEmergencyCalled:
			r.EmergencyCalls++
		}
	}
	return r
}
