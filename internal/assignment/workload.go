package assignment

import (
	"math"
	"sort"

	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

// AnalyzeWorkloadDistribution scores each caregiver's burden. It reports fairness
// signals only; nothing is reassigned.
func (e *Engine) AnalyzeWorkloadDistribution(members []models.FamilyMember, taskCounts, completedCounts, nightAlertCounts map[string]int) []models.WorkloadAnalysis {
	if len(members) == 0 {
		return []models.WorkloadAnalysis{}
	}

	total := 0
	for _, m := range members {
		total += taskCounts[m.ID]
	}
	avg := float64(total) / float64(len(members))

	wt := e.tuning.Workload
	out := make([]models.WorkloadAnalysis, 0, len(members))
	for _, m := range members {
		tasks := taskCounts[m.ID]
		completed := completedCounts[m.ID]
		nights := nightAlertCounts[m.ID]

		var taskLoad float64
		if avg > 0 {
			taskLoad = math.Min(100, float64(tasks)/avg*50)
		}
		completionLoad := math.Min(100, float64(completed)*wt.CompletionPoints)
		nightLoad := math.Min(100, float64(nights)*wt.NightAlertPoints)

		burden := taskLoad*wt.TaskWeight + completionLoad*wt.CompletionWeight + nightLoad*wt.NightAlertWeight
		burden = math.Round(burden*10) / 10

		rec := models.WorkloadBalanced
		switch {
		case burden >= wt.ReduceThreshold:
			rec = models.WorkloadReduce
		case burden <= wt.CanTakeMoreCutoff:
			rec = models.WorkloadCanTakeMore
		}

		out = append(out, models.WorkloadAnalysis{
			MemberID:       m.ID,
			Name:           m.Name,
			ActiveTasks:    tasks,
			CompletedWeek:  completed,
			NightAlerts:    nights,
			BurdenScore:    burden,
			Recommendation: rec,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BurdenScore > out[j].BurdenScore
	})
	return out
}
