package triage

import (
	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

var (
	fallNeedsCare      = AnyOf(AtLeast("pain_level_initial", 6), No("mobility_status"))
	injuryNeedsCare    = AnyOf(AtLeast("pain_scale", 7), Equals("bleeding_severity", "Moderate bleeding"))
	confusionNeedsCare = AnyOf(Equals("confusion_onset", "Suddenly (minutes)"), Yes("medication_changes"))
)

func checklist(items ...string) []models.ChecklistItem {
	out := make([]models.ChecklistItem, len(items))
	for i, t := range items {
		out[i] = models.ChecklistItem{Text: t, Required: true}
	}
	return out
}

func emergencyPlan(t models.ProtocolType, subject Subject, r Responses) *models.ActionPlan {
	return &models.ActionPlan{
		Recommendation: models.RecommendCall911,
		UrgencyLevel:   10,
		Timeframe:      "Immediate",
		CallScript:     BuildCallScript(t, subject, r),
		Checklist: []string{
			"Call 911 and read the call script",
			"Stay with the elder until responders arrive",
			"Do not move the elder unless they are in danger",
			"Unlock the door and turn on outside lights",
		},
		FollowUpTasks: []models.FollowUpTask{{
			Title:            "Follow up on emergency response",
			Description:      "Contact family members and track emergency services response",
			Priority:         models.SeverityUrgent,
			EstimatedMinutes: 15,
			DueInHours:       1,
			Checklist: checklist(
				"Confirm ambulance arrival",
				"Notify primary family contacts",
				"Gather medical information for hospital",
			),
		}},
	}
}

func protocolPlan(t models.ProtocolType, subject Subject, r Responses) *models.ActionPlan {
	var plan *models.ActionPlan
	switch t {
	case models.ProtocolFall:
		plan = fallPlan(r)
	case models.ProtocolInjury:
		plan = injuryPlan(r)
	case models.ProtocolChestPain:
		plan = chestPainPlan()
	case models.ProtocolConfusion:
		plan = confusionPlan(r)
	default:
		plan = &models.ActionPlan{
			Recommendation: models.RecommendMonitor,
			UrgencyLevel:   3,
			Timeframe:      "Within 24 hours",
		}
		plan.CallScript = &models.CallScript{Script: "Continue monitoring the situation and contact healthcare provider if symptoms worsen."}
	}

	if plan.CallScript != nil {
		full := BuildCallScript(t, subject, r)
		plan.CallScript.KeyInformation = full.KeyInformation
		plan.CallScript.CurrentCondition = full.CurrentCondition
	}
	if plan.FollowUpTasks == nil {
		plan.FollowUpTasks = []models.FollowUpTask{}
	}
	return plan
}

func fallPlan(r Responses) *models.ActionPlan {
	if fallNeedsCare.Eval(r) {
		return &models.ActionPlan{
			Recommendation: models.RecommendUrgentCare,
			UrgencyLevel:   7,
			Timeframe:      "Within 2 hours",
			CallScript:     &models.CallScript{Script: "The elder has fallen and is experiencing significant pain or mobility issues. Please arrange for urgent medical evaluation."},
			FollowUpTasks: []models.FollowUpTask{{
				Title:            "Arrange urgent care visit",
				Description:      "Schedule and transport to urgent care facility",
				Priority:         models.SeverityHigh,
				EstimatedMinutes: 60,
				DueInHours:       2,
				Checklist: checklist(
					"Call urgent care to confirm availability",
					"Arrange transportation",
					"Gather insurance and medication information",
				),
			}},
		}
	}
	return &models.ActionPlan{
		Recommendation: models.RecommendMonitor,
		UrgencyLevel:   4,
		Timeframe:      "Monitor for 24 hours",
		CallScript:     &models.CallScript{Script: "The elder appears stable after the fall. Continue monitoring for any changes in condition."},
		FollowUpTasks: []models.FollowUpTask{{
			Title:            "Monitor post-fall condition",
			Description:      "Check on elder regularly for next 24 hours",
			Priority:         models.SeverityMedium,
			EstimatedMinutes: 10,
			DueInHours:       4,
			Checklist: checklist(
				"Check pain level every 4 hours",
				"Monitor mobility and balance",
				"Watch for signs of delayed injury",
			),
		}},
	}
}

func injuryPlan(r Responses) *models.ActionPlan {
	if injuryNeedsCare.Eval(r) {
		return &models.ActionPlan{
			Recommendation: models.RecommendUrgentCare,
			UrgencyLevel:   6,
			Timeframe:      "Within 4 hours",
			CallScript:     &models.CallScript{Script: "The elder has sustained an injury requiring medical attention. Please arrange for urgent care evaluation."},
			FollowUpTasks: []models.FollowUpTask{{
				Title:            "Arrange injury evaluation",
				Description:      "Get the injury examined at urgent care",
				Priority:         models.SeverityHigh,
				EstimatedMinutes: 60,
				DueInHours:       4,
				Checklist: checklist(
					"Apply first aid and keep the area clean",
					"Arrange transportation",
					"Bring current medication list",
				),
			}},
		}
	}
	return &models.ActionPlan{
		Recommendation: models.RecommendMonitor,
		UrgencyLevel:   3,
		Timeframe:      "Monitor closely",
		CallScript:     &models.CallScript{Script: "The injury appears minor. Continue monitoring and provide basic first aid as needed."},
		FollowUpTasks: []models.FollowUpTask{{
			Title:            "Check on minor injury",
			Description:      "Look for swelling, infection or increased pain",
			Priority:         models.SeverityMedium,
			EstimatedMinutes: 10,
			DueInHours:       8,
			Checklist:        checklist("Check the injury site", "Ask about pain level"),
		}},
	}
}

func chestPainPlan() *models.ActionPlan {
	return &models.ActionPlan{
		Recommendation: models.RecommendUrgentCare,
		UrgencyLevel:   8,
		Timeframe:      "Within 1 hour",
		CallScript:     &models.CallScript{Script: "The elder is experiencing chest pain. Given the potential cardiac implications, please arrange for immediate medical evaluation."},
		FollowUpTasks: []models.FollowUpTask{{
			Title:            "Urgent cardiac evaluation",
			Description:      "Ensure immediate medical assessment for chest pain",
			Priority:         models.SeverityUrgent,
			EstimatedMinutes: 30,
			DueInHours:       1,
			Checklist: checklist(
				"Contact primary care physician",
				"Prepare cardiac medication list",
				"Monitor vital signs if possible",
			),
		}},
	}
}

func confusionPlan(r Responses) *models.ActionPlan {
	if confusionNeedsCare.Eval(r) {
		return &models.ActionPlan{
			Recommendation: models.RecommendUrgentCare,
			UrgencyLevel:   7,
			Timeframe:      "Within 2 hours",
			CallScript:     &models.CallScript{Script: "The elder is experiencing confusion that may require immediate medical evaluation to rule out serious causes."},
			FollowUpTasks: []models.FollowUpTask{{
				Title:            "Arrange evaluation for confusion",
				Description:      "Rule out infection, medication effects or stroke",
				Priority:         models.SeverityHigh,
				EstimatedMinutes: 60,
				DueInHours:       2,
				Checklist: checklist(
					"Bring list of recent medication changes",
					"Note when the confusion started",
					"Arrange transportation",
				),
			}},
		}
	}
	return &models.ActionPlan{
		Recommendation: models.RecommendNurseLine,
		UrgencyLevel:   5,
		Timeframe:      "Within 4 hours",
		CallScript:     &models.CallScript{Script: "The elder is experiencing confusion. Please contact the nurse line or primary care provider for guidance."},
		FollowUpTasks: []models.FollowUpTask{{
			Title:            "Call nurse line about confusion",
			Description:      "Describe symptoms and follow the nurse's guidance",
			Priority:         models.SeverityMedium,
			EstimatedMinutes: 20,
			DueInHours:       4,
			Checklist:        checklist("Describe onset and duration", "Ask whether a same-day visit is needed"),
		}},
	}
}
