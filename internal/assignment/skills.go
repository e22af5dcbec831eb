package assignment

import (
	"strings"

	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

// SkillClassifier infers the skills a task needs from its title
type SkillClassifier interface {
	RequiredSkillsFor(title string) []models.Skill
}

// relatedSkiller is optionally implemented by classifiers that know adjacent skills
type relatedSkiller interface {
	RelatedSkillsFor(title string) []models.Skill
}

// TaskCategory is a bucket of the keyword table
type TaskCategory string

const (
	CategoryMedication          TaskCategory = "medication"
	CategoryMedicalAppointment  TaskCategory = "medical_appointment"
	CategoryFallResponse        TaskCategory = "fall_response"
	CategoryCognitiveAssessment TaskCategory = "cognitive_assessment"
	CategoryEmotionalSupport    TaskCategory = "emotional_support"
	CategorySafetyCheck         TaskCategory = "safety_check"
	CategoryNutrition           TaskCategory = "nutrition"
	CategoryTransportation      TaskCategory = "transportation"
	CategoryGeneral             TaskCategory = "general"
)

type categoryRule struct {
	category TaskCategory
	keywords []string
	required []models.Skill
	related  []models.Skill
}

// evaluated in order; a title may hit several categories
var categoryRules = []categoryRule{
	{
		category: CategoryMedication,
		keywords: []string{"medication", "medicine", "pill", "dose", "prescription", "refill"},
		required: []models.Skill{models.SkillMedicalKnowledge},
		related:  []models.Skill{models.SkillScheduling},
	},
	{
		category: CategoryMedicalAppointment,
		keywords: []string{"appointment", "doctor", "clinic", "checkup", "physician"},
		required: []models.Skill{models.SkillMedicalKnowledge, models.SkillScheduling},
		related:  []models.Skill{models.SkillDriving},
	},
	{
		category: CategoryFallResponse,
		keywords: []string{"fall", "fell", "fallen"},
		required: []models.Skill{models.SkillFirstAid, models.SkillPhysicalAssistance},
		related:  []models.Skill{models.SkillMedicalKnowledge},
	},
	{
		category: CategoryCognitiveAssessment,
		keywords: []string{"confus", "memory", "cognitive", "dementia", "disorient"},
		required: []models.Skill{models.SkillDementiaCare},
		related:  []models.Skill{models.SkillEmotionalSupport, models.SkillMedicalKnowledge},
	},
	{
		category: CategoryEmotionalSupport,
		keywords: []string{"lonely", "sad", "depress", "anxious", "emotional", "mood"},
		required: []models.Skill{models.SkillEmotionalSupport},
		related:  []models.Skill{models.SkillDementiaCare},
	},
	{
		category: CategorySafetyCheck,
		keywords: []string{"safety", "hazard", "wander", "smoke", "injur"},
		required: []models.Skill{models.SkillSafetyAssessment},
		related:  []models.Skill{models.SkillPhysicalAssistance, models.SkillFirstAid},
	},
	{
		category: CategoryNutrition,
		keywords: []string{"meal", "food", "eating", "nutrition", "cook", "grocer"},
		required: []models.Skill{models.SkillCooking},
		related:  []models.Skill{models.SkillMedicalKnowledge},
	},
	{
		category: CategoryTransportation,
		keywords: []string{"drive", "ride", "transport", "pick up", "drop off"},
		required: []models.Skill{models.SkillDriving},
		related:  []models.Skill{models.SkillScheduling},
	},
}

// KeywordClassifier matches title substrings against the fixed category table
type KeywordClassifier struct{}

// Categories returns the matched categories, or general when nothing matches
func (KeywordClassifier) Categories(title string) []TaskCategory {
	var out []TaskCategory
	for _, rule := range matchRules(title) {
		out = append(out, rule.category)
	}
	if len(out) == 0 {
		return []TaskCategory{CategoryGeneral}
	}
	return out
}

func (KeywordClassifier) RequiredSkillsFor(title string) []models.Skill {
	var out []models.Skill
	for _, rule := range matchRules(title) {
		out = appendUnique(out, rule.required...)
	}
	return out
}

func (k KeywordClassifier) RelatedSkillsFor(title string) []models.Skill {
	required := k.RequiredSkillsFor(title)
	var out []models.Skill
	for _, rule := range matchRules(title) {
		for _, s := range rule.related {
			if !containsSkill(required, s) {
				out = appendUnique(out, s)
			}
		}
	}
	return out
}

func matchRules(title string) []categoryRule {
	lower := strings.ToLower(title)
	var out []categoryRule
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, rule)
				break
			}
		}
	}
	return out
}

func appendUnique(list []models.Skill, skills ...models.Skill) []models.Skill {
	for _, s := range skills {
		if !containsSkill(list, s) {
			list = append(list, s)
		}
	}
	return list
}

func containsSkill(list []models.Skill, s models.Skill) bool {
	for _, have := range list {
		if have == s {
			return true
		}
	}
	return false
}
