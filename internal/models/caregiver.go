package models

// Role is the caregiver's relationship to the subject
type Role string

const (
	RolePrimary    Role = "primary"
	RoleMedicalPOA Role = "medical_poa"
	RoleEmergency  Role = "emergency"
	RoleSecondary  Role = "secondary"
	RoleExtended   Role = "extended"
)

// Availability is the caregiver's current status
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
	AvailabilityOffline   Availability = "offline"
)

// Skill is a capability tag on a caregiver
type Skill string

const (
	SkillMedicalKnowledge   Skill = "medical_knowledge"
	SkillFirstAid           Skill = "first_aid"
	SkillPhysicalAssistance Skill = "physical_assistance"
	SkillDementiaCare       Skill = "dementia_care"
	SkillEmotionalSupport   Skill = "emotional_support"
	SkillSafetyAssessment   Skill = "safety_assessment"
	SkillCooking            Skill = "cooking"
	SkillDriving            Skill = "driving"
	SkillScheduling         Skill = "scheduling"
)

// FamilyMember is a caregiver as supplied by the roster provider (read-only here)
type FamilyMember struct {
	ID           string              `json:"id" db:"id"`
	Name         string              `json:"name" db:"name"`
	Role         Role                `json:"role" db:"role"`
	PostalCode   string              `json:"postal_code,omitempty" db:"postal_code"`
	Skills       []Skill             `json:"skills,omitempty" db:"skills"`
	Availability Availability        `json:"availability" db:"availability"`
	OnCall       bool                `json:"on_call" db:"on_call"`
	CurrentTasks int                 `json:"current_tasks" db:"current_tasks"`
	Performance  *PerformanceHistory `json:"performance,omitempty" db:"-"`
}

// HasSkill reports whether the member carries skill s
func (m *FamilyMember) HasSkill(s Skill) bool {
	for _, have := range m.Skills {
		if have == s {
			return true
		}
	}
	return false
}

// PerformanceHistory is nil for caregivers without a track record
type PerformanceHistory struct {
	CompletionRate     float64 `json:"completion_rate"`      // 0..1
	AvgResponseMinutes float64 `json:"avg_response_minutes"` // mean time to first action
	QualityScore       float64 `json:"quality_score"`        // 0..5
}
