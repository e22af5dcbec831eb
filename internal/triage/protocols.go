package triage

import (
	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

func init() {
	register(fallProtocol())
	register(injuryProtocol())
	register(chestPainProtocol())
	register(confusionProtocol())
}

func yesNo(id, text string, critical bool) Question {
	return Question{ID: id, Text: text, Type: QuestionYesNo, Required: true, Critical: critical}
}

func scale(id, text string, critical bool) Question {
	return Question{ID: id, Text: text, Type: QuestionScale, Required: true, Critical: critical}
}

func choice(id, text string, critical bool, options ...string) Question {
	return Question{ID: id, Text: text, Type: QuestionMultipleChoice, Required: true, Critical: critical, Options: options}
}

func text(id, prompt string, required bool) Question {
	return Question{ID: id, Text: prompt, Type: QuestionText, Required: required}
}

func actionPlanStep(q Question) Step {
	return Step{
		Number:      3,
		Title:       "Action Plan Generation",
		Questions:   []Question{q},
		Transitions: []Transition{{When: Always(), Next: GoTo(4)}},
	}
}

func outcomeStep(questions ...Question) Step {
	return Step{
		Number:      4,
		Title:       "Outcome Capture",
		Questions:   questions,
		Transitions: []Transition{{When: Always(), Next: ToComplete}},
	}
}

func fallProtocol() *Protocol {
	critical := AnyOf(No("consciousness"), Yes("severe_injury"), AtLeast("pain_level_initial", 8))
	secondary := AnyOf(Yes("head_injury_check"), Yes("confusion_check"))

	return mustDefine(models.ProtocolFall,
		Step{
			Number: 1,
			Title:  "Immediate Safety Check",
			Questions: []Question{
				yesNo("consciousness", "Is the elder conscious and breathing normally?", true),
				yesNo("severe_injury", "Is there severe bleeding, head injury, or inability to move?", true),
				scale("pain_level_initial", "On a scale of 1-10, how severe is the pain?", false),
			},
			CriticalFlags: []Condition{critical},
			Transitions: []Transition{
				{When: critical, Next: ToEmergency},
				{When: AllOf(Yes("consciousness"), No("severe_injury"), Below("pain_level_initial", 8)), Next: GoTo(2)},
			},
		},
		Step{
			Number: 2,
			Title:  "Rapid Assessment",
			Questions: []Question{
				choice("pain_location", "Where is the pain located?", false,
					"Head/Neck", "Back/Spine", "Hip/Pelvis", "Arm/Shoulder", "Leg/Knee", "Other"),
				yesNo("mobility_status", "Can the elder move without assistance?", false),
				yesNo("current_medications", "Is the elder taking blood thinners or other medications?", false),
				yesNo("head_injury_check", "Did the elder hit their head during the fall?", true),
				yesNo("confusion_check", "Is the elder confused or disoriented?", true),
			},
			CriticalFlags: []Condition{secondary},
			Transitions: []Transition{
				{When: secondary, Next: ToEmergency},
				{When: No("mobility_status"), Next: ToEmergency},
				{When: Always(), Next: GoTo(3)},
			},
		},
		actionPlanStep(choice("action_preference", "Based on the assessment, what action would you prefer?", false,
			"Call 911", "Go to Urgent Care", "Call Nurse Line", "Monitor at Home")),
		outcomeStep(
			text("action_taken", "What action was taken?", true),
			yesNo("emergency_called", "Were emergency services called?", false),
			text("outcome_notes", "Additional notes about the outcome:", false),
		),
	)
}

func injuryProtocol() *Protocol {
	critical := AnyOf(No("consciousness"), Equals("bleeding_severity", "Severe bleeding"), No("breathing_status"))
	severePain := AtLeast("pain_scale", 8)

	return mustDefine(models.ProtocolInjury,
		Step{
			Number: 1,
			Title:  "Immediate Safety Check",
			Questions: []Question{
				yesNo("consciousness", "Is the elder conscious and alert?", true),
				choice("bleeding_severity", "Is there active bleeding?", true,
					"No bleeding", "Minor bleeding", "Moderate bleeding", "Severe bleeding"),
				yesNo("breathing_status", "Is breathing normal and unlabored?", true),
			},
			CriticalFlags: []Condition{critical},
			Transitions: []Transition{
				{When: critical, Next: ToEmergency},
				{When: Always(), Next: GoTo(2)},
			},
		},
		Step{
			Number: 2,
			Title:  "Rapid Assessment",
			Questions: []Question{
				choice("injury_location", "Where is the injury located?", false,
					"Head/Face", "Neck", "Chest", "Abdomen", "Arms", "Legs", "Back"),
				scale("pain_scale", "Pain level (0-10 scale):", false),
				yesNo("mobility_affected", "Is mobility affected by the injury?", false),
				yesNo("swelling_present", "Is there visible swelling or deformity?", false),
			},
			CriticalFlags: []Condition{severePain},
			Transitions: []Transition{
				{When: severePain, Next: ToEmergency},
				{When: Always(), Next: GoTo(3)},
			},
		},
		actionPlanStep(choice("recommended_action", "Recommended next step:", false,
			"Emergency Room", "Urgent Care", "Primary Care", "Home Care")),
		outcomeStep(
			text("action_taken", "Action taken:", true),
			yesNo("emergency_called", "Were emergency services contacted?", false),
			yesNo("follow_up_needed", "Is follow-up care needed?", false),
		),
	)
}

func chestPainProtocol() *Protocol {
	critical := AnyOf(No("consciousness"), AtLeast("chest_pain_severity", 7), Yes("breathing_difficulty"), Yes("sweating_nausea"))

	return mustDefine(models.ProtocolChestPain,
		Step{
			Number: 1,
			Title:  "Immediate Safety Check",
			Questions: []Question{
				yesNo("consciousness", "Is the elder conscious and responsive?", true),
				scale("chest_pain_severity", "How severe is the chest pain (0-10)?", true),
				yesNo("breathing_difficulty", "Is there difficulty breathing or shortness of breath?", true),
				yesNo("sweating_nausea", "Is there sweating, nausea, or dizziness?", true),
			},
			CriticalFlags: []Condition{critical},
			Transitions: []Transition{
				{When: critical, Next: ToEmergency},
				{When: Always(), Next: GoTo(2)},
			},
		},
		Step{
			Number: 2,
			Title:  "Rapid Assessment",
			Questions: []Question{
				choice("pain_duration", "How long has the chest pain been present?", false,
					"Less than 5 minutes", "5-15 minutes", "15-30 minutes", "More than 30 minutes"),
				yesNo("pain_radiation", "Does the pain radiate to arm, jaw, or back?", true),
				yesNo("cardiac_history", "Does the elder have a history of heart problems?", false),
				yesNo("current_medications", "Is the elder taking heart medications?", false),
			},
			CriticalFlags: []Condition{Yes("pain_radiation")},
			Transitions: []Transition{
				{When: AnyOf(Yes("pain_radiation"), Equals("pain_duration", "More than 30 minutes")), Next: ToEmergency},
				{When: Always(), Next: GoTo(3)},
			},
		},
		actionPlanStep(choice("immediate_action", "Immediate action required:", false,
			"Call 911 Immediately", "Go to Emergency Room", "Call Cardiologist", "Monitor Closely")),
		outcomeStep(
			text("action_taken", "Action taken:", true),
			yesNo("emergency_called", "Were emergency services called?", false),
			yesNo("symptoms_resolved", "Have symptoms improved or resolved?", false),
		),
	)
}

func confusionProtocol() *Protocol {
	critical := AnyOf(No("responsiveness"), Equals("orientation_check", "Knows none"), Yes("physical_symptoms"))

	return mustDefine(models.ProtocolConfusion,
		Step{
			Number: 1,
			Title:  "Immediate Safety Check",
			Questions: []Question{
				yesNo("responsiveness", "Is the elder responsive to voice and touch?", true),
				choice("orientation_check", "Does the elder know their name, location, and date?", true,
					"Knows all three", "Knows two", "Knows one", "Knows none"),
				yesNo("physical_symptoms", "Are there any physical symptoms (fever, weakness, difficulty speaking)?", true),
			},
			CriticalFlags: []Condition{critical},
			Transitions: []Transition{
				{When: critical, Next: ToEmergency},
				{When: Always(), Next: GoTo(2)},
			},
		},
		Step{
			Number: 2,
			Title:  "Rapid Assessment",
			Questions: []Question{
				choice("confusion_onset", "When did the confusion start?", false,
					"Suddenly (minutes)", "Gradually (hours)", "Over days", "Chronic/ongoing"),
				yesNo("medication_changes", "Have there been recent medication changes?", false),
				yesNo("recent_illness", "Has the elder been ill recently (UTI, infection, etc.)?", false),
				yesNo("safety_concerns", "Are there immediate safety concerns (wandering, agitation)?", true),
			},
			CriticalFlags: []Condition{Yes("safety_concerns")},
			Transitions: []Transition{
				{When: AnyOf(Yes("safety_concerns"), Equals("confusion_onset", "Suddenly (minutes)")), Next: ToEmergency},
				{When: Always(), Next: GoTo(3)},
			},
		},
		actionPlanStep(choice("recommended_care", "Recommended level of care:", false,
			"Emergency Room", "Urgent Care", "Primary Care Same Day", "Schedule Appointment")),
		outcomeStep(
			text("action_taken", "Action taken:", true),
			yesNo("emergency_called", "Were emergency services called?", false),
			text("safety_measures", "What safety measures were implemented?", false),
		),
	)
}
