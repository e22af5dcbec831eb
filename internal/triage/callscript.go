package triage

import (
	"fmt"
	"strings"

	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

const unknownLocation = "Location to be determined"

// BuildCallScript fills the scenario template with the recorded answers. Missing
// answers are reported as unknown and never assumed.
func BuildCallScript(t models.ProtocolType, subject Subject, r Responses) *models.CallScript {
	name := subject.Name
	if name == "" {
		name = "the elder"
	}
	location := subject.Location
	if location == "" {
		location = unknownLocation
	}

	var (
		b         strings.Builder
		info      []string
		condition string
	)
	info = append(info, "Patient: "+name)

	switch t {
	case models.ProtocolFall:
		info = append(info,
			"Incident: Fall",
			"Conscious: "+yesNoText(r, "consciousness"),
			"Severe injury: "+yesNoText(r, "severe_injury"),
			"Pain level: "+numberText(r, "pain_level_initial")+"/10",
			"Head injury: "+yesNoText(r, "head_injury_check"),
			"Can move: "+yesNoText(r, "mobility_status"),
		)
		fmt.Fprintf(&b, "This is a medical emergency. An elderly person named %s has fallen. ", name)
		if No("consciousness").Eval(r) {
			b.WriteString("The person is unconscious. ")
		}
		if Yes("severe_injury").Eval(r) {
			b.WriteString("There are signs of severe injury. ")
		}
		if Yes("head_injury_check").Eval(r) {
			b.WriteString("There may be a head injury. ")
		}
		if No("mobility_status").Eval(r) {
			b.WriteString("The person cannot move. ")
		}
		condition = fallCondition(r)

	case models.ProtocolInjury:
		injuryLocation := stringText(r, "injury_location")
		info = append(info,
			"Incident: Injury",
			"Conscious: "+yesNoText(r, "consciousness"),
			"Bleeding: "+stringText(r, "bleeding_severity"),
			"Breathing normal: "+yesNoText(r, "breathing_status"),
			"Pain level: "+numberText(r, "pain_scale")+"/10",
			"Injury location: "+injuryLocation,
		)
		fmt.Fprintf(&b, "This is a medical emergency. An elderly person named %s has sustained an injury. ", name)
		if No("consciousness").Eval(r) {
			b.WriteString("The person is unconscious. ")
		}
		if Equals("bleeding_severity", "Severe bleeding").Eval(r) {
			b.WriteString("There is severe bleeding. ")
		}
		if No("breathing_status").Eval(r) {
			b.WriteString("The person is having difficulty breathing. ")
		}
		fmt.Fprintf(&b, "The injury is located at %s. ", injuryLocation)
		condition = injuryCondition(r)

	case models.ProtocolChestPain:
		info = append(info,
			"Incident: Chest Pain",
			"Conscious: "+yesNoText(r, "consciousness"),
			"Pain severity: "+numberText(r, "chest_pain_severity")+"/10",
			"Breathing difficulty: "+yesNoText(r, "breathing_difficulty"),
			"Sweating/nausea: "+yesNoText(r, "sweating_nausea"),
			"Pain radiating: "+yesNoText(r, "pain_radiation"),
			"Cardiac history: "+yesNoText(r, "cardiac_history"),
		)
		fmt.Fprintf(&b, "This is a medical emergency. An elderly person named %s is experiencing severe chest pain. ", name)
		if No("consciousness").Eval(r) {
			b.WriteString("The person is unconscious. ")
		}
		if Yes("breathing_difficulty").Eval(r) {
			b.WriteString("There is difficulty breathing. ")
		}
		if Yes("sweating_nausea").Eval(r) {
			b.WriteString("The person is sweating and nauseous. ")
		}
		if Yes("pain_radiation").Eval(r) {
			b.WriteString("The pain is radiating to arm, jaw, or back. ")
		}
		if Yes("cardiac_history").Eval(r) {
			b.WriteString("The person has a history of heart problems. ")
		}
		b.WriteString("This may be a heart attack. ")
		condition = chestPainCondition(r)

	case models.ProtocolConfusion:
		onset := stringText(r, "confusion_onset")
		info = append(info,
			"Incident: Confusion/Altered Mental State",
			"Responsive: "+yesNoText(r, "responsiveness"),
			"Orientation: "+stringText(r, "orientation_check"),
			"Physical symptoms: "+yesNoText(r, "physical_symptoms"),
			"Onset: "+onset,
			"Safety concerns: "+yesNoText(r, "safety_concerns"),
		)
		fmt.Fprintf(&b, "This is a medical emergency. An elderly person named %s is experiencing severe confusion or altered mental state. ", name)
		if No("responsiveness").Eval(r) {
			b.WriteString("The person is not responsive to voice or touch. ")
		}
		if Yes("physical_symptoms").Eval(r) {
			b.WriteString("There are physical symptoms present. ")
		}
		if Yes("safety_concerns").Eval(r) {
			b.WriteString("There are immediate safety concerns. ")
		}
		if onset != "unknown" {
			fmt.Fprintf(&b, "The confusion started %s. ", strings.ToLower(onset))
		}
		condition = confusionCondition(r)

	default:
		info = append(info, "Incident: Medical Emergency")
		fmt.Fprintf(&b, "This is a medical emergency involving an elderly person named %s. ", name)
		condition = "Medical emergency requiring immediate attention"
	}

	info = append(info, "Location: "+location)
	fmt.Fprintf(&b, "Please send an ambulance immediately to %s.", location)

	return &models.CallScript{
		Script:           b.String(),
		KeyInformation:   info,
		CurrentCondition: condition,
	}
}

func fallCondition(r Responses) string {
	switch {
	case No("consciousness").Eval(r):
		return "Critical - Unconscious"
	case AnyOf(Yes("severe_injury"), Yes("head_injury_check")).Eval(r):
		return "Serious - Potential major injury"
	case No("mobility_status").Eval(r):
		return "Moderate - Cannot move"
	}
	return "Stable - Conscious and mobile"
}

func injuryCondition(r Responses) string {
	switch {
	case No("consciousness").Eval(r):
		return "Critical - Unconscious"
	case AnyOf(Equals("bleeding_severity", "Severe bleeding"), No("breathing_status")).Eval(r):
		return "Critical - Life threatening"
	case Equals("bleeding_severity", "Moderate bleeding").Eval(r):
		return "Serious - Significant injury"
	}
	return "Stable - Minor injury"
}

func chestPainCondition(r Responses) string {
	switch {
	case No("consciousness").Eval(r):
		return "Critical - Unconscious"
	case AnyOf(AtLeast("chest_pain_severity", 8), Yes("breathing_difficulty"), Yes("pain_radiation")).Eval(r):
		return "Critical - Possible heart attack"
	case AtLeast("chest_pain_severity", 6).Eval(r):
		return "Serious - Significant chest pain"
	}
	return "Moderate - Chest discomfort"
}

func confusionCondition(r Responses) string {
	switch {
	case No("responsiveness").Eval(r):
		return "Critical - Unresponsive"
	case AnyOf(Yes("physical_symptoms"), Yes("safety_concerns")).Eval(r):
		return "Serious - Altered mental state with complications"
	}
	return "Moderate - Confusion requiring evaluation"
}

func yesNoText(r Responses, field string) string {
	if v, ok := r[field]; ok {
		if b, ok := asBool(v); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
	}
	return "Unknown"
}

func numberText(r Responses, field string) string {
	if v, ok := r[field]; ok {
		if n, ok := asNumber(v); ok {
			return fmt.Sprintf("%g", n)
		}
	}
	return "unknown"
}

func stringText(r Responses, field string) string {
	if v, ok := r[field]; ok && v != nil {
		if s := strings.TrimSpace(asString(v)); s != "" {
			return s
		}
	}
	return "unknown"
}
