package triage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samalpartha/CareCircle-sub001/internal/models"
)

// QuestionType is the declared answer shape of a question
type QuestionType string

const (
	QuestionYesNo          QuestionType = "yes_no"
	QuestionScale          QuestionType = "scale"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionText           QuestionType = "text"
)

// Question is one prompt within a step
type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Required bool         `json:"required"`
	Critical bool         `json:"critical"`
	Options  []string     `json:"options,omitempty"`
}

func (q Question) hasOption(v string) bool {
	for _, o := range q.Options {
		if strings.EqualFold(o, v) {
			return true
		}
	}
	return false
}

// Next is a transition target: a step number or a terminal state
type Next struct {
	Step     int                `json:"step,omitempty"`
	Terminal models.TriageState `json:"terminal,omitempty"`
}

func GoTo(step int) Next { return Next{Step: step} }

var (
	ToEmergency = Next{Terminal: models.TriageEmergency}
	ToComplete  = Next{Terminal: models.TriageComplete}
)

func (n Next) IsTerminal() bool { return n.Terminal != "" }

func (n Next) String() string {
	if n.IsTerminal() {
		return string(n.Terminal)
	}
	return fmt.Sprintf("step %d", n.Step)
}

// Transition fires when its condition holds; rules are tried in order
type Transition struct {
	When Condition `json:"when"`
	Next Next      `json:"next"`
}

// Step is one stage of a protocol
type Step struct {
	Number        int          `json:"number"`
	Title         string       `json:"title"`
	Questions     []Question   `json:"questions"`
	CriticalFlags []Condition  `json:"critical_flags,omitempty"`
	Transitions   []Transition `json:"transitions"`
}

// Protocol is an ordered, validated questionnaire for one scenario
type Protocol struct {
	Type  models.ProtocolType `json:"type"`
	Steps []Step              `json:"steps"`

	questions map[string]Question
}

// Step returns step n, or false if it does not exist
func (p *Protocol) Step(n int) (*Step, bool) {
	if n < 1 || n > len(p.Steps) {
		return nil, false
	}
	return &p.Steps[n-1], true
}

// Question looks up a question by id anywhere in the protocol
func (p *Protocol) Question(id string) (Question, bool) {
	q, ok := p.questions[id]
	return q, ok
}

// Define validates a protocol. Steps must be numbered 1..N, question ids unique,
// every condition must reference a question of a compatible type, and every
// transition must target an existing step or a terminal state.
func Define(t models.ProtocolType, steps ...Step) (*Protocol, error) {
	p := &Protocol{Type: t, Steps: steps, questions: make(map[string]Question)}
	if len(steps) == 0 {
		return nil, fmt.Errorf("protocol %s: no steps", t)
	}

	for i, s := range steps {
		if s.Number != i+1 {
			return nil, fmt.Errorf("protocol %s: step %d is numbered %d", t, i+1, s.Number)
		}
		for _, q := range s.Questions {
			if q.ID == "" {
				return nil, fmt.Errorf("protocol %s: step %d has a question without id", t, s.Number)
			}
			if _, dup := p.questions[q.ID]; dup {
				return nil, fmt.Errorf("protocol %s: duplicate question %q", t, q.ID)
			}
			if q.Type == QuestionMultipleChoice && len(q.Options) == 0 {
				return nil, fmt.Errorf("protocol %s: question %q has no options", t, q.ID)
			}
			p.questions[q.ID] = q
		}
	}

	for _, s := range steps {
		for _, c := range s.CriticalFlags {
			if err := c.validate(p.questions); err != nil {
				return nil, fmt.Errorf("protocol %s step %d critical flag: %w", t, s.Number, err)
			}
		}
		for _, tr := range s.Transitions {
			if err := tr.When.validate(p.questions); err != nil {
				return nil, fmt.Errorf("protocol %s step %d transition: %w", t, s.Number, err)
			}
			if tr.Next.IsTerminal() {
				if !tr.Next.Terminal.IsTerminal() {
					return nil, fmt.Errorf("protocol %s step %d: %q is not a terminal state", t, s.Number, tr.Next.Terminal)
				}
				continue
			}
			if tr.Next.Step <= s.Number || tr.Next.Step > len(steps) {
				return nil, fmt.Errorf("protocol %s step %d: transition to missing or earlier step %d", t, s.Number, tr.Next.Step)
			}
		}
	}
	return p, nil
}

func mustDefine(t models.ProtocolType, steps ...Step) *Protocol {
	p, err := Define(t, steps...)
	if err != nil {
		panic(err)
	}
	return p
}

var registry = map[models.ProtocolType]*Protocol{}

func register(p *Protocol) {
	registry[p.Type] = p
}

// Lookup returns the built-in protocol for t
func Lookup(t models.ProtocolType) (*Protocol, bool) {
	p, ok := registry[t]
	return p, ok
}

// Types lists the available protocol types
func Types() []models.ProtocolType {
	out := make([]models.ProtocolType, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProtocolFor maps an alert type to the triage protocol that handles it
func ProtocolFor(alert models.AlertType) (models.ProtocolType, bool) {
	switch alert {
	case models.AlertFall:
		return models.ProtocolFall, true
	case models.AlertInjury:
		return models.ProtocolInjury, true
	case models.AlertChestPain:
		return models.ProtocolChestPain, true
	case models.AlertConfusion:
		return models.ProtocolConfusion, true
	}
	return "", false
}

// ValidateResponses checks that every required question across the whole
// protocol has an answer.
func ValidateResponses(t models.ProtocolType, responses Responses) error {
	p, ok := Lookup(t)
	if !ok {
		return models.NewValidationError(fmt.Sprintf("unknown protocol type %q", t))
	}
	var missing []string
	for _, s := range p.Steps {
		for _, q := range s.Questions {
			if q.Required && !answered(responses, q.ID) {
				missing = append(missing, "Missing required response for: "+q.Text)
			}
		}
	}
	if len(missing) > 0 {
		return models.NewValidationError(missing...)
	}
	return nil
}

func answered(r Responses, id string) bool {
	v, ok := r[id]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}
