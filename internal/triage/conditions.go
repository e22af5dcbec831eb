package triage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Responses maps question id to the recorded answer
type Responses map[string]interface{}

// Op is the operator of a Condition node
type Op string

const (
	OpAlways  Op = "always"
	OpYes     Op = "yes"
	OpNo      Op = "no"
	OpAtLeast Op = "at_least"
	OpBelow   Op = "below"
	OpEquals  Op = "equals"
	OpAnyOf   Op = "any_of"
	OpAllOf   Op = "all_of"
)

// Condition is a predicate over recorded responses. Leaves test one field;
// AnyOf/AllOf combine terms. A missing field makes every leaf false.
type Condition struct {
	Op        Op          `json:"op"`
	Field     string      `json:"field,omitempty"`
	Threshold float64     `json:"threshold,omitempty"`
	Value     string      `json:"value,omitempty"`
	Terms     []Condition `json:"terms,omitempty"`
}

func Always() Condition { return Condition{Op: OpAlways} }
func Yes(field string) Condition { return Condition{Op: OpYes, Field: field} }
func No(field string) Condition { return Condition{Op: OpNo, Field: field} }
func Equals(field, value string) Condition { return Condition{Op: OpEquals, Field: field, Value: value} }
func AnyOf(terms ...Condition) Condition { return Condition{Op: OpAnyOf, Terms: terms} }
func AllOf(terms ...Condition) Condition { return Condition{Op: OpAllOf, Terms: terms} }

func AtLeast(field string, threshold float64) Condition {
	return Condition{Op: OpAtLeast, Field: field, Threshold: threshold}
}

func Below(field string, threshold float64) Condition {
	return Condition{Op: OpBelow, Field: field, Threshold: threshold}
}

// Eval evaluates the condition against r
func (c Condition) Eval(r Responses) bool {
	switch c.Op {
	case OpAlways:
		return true
	case OpAnyOf:
		for _, t := range c.Terms {
			if t.Eval(r) {
				return true
			}
		}
		return false
	case OpAllOf:
		for _, t := range c.Terms {
			if !t.Eval(r) {
				return false
			}
		}
		return len(c.Terms) > 0
	}

	v, ok := r[c.Field]
	if !ok || v == nil {
		return false
	}

	switch c.Op {
	case OpYes:
		b, ok := asBool(v)
		return ok && b
	case OpNo:
		b, ok := asBool(v)
		return ok && !b
	case OpAtLeast:
		n, ok := asNumber(v)
		return ok && n >= c.Threshold
	case OpBelow:
		n, ok := asNumber(v)
		return ok && n < c.Threshold
	case OpEquals:
		return strings.EqualFold(strings.TrimSpace(asString(v)), c.Value)
	}
	return false
}

func (c Condition) String() string {
	switch c.Op {
	case OpAlways:
		return "always"
	case OpYes, OpNo:
		return fmt.Sprintf("%s is %s", c.Field, c.Op)
	case OpAtLeast:
		return fmt.Sprintf("%s >= %g", c.Field, c.Threshold)
	case OpBelow:
		return fmt.Sprintf("%s < %g", c.Field, c.Threshold)
	case OpEquals:
		return fmt.Sprintf("%s = %q", c.Field, c.Value)
	case OpAnyOf, OpAllOf:
		sep := " OR "
		if c.Op == OpAllOf {
			sep = " AND "
		}
		parts := make([]string, len(c.Terms))
		for i, t := range c.Terms {
			parts[i] = t.String()
		}
		return "(" + strings.Join(parts, sep) + ")"
	}
	return string(c.Op)
}

// validate checks the condition against the question set it will run over
func (c Condition) validate(questions map[string]Question) error {
	switch c.Op {
	case OpAlways:
		return nil
	case OpAnyOf, OpAllOf:
		if len(c.Terms) == 0 {
			return fmt.Errorf("%s needs at least one term", c.Op)
		}
		for _, t := range c.Terms {
			if err := t.validate(questions); err != nil {
				return err
			}
		}
		return nil
	}

	q, ok := questions[c.Field]
	if !ok {
		return fmt.Errorf("%s: unknown question %q", c.Op, c.Field)
	}

	switch c.Op {
	case OpYes, OpNo:
		if q.Type != QuestionYesNo {
			return fmt.Errorf("%s: question %q is %s, not yes_no", c.Op, c.Field, q.Type)
		}
	case OpAtLeast, OpBelow:
		if q.Type != QuestionScale {
			return fmt.Errorf("%s: question %q is %s, not scale", c.Op, c.Field, q.Type)
		}
	case OpEquals:
		if q.Type != QuestionMultipleChoice {
			return fmt.Errorf("equals: question %q is %s, not multiple_choice", c.Field, q.Type)
		}
		if !q.hasOption(c.Value) {
			return fmt.Errorf("equals: %q is not an option of %q", c.Value, c.Field)
		}
	default:
		return fmt.Errorf("unknown operator %q", c.Op)
	}
	return nil
}

func asBool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "y", "true":
			return true, true
		case "no", "n", "false":
			return false, true
		}
	}
	return false, false
}

func asNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
