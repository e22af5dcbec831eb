package triage

import (
	"fmt"
	"sync"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Subject identifies the elder a protocol run is about
type Subject struct {
	ID       string
	Name     string
	Location string
}

// StateMachine drives one protocol run. Methods are serialized per instance.
type StateMachine struct {
	mu       sync.Mutex
	protocol *Protocol
	clock    models.Clock
	logger   *zap.Logger

	sessionID   string
	alertID     string
	subject     Subject
	current     int
	state       models.TriageState
	responses   Responses
	visited     []int
	startedAt   time.Time
	updatedAt   time.Time
	completedAt *time.Time
	plan        *models.ActionPlan
}

// New starts a protocol run at step 1
func New(alertID string, t models.ProtocolType, subject Subject, clock models.Clock, logger *zap.Logger) (*StateMachine, error) {
	p, ok := Lookup(t)
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unknown protocol type %q", t))
	}
	if alertID == "" {
		return nil, models.NewValidationError("alert id is required")
	}
	if clock == nil {
		clock = models.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	now := clock.Now()
	m := &StateMachine{
		protocol:  p,
		clock:     clock,
		logger:    logger,
		sessionID: uuid.New().String(),
		alertID:   alertID,
		subject:   subject,
		current:   1,
		state:     models.TriageInProgress,
		responses: Responses{},
		visited:   []int{1},
		startedAt: now,
		updatedAt: now,
	}

	logger.Info("Triage protocol started",
		zap.String("session_id", m.sessionID),
		zap.String("alert_id", alertID),
		zap.String("protocol", string(t)),
	)
	return m, nil
}

// Restore rebuilds a machine from a stored snapshot
func Restore(snap *models.TriageProtocol, clock models.Clock, logger *zap.Logger) (*StateMachine, error) {
	if snap == nil {
		return nil, models.NewValidationError("snapshot is required")
	}
	p, ok := Lookup(snap.ProtocolType)
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unknown protocol type %q", snap.ProtocolType))
	}
	if _, ok := p.Step(snap.CurrentStep); !ok {
		return nil, models.NewValidationError(fmt.Sprintf("step %d does not exist in %s", snap.CurrentStep, snap.ProtocolType))
	}
	switch snap.State {
	case models.TriageInProgress, models.TriageEmergency, models.TriageComplete:
	default:
		return nil, models.NewValidationError(fmt.Sprintf("unknown triage state %q", snap.State))
	}
	if clock == nil {
		clock = models.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	responses := make(Responses, len(snap.Responses))
	for k, v := range snap.Responses {
		responses[k] = v
	}
	visited := append([]int(nil), snap.Visited...)
	if len(visited) == 0 {
		visited = []int{snap.CurrentStep}
	}

	m := &StateMachine{
		protocol:  p,
		clock:     clock,
		logger:    logger,
		sessionID: snap.SessionID,
		alertID:   snap.AlertID,
		subject:   Subject{ID: snap.SubjectID, Name: snap.SubjectName, Location: snap.Location},
		current:   snap.CurrentStep,
		state:     snap.State,
		responses: responses,
		visited:   visited,
		startedAt: snap.StartedAt,
		updatedAt: snap.UpdatedAt,
	}
	if snap.CompletedAt != nil {
		t := *snap.CompletedAt
		m.completedAt = &t
	}
	return m, nil
}

// Snapshot captures the run for persistence
func (m *StateMachine) Snapshot() *models.TriageProtocol {
	m.mu.Lock()
	defer m.mu.Unlock()

	responses := make(map[string]interface{}, len(m.responses))
	for k, v := range m.responses {
		responses[k] = v
	}
	snap := &models.TriageProtocol{
		SessionID:    m.sessionID,
		AlertID:      m.alertID,
		ProtocolType: m.protocol.Type,
		SubjectID:    m.subject.ID,
		SubjectName:  m.subject.Name,
		Location:     m.subject.Location,
		CurrentStep:  m.current,
		State:        m.state,
		Responses:    responses,
		Visited:      append([]int(nil), m.visited...),
		StartedAt:    m.startedAt,
		UpdatedAt:    m.updatedAt,
	}
	if m.completedAt != nil {
		t := *m.completedAt
		snap.CompletedAt = &t
	}
	return snap
}

func (m *StateMachine) SessionID() string { return m.sessionID }
func (m *StateMachine) AlertID() string { return m.alertID }
func (m *StateMachine) Type() models.ProtocolType { return m.protocol.Type }

// State reports in_progress, emergency or complete
func (m *StateMachine) State() models.TriageState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentStep returns the step awaiting answers. Terminal runs still report the
// last step reached.
func (m *StateMachine) CurrentStep() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := m.protocol.Step(m.current)
	return *s
}

// RecordResponse stores or overwrites an answer. Answers are not type checked,
// so late corrections are accepted until the run ends.
func (m *StateMachine) RecordResponse(questionID string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.IsTerminal() {
		return &models.TransitionError{From: string(m.state), To: "record_response"}
	}
	if _, ok := m.protocol.Question(questionID); !ok {
		return models.NewValidationError(fmt.Sprintf("unknown question %q for %s", questionID, m.protocol.Type))
	}

	m.responses[questionID] = value
	m.updatedAt = m.clock.Now()

	m.logger.Debug("Triage response recorded",
		zap.String("session_id", m.sessionID),
		zap.String("question_id", questionID),
	)
	return nil
}

// Responses returns a copy of the recorded answers
func (m *StateMachine) Responses() Responses {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Responses, len(m.responses))
	for k, v := range m.responses {
		out[k] = v
	}
	return out
}

// HasCriticalFlags reports whether any critical flag of a step reached so far holds
func (m *StateMachine) HasCriticalFlags() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.criticalFlag() != nil
}

func (m *StateMachine) criticalFlag() *Condition {
	for _, n := range m.visited {
		s, ok := m.protocol.Step(n)
		if !ok {
			continue
		}
		for i := range s.CriticalFlags {
			if s.CriticalFlags[i].Eval(m.responses) {
				return &s.CriticalFlags[i]
			}
		}
	}
	return nil
}

// GetNextStep evaluates where the run would go from here without moving it
func (m *StateMachine) GetNextStep() Next {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextStep()
}

func (m *StateMachine) nextStep() Next {
	if m.state.IsTerminal() {
		return Next{Terminal: m.state}
	}
	if flag := m.criticalFlag(); flag != nil {
		m.logger.Warn("Critical flag triggered",
			zap.String("session_id", m.sessionID),
			zap.String("flag", flag.String()),
		)
		return ToEmergency
	}

	s, _ := m.protocol.Step(m.current)
	for _, tr := range s.Transitions {
		if tr.When.Eval(m.responses) {
			return tr.Next
		}
	}
	if _, ok := m.protocol.Step(m.current + 1); ok {
		return GoTo(m.current + 1)
	}
	return ToComplete
}

// ValidateCurrentStep returns the prompts of required questions still unanswered
func (m *StateMachine) ValidateCurrentStep() (bool, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	missing := m.missing()
	return len(missing) == 0, missing
}

func (m *StateMachine) missing() []string {
	s, _ := m.protocol.Step(m.current)
	var out []string
	for _, q := range s.Questions {
		if q.Required && !answered(m.responses, q.ID) {
			out = append(out, q.Text)
		}
	}
	return out
}

// ProceedToNextStep moves the run forward. A critical flag ends the run in
// emergency even when the step is incomplete; otherwise every required
// question must be answered first. Returns the new step, or nil with the
// terminal state.
func (m *StateMachine) ProceedToNextStep() (*Step, models.TriageState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.IsTerminal() {
		return nil, m.state, &models.TransitionError{From: string(m.state), To: "next_step"}
	}

	if m.criticalFlag() == nil {
		if missing := m.missing(); len(missing) > 0 {
			return nil, m.state, models.NewValidationError(missing...)
		}
	}

	next := m.nextStep()
	now := m.clock.Now()
	m.updatedAt = now

	if next.IsTerminal() {
		m.state = next.Terminal
		m.completedAt = &now
		m.logger.Info("Triage protocol finished",
			zap.String("session_id", m.sessionID),
			zap.String("alert_id", m.alertID),
			zap.String("state", string(m.state)),
			zap.Int("step", m.current),
		)
		return nil, m.state, nil
	}

	m.current = next.Step
	m.visited = append(m.visited, next.Step)
	s, _ := m.protocol.Step(m.current)
	step := *s
	return &step, m.state, nil
}

// GenerateActionPlan returns the recommendation for the run. A run headed for
// emergency gets the call_911 plan. Once the run has ended the plan is fixed
// and later calls return the same content.
func (m *StateMachine) GenerateActionPlan() *models.ActionPlan {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.plan != nil {
		return clonePlan(m.plan)
	}

	emergency := m.state == models.TriageEmergency || m.criticalFlag() != nil
	if !emergency && m.state == models.TriageInProgress {
		emergency = m.nextStep() == ToEmergency
	}

	var plan *models.ActionPlan
	if emergency {
		plan = emergencyPlan(m.protocol.Type, m.subject, m.responses)
	} else {
		plan = protocolPlan(m.protocol.Type, m.subject, m.responses)
	}
	plan.AlertID = m.alertID
	plan.ProtocolType = m.protocol.Type
	plan.GeneratedAt = m.clock.Now()

	if m.state.IsTerminal() {
		m.plan = plan
	}

	m.logger.Info("Action plan generated",
		zap.String("session_id", m.sessionID),
		zap.String("recommendation", string(plan.Recommendation)),
		zap.Int("urgency", plan.UrgencyLevel),
	)
	return clonePlan(plan)
}

func clonePlan(p *models.ActionPlan) *models.ActionPlan {
	cp := *p
	if p.CallScript != nil {
		cs := *p.CallScript
		cs.KeyInformation = append([]string(nil), p.CallScript.KeyInformation...)
		cp.CallScript = &cs
	}
	cp.Checklist = append([]string(nil), p.Checklist...)
	cp.FollowUpTasks = make([]models.FollowUpTask, len(p.FollowUpTasks))
	for i, f := range p.FollowUpTasks {
		f.Checklist = append([]models.ChecklistItem(nil), f.Checklist...)
		cp.FollowUpTasks[i] = f
	}
	return &cp
}
