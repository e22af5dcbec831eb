package assignment

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/config"
	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"go.uber.org/zap"
)

var roleScores = map[models.Role]float64{
	models.RolePrimary:    100,
	models.RoleMedicalPOA: 90,
	models.RoleEmergency:  80,
	models.RoleSecondary:  60,
	models.RoleExtended:   40,
}

var availabilityScores = map[models.Availability]float64{
	models.AvailabilityAvailable: 50,
	models.AvailabilityBusy:      20,
	models.AvailabilityOffline:   0,
}

// Engine scores caregivers and builds escalation plans. It holds no per-call state.
type Engine struct {
	tuning *config.Tuning
	skills SkillClassifier
	logger *zap.Logger
}

// NewEngine creates an engine; a nil classifier falls back to KeywordClassifier
func NewEngine(tuning *config.Tuning, skills SkillClassifier, logger *zap.Logger) *Engine {
	if tuning == nil {
		tuning = config.DefaultTuning()
	}
	if skills == nil {
		skills = KeywordClassifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{tuning: tuning, skills: skills, logger: logger}
}

// CalculateAssignmentScore returns the weighted fit of member for item
func (e *Engine) CalculateAssignmentScore(member *models.FamilyMember, item *models.QueueItem) models.ScoreBreakdown {
	at := e.tuning.Assignment
	b := models.ScoreBreakdown{
		Proximity:    e.proximityScore(member.PostalCode, item.SubjectPostalCode),
		Skill:        e.skillScore(member, item.Title),
		Availability: e.availabilityScore(member),
		Role:         roleScore(member.Role),
		Performance:  e.performanceScore(member.Performance),
	}
	w := at.Weights
	b.Total = b.Proximity*w.Proximity +
		b.Skill*w.Skill +
		b.Availability*w.Availability +
		b.Role*w.Role +
		b.Performance*w.Performance
	return b
}

// CalculateBestAssignee ranks caregivers for item. An empty set returns ErrNoCandidates.
func (e *Engine) CalculateBestAssignee(item *models.QueueItem, caregivers []models.FamilyMember) (*models.AssignmentRecommendation, error) {
	if len(caregivers) == 0 {
		return nil, fmt.Errorf("assign %s: %w", item.ID, models.ErrNoCandidates)
	}

	ranked := e.rank(item, caregivers)
	top := ranked[0]

	alternates := ranked[1:]
	if limit := e.tuning.Assignment.MaxAlternates; len(alternates) > limit {
		alternates = alternates[:limit]
	}

	rec := &models.AssignmentRecommendation{
		ItemID:                   item.ID,
		Recommended:              top.Member,
		Confidence:               int(math.Round(top.Score)),
		Reasoning:                e.reasoning(&top),
		Alternates:               append([]models.ScoredCandidate(nil), alternates...),
		EstimatedResponseMinutes: estimateResponseMinutes(&top),
	}

	e.logger.Debug("Assignment recommendation computed",
		zap.String("item_id", item.ID),
		zap.String("recommended", top.Member.ID),
		zap.Int("confidence", rec.Confidence),
		zap.Int("candidates", len(caregivers)),
	)
	return rec, nil
}

// EscalationTimeout is the response window for a severity
func (e *Engine) EscalationTimeout(severity models.Severity) time.Duration {
	et := e.tuning.Escalation
	minutes := et.MediumMinutes
	switch severity {
	case models.SeverityUrgent:
		minutes = et.UrgentMinutes
	case models.SeverityHigh:
		minutes = et.HighMinutes
	case models.SeverityLow:
		minutes = et.LowMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// ShouldEscalate reports whether the assignee has exceeded the response window
func (e *Engine) ShouldEscalate(item *models.QueueItem, assignedAt, now time.Time) bool {
	if !item.IsOpen() || assignedAt.IsZero() {
		return false
	}
	return now.Sub(assignedAt) >= e.EscalationTimeout(item.Severity)
}

func (e *Engine) rank(item *models.QueueItem, caregivers []models.FamilyMember) []models.ScoredCandidate {
	ranked := make([]models.ScoredCandidate, 0, len(caregivers))
	for i := range caregivers {
		b := e.CalculateAssignmentScore(&caregivers[i], item)
		ranked = append(ranked, models.ScoredCandidate{
			Member:    caregivers[i],
			Score:     b.Total,
			Breakdown: b,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Member.ID < ranked[j].Member.ID
	})
	return ranked
}

// proximityScore compares postal-code prefixes as a coarse distance proxy
func (e *Engine) proximityScore(memberCode, subjectCode string) float64 {
	if memberCode == "" || subjectCode == "" {
		return e.tuning.Assignment.NeutralProximity
	}
	if memberCode == subjectCode {
		return 100
	}
	switch commonPrefix(memberCode, subjectCode) {
	case 0:
		return 20
	case 1:
		return 50
	case 2:
		return 70
	default:
		return 85
	}
}

func (e *Engine) skillScore(member *models.FamilyMember, title string) float64 {
	required := e.skills.RequiredSkillsFor(title)
	if len(required) == 0 {
		return 50
	}
	if len(member.Skills) == 0 {
		return 20
	}

	matched := 0
	for _, s := range required {
		if member.HasSkill(s) {
			matched++
		}
	}
	score := float64(matched) / float64(len(required)) * 100

	if rs, ok := e.skills.(relatedSkiller); ok {
		for _, s := range rs.RelatedSkillsFor(title) {
			if member.HasSkill(s) {
				score += e.tuning.Assignment.ExtraSkillBonus
			}
		}
	}
	return math.Min(score, 100)
}

func (e *Engine) availabilityScore(member *models.FamilyMember) float64 {
	at := e.tuning.Assignment
	score := availabilityScores[member.Availability]
	if member.OnCall {
		score += at.OnCallBonus
	}
	penalty := math.Min(float64(member.CurrentTasks)*at.WorkloadPerTask, at.WorkloadPenaltyCap)
	score += at.WorkloadPenaltyCap - penalty
	return clamp(score)
}

func (e *Engine) performanceScore(p *models.PerformanceHistory) float64 {
	if p == nil {
		return e.tuning.Assignment.ColdStartScore
	}
	completion := math.Max(0, math.Min(p.CompletionRate, 1)) * 40

	var response float64
	switch {
	case p.AvgResponseMinutes <= 15:
		response = 30
	case p.AvgResponseMinutes <= 60:
		response = 20
	case p.AvgResponseMinutes <= 240:
		response = 10
	default:
		response = 5
	}

	quality := math.Max(0, math.Min(p.QualityScore, 5)) / 5 * 30
	return clamp(completion + response + quality)
}

// reasoning cites only strong factors so the explanation stays short
func (e *Engine) reasoning(c *models.ScoredCandidate) []string {
	threshold := e.tuning.Assignment.ReasoningThreshold
	b := c.Breakdown
	var out []string
	if b.Proximity >= threshold {
		out = append(out, fmt.Sprintf("Close proximity to the elder (score %.0f)", b.Proximity))
	}
	if b.Skill >= threshold {
		out = append(out, fmt.Sprintf("Strong skill match for this task (score %.0f)", b.Skill))
	}
	if b.Availability >= threshold {
		out = append(out, fmt.Sprintf("Available to respond now (score %.0f)", b.Availability))
	}
	if b.Role >= threshold {
		out = append(out, fmt.Sprintf("%s caregiver role (score %.0f)", roleLabel(c.Member.Role), b.Role))
	}
	if b.Performance >= threshold {
		out = append(out, fmt.Sprintf("Reliable track record (score %.0f)", b.Performance))
	}
	if len(out) == 0 {
		out = append(out, fmt.Sprintf("Best overall match (score %.0f)", c.Score))
	}
	return out
}

func estimateResponseMinutes(c *models.ScoredCandidate) int {
	if c.Member.Availability == models.AvailabilityOffline {
		return 240
	}
	minutes := 60
	switch {
	case c.Breakdown.Proximity >= 85:
		minutes = 15
	case c.Breakdown.Proximity >= 50:
		minutes = 30
	}
	if c.Member.Availability == models.AvailabilityBusy {
		minutes *= 2
	}
	return minutes
}

func roleScore(r models.Role) float64 {
	if s, ok := roleScores[r]; ok {
		return s
	}
	return roleScores[models.RoleExtended]
}

func roleLabel(r models.Role) string {
	switch r {
	case models.RolePrimary:
		return "Primary"
	case models.RoleMedicalPOA:
		return "Medical power of attorney"
	case models.RoleEmergency:
		return "Emergency contact"
	case models.RoleSecondary:
		return "Secondary"
	default:
		return "Extended family"
	}
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && n < 3 && a[n] == b[n] {
		n++
	}
	return n
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(v, 100))
}
