package assignment

import (
	"fmt"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"go.uber.org/zap"
)

var escalationTemplates = map[models.EscalationReason]string{
	models.EscalationNoResponse: "%s has not responded to \"%s\" for %s. Please take over.",
	models.EscalationDeclined:   "%s declined \"%s\" for %s. Please take over.",
	models.EscalationEmergency:  "EMERGENCY reported by %s: \"%s\" for %s needs immediate attention.",
	models.EscalationManual:     "%s escalated \"%s\" for %s to you.",
}

// CreateEscalationPlan builds a finite chain of notification tiers, excluding the current
// assignee. With nobody left it returns a terminal plan that flags professional care.
func (e *Engine) CreateEscalationPlan(item *models.QueueItem, currentAssigneeID string, caregivers []models.FamilyMember, reason models.EscalationReason) *models.EscalationPlan {
	currentName := "The assigned caregiver"
	remaining := make([]models.FamilyMember, 0, len(caregivers))
	for _, c := range caregivers {
		if c.ID == currentAssigneeID {
			if c.Name != "" {
				currentName = c.Name
			}
			continue
		}
		remaining = append(remaining, c)
	}

	if _, ok := escalationTemplates[reason]; !ok {
		reason = models.EscalationManual
	}

	timeout := int(e.EscalationTimeout(item.Severity) / time.Minute)
	plan := e.buildTier(item, remaining, reason, currentName, timeout, 1)

	e.logger.Info("Escalation plan created",
		zap.String("item_id", item.ID),
		zap.String("reason", string(reason)),
		zap.Int("tiers", plan.Depth()),
		zap.Bool("needs_professional_care", plan.NeedsProfessionalCare),
	)
	return plan
}

// buildTier consumes at least one caregiver per tier, so the chain ends within len(remaining) hops
func (e *Engine) buildTier(item *models.QueueItem, remaining []models.FamilyMember, reason models.EscalationReason, currentName string, timeout, tier int) *models.EscalationPlan {
	if len(remaining) == 0 {
		return &models.EscalationPlan{
			ItemID:                item.ID,
			Reason:                reason,
			EscalateTo:            []models.FamilyMember{},
			Message:               professionalCareMessage(item),
			TimeoutMinutes:        timeout,
			NeedsProfessionalCare: true,
		}
	}

	ranked := e.rank(item, remaining)
	maxTiers := e.tuning.Escalation.MaxTiers

	var notify []models.FamilyMember
	if tier >= maxTiers {
		// last tier broadcasts to everyone left
		for _, c := range ranked {
			notify = append(notify, c.Member)
		}
	} else {
		notify = []models.FamilyMember{ranked[0].Member}
	}

	plan := &models.EscalationPlan{
		ItemID:         item.ID,
		Reason:         reason,
		EscalateTo:     notify,
		Message:        escalationMessage(reason, currentName, item),
		TimeoutMinutes: timeout,
	}

	if tier < maxTiers {
		rest := make([]models.FamilyMember, 0, len(ranked)-1)
		for _, c := range ranked[1:] {
			rest = append(rest, c.Member)
		}
		if len(rest) > 0 {
			next := timeout / 2
			if floor := e.tuning.Escalation.NestedFloorMinute; next < floor {
				next = floor
			}
			plan.Next = e.buildTier(item, rest, reason, currentName, next, tier+1)
		}
	}
	return plan
}

func escalationMessage(reason models.EscalationReason, currentName string, item *models.QueueItem) string {
	subject := item.SubjectName
	if subject == "" {
		subject = "the elder"
	}
	return fmt.Sprintf(escalationTemplates[reason], currentName, item.Title, subject)
}

func professionalCareMessage(item *models.QueueItem) string {
	subject := item.SubjectName
	if subject == "" {
		subject = "the elder"
	}
	return fmt.Sprintf("No family caregivers are available for \"%s\" for %s. Contact professional care services.", item.Title, subject)
}
