package notifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"go.uber.org/zap"
)

// Publisher is satisfied by the shared MQTT client
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Kind is the last topic segment of a notification
type Kind string

const (
	KindAssignment Kind = "assignment"
	KindEscalation Kind = "escalation"
	KindEmergency  Kind = "emergency"
)

// Envelope is the JSON body of every notification
type Envelope struct {
	Kind      Kind        `json:"kind"`
	SubjectID string      `json:"subject_id"`
	ItemID    string      `json:"item_id,omitempty"`
	SentAt    time.Time   `json:"sent_at"`
	Payload   interface{} `json:"payload"`
}

// MQTTDispatcher publishes caregiver notifications on <prefix>/<subject>/<kind>
type MQTTDispatcher struct {
	publisher Publisher
	prefix    string
	qos       byte
	clock     models.Clock
	logger    *zap.Logger
}

func NewMQTTDispatcher(publisher Publisher, prefix string, qos byte, clock models.Clock, logger *zap.Logger) *MQTTDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = models.SystemClock{}
	}
	return &MQTTDispatcher{
		publisher: publisher,
		prefix:    prefix,
		qos:       qos,
		clock:     clock,
		logger:    logger,
	}
}

// Topic builds the topic for a subject and kind
func (d *MQTTDispatcher) Topic(subjectID string, kind Kind) string {
	return fmt.Sprintf("%s/%s/%s", d.prefix, subjectID, kind)
}

// DispatchAssignment tells the recommended caregiver about the item
func (d *MQTTDispatcher) DispatchAssignment(item *models.QueueItem, rec *models.AssignmentRecommendation) error {
	return d.send(item.SubjectID, item.ID, KindAssignment, map[string]interface{}{
		"title":                      item.Title,
		"severity":                   item.Severity,
		"assignee_id":                rec.Recommended.ID,
		"assignee_name":              rec.Recommended.Name,
		"confidence":                 rec.Confidence,
		"reasoning":                  rec.Reasoning,
		"estimated_response_minutes": rec.EstimatedResponseMinutes,
		"due_at":                     item.DueAt,
	})
}

// DispatchEscalation notifies the first tier of plan
func (d *MQTTDispatcher) DispatchEscalation(item *models.QueueItem, plan *models.EscalationPlan) error {
	recipients := make([]string, len(plan.EscalateTo))
	for i, m := range plan.EscalateTo {
		recipients[i] = m.ID
	}
	return d.send(item.SubjectID, item.ID, KindEscalation, map[string]interface{}{
		"title":                   item.Title,
		"reason":                  plan.Reason,
		"message":                 plan.Message,
		"recipients":              recipients,
		"timeout_minutes":         plan.TimeoutMinutes,
		"needs_professional_care": plan.NeedsProfessionalCare,
		"escalation_count":        item.EscalationCount,
	})
}

// DispatchEmergency broadcasts an emergency action plan to the whole circle
func (d *MQTTDispatcher) DispatchEmergency(subjectID string, plan *models.ActionPlan) error {
	return d.send(subjectID, plan.AlertID, KindEmergency, plan)
}

func (d *MQTTDispatcher) send(subjectID, itemID string, kind Kind, payload interface{}) error {
	env := Envelope{
		Kind:      kind,
		SubjectID: subjectID,
		ItemID:    itemID,
		SentAt:    d.clock.Now(),
		Payload:   payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal %s notification: %w", kind, err)
	}

	topic := d.Topic(subjectID, kind)
	if err := d.publisher.Publish(topic, d.qos, false, data); err != nil {
		d.logger.Error("Failed to publish notification",
			zap.String("topic", topic),
			zap.String("item_id", itemID),
			zap.Error(err),
		)
		return err
	}

	d.logger.Info("Notification published",
		zap.String("topic", topic),
		zap.String("item_id", itemID),
	)
	return nil
}
