package notifier

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	messages []published
	err      error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{topic: topic, qos: qos, payload: payload})
	return nil
}

func decode(t *testing.T, b []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestMQTTDispatcher_DispatchAssignment(t *testing.T) {
	pub := &fakePublisher{}
	d := NewMQTTDispatcher(pub, "careops", 1, models.NewFixedClock(testNow), zap.NewNop())

	item := &models.QueueItem{ID: "alert:a1", SubjectID: "elder-1", Title: "Fall detected", Severity: models.SeverityUrgent}
	rec := &models.AssignmentRecommendation{
		ItemID:      item.ID,
		Recommended: models.FamilyMember{ID: "cg-1", Name: "Ana"},
		Confidence:  88,
		Reasoning:   []string{"Lives nearby"},
	}
	require.NoError(t, d.DispatchAssignment(item, rec))

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "careops/elder-1/assignment", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	body := decode(t, msg.payload)
	assert.Equal(t, "assignment", body["kind"])
	assert.Equal(t, "alert:a1", body["item_id"])
	payload := body["payload"].(map[string]interface{})
	assert.Equal(t, "cg-1", payload["assignee_id"])
	assert.Equal(t, 88.0, payload["confidence"])
}

func TestMQTTDispatcher_DispatchEscalation(t *testing.T) {
	pub := &fakePublisher{}
	d := NewMQTTDispatcher(pub, "careops", 0, models.NewFixedClock(testNow), nil)

	item := &models.QueueItem{ID: "t1", SubjectID: "elder-1", EscalationCount: 1}
	plan := &models.EscalationPlan{
		ItemID:         "t1",
		Reason:         models.EscalationNoResponse,
		EscalateTo:     []models.FamilyMember{{ID: "cg-2"}, {ID: "cg-3"}},
		Message:        "Ana has not responded",
		TimeoutMinutes: 10,
	}
	require.NoError(t, d.DispatchEscalation(item, plan))

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "careops/elder-1/escalation", pub.messages[0].topic)
	payload := decode(t, pub.messages[0].payload)["payload"].(map[string]interface{})
	assert.Equal(t, []interface{}{"cg-2", "cg-3"}, payload["recipients"])
	assert.Equal(t, false, payload["needs_professional_care"])
}

func TestMQTTDispatcher_DispatchEmergency(t *testing.T) {
	pub := &fakePublisher{}
	d := NewMQTTDispatcher(pub, "family", 1, models.NewFixedClock(testNow), nil)

	plan := &models.ActionPlan{AlertID: "a1", Recommendation: models.RecommendCall911, UrgencyLevel: 10}
	require.NoError(t, d.DispatchEmergency("elder-9", plan))

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "family/elder-9/emergency", pub.messages[0].topic)
	body := decode(t, pub.messages[0].payload)
	assert.Equal(t, "2026-03-02T09:00:00Z", body["sent_at"])
	assert.Equal(t, "call_911", body["payload"].(map[string]interface{})["recommendation"])
}

func TestMQTTDispatcher_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	d := NewMQTTDispatcher(pub, "careops", 1, nil, nil)

	err := d.DispatchEmergency("elder-1", &models.ActionPlan{AlertID: "a1"})
	assert.EqualError(t, err, "not connected")
}

func emergencyPlan() *models.ActionPlan {
	return &models.ActionPlan{
		AlertID:        "a1",
		Recommendation: models.RecommendCall911,
		CallScript: &models.CallScript{
			Script:           "I need to report a medical emergency.",
			KeyInformation:   []string{"Location: 12 Oak St"},
			CurrentCondition: "The person is unconscious.",
		},
	}
}

func TestEmergencyDialer_Dial(t *testing.T) {
	var got DialRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/dial", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"call_id":"call-42","status":"queued"}`))
	}))
	defer server.Close()

	d := NewEmergencyDialer(server.URL+"/dial", time.Second, 0, zap.NewNop())
	resp, err := d.Dial("elder-1", emergencyPlan())
	require.NoError(t, err)
	assert.Equal(t, "call-42", resp.CallID)
	assert.Equal(t, "queued", resp.Status)

	assert.Equal(t, "a1", got.AlertID)
	assert.Equal(t, "elder-1", got.SubjectID)
	assert.Equal(t, "call_911", got.Recommendation)
	assert.Equal(t, []string{"Location: 12 Oak St"}, got.KeyInformation)
}

func TestEmergencyDialer_ServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"no line available"}`))
	}))
	defer server.Close()

	d := NewEmergencyDialer(server.URL, time.Second, 0, nil)
	_, err := d.Dial("elder-1", emergencyPlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no line available")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEmergencyDialer_RequiresScript(t *testing.T) {
	d := NewEmergencyDialer("http://127.0.0.1:1", time.Second, 0, nil)
	_, err := d.Dial("elder-1", &models.ActionPlan{AlertID: "a1"})
	assert.ErrorIs(t, err, models.ErrValidation)
}
