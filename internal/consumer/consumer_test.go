package consumer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	rediscommon "github.com/samalpartha/CareCircle-sub001/internal/common/redis"
	"github.com/samalpartha/CareCircle-sub001/internal/config"
	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.CareOps.Streams.Alerts = "careops:alerts"
	cfg.CareOps.Streams.Tasks = "careops:tasks"
	cfg.CareOps.Streams.ConsumerGroup = "careops-engine"
	cfg.CareOps.Streams.ConsumerName = "test-1"
	cfg.CareOps.Streams.BatchSize = 10
	return cfg
}

type fakeIntake struct {
	mu     sync.Mutex
	alerts []*models.Alert
	tasks  []*models.Task
}

func (f *fakeIntake) IngestAlert(ctx context.Context, a *models.Alert) (*models.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.SubjectID == "" {
		return nil, models.NewValidationError("subject id is required")
	}
	f.alerts = append(f.alerts, a)
	if len(f.alerts) > 1 && f.alerts[0].Type == a.Type {
		return nil, nil // suppressed duplicate
	}
	return &models.QueueItem{ID: "alert:" + a.ID}, nil
}

func (f *fakeIntake) IngestTask(ctx context.Context, t *models.Task) (*models.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t)
	return &models.QueueItem{ID: "task:" + t.ID}, nil
}

func TestStreamConsumer_ConsumeOnce(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	cfg := testConfig()
	intake := &fakeIntake{}

	c := NewStreamConsumer(cfg, client, intake, zap.NewNop())
	c.block = 10 * time.Millisecond
	for _, s := range c.streams() {
		require.NoError(t, rediscommon.CreateConsumerGroup(ctx, client, s, cfg.CareOps.Streams.ConsumerGroup))
	}

	_, err := rediscommon.PublishJSONToStream(ctx, client, cfg.CareOps.Streams.Alerts, &models.Alert{
		ID:        "a1",
		SubjectID: "elder-1",
		Type:      models.AlertFall,
		Severity:  models.SeverityUrgent,
		CreatedAt: testNow,
	})
	require.NoError(t, err)
	_, err = rediscommon.PublishJSONToStream(ctx, client, cfg.CareOps.Streams.Alerts, &models.Alert{
		ID:        "a2",
		SubjectID: "elder-1",
		Type:      models.AlertFall,
		Severity:  models.SeverityUrgent,
		CreatedAt: testNow,
	})
	require.NoError(t, err)
	_, err = rediscommon.PublishJSONToStream(ctx, client, cfg.CareOps.Streams.Alerts, &models.Alert{ID: "a3"})
	require.NoError(t, err)
	_, err = client.XAdd(ctx, &redis.XAddArgs{
		Stream: cfg.CareOps.Streams.Alerts,
		Values: map[string]interface{}{"data": "{not json"},
	}).Result()
	require.NoError(t, err)
	_, err = rediscommon.PublishJSONToStream(ctx, client, cfg.CareOps.Streams.Tasks, &models.Task{
		ID:        "t1",
		SubjectID: "elder-1",
		Title:     "Pick up prescription",
		Priority:  models.SeverityHigh,
	})
	require.NoError(t, err)

	require.NoError(t, c.ConsumeOnce(ctx))

	require.Len(t, intake.alerts, 2)
	assert.Equal(t, "a1", intake.alerts[0].ID)
	require.Len(t, intake.tasks, 1)
	assert.Equal(t, "Pick up prescription", intake.tasks[0].Title)

	m := c.Metrics()
	assert.Equal(t, int64(5), m.MessagesProcessed)
	// a1 and t1 queued; the suppressed a2 and the invalid a3 are skipped
	assert.Equal(t, int64(2), m.MessagesSucceeded)
	assert.Equal(t, int64(2), m.MessagesSkipped)
	assert.Equal(t, int64(1), m.MessagesFailed)
	assert.Equal(t, int64(1), m.ErrorsParse)

	// everything was acknowledged, including the failures
	for _, s := range c.streams() {
		pending, err := client.XPending(ctx, s, cfg.CareOps.Streams.ConsumerGroup).Result()
		require.NoError(t, err)
		assert.Zero(t, pending.Count, s)
	}

	// nothing new: an empty read is not an error
	require.NoError(t, c.ConsumeOnce(ctx))
	assert.Equal(t, int64(5), c.Metrics().MessagesProcessed)
}

func TestStreamConsumer_StartStopsOnCancel(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewStreamConsumer(testConfig(), client, &fakeIntake{}, nil)
	c.block = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

type countingChecker struct {
	calls int32
	err   error
}

func (c *countingChecker) CheckEscalations(ctx context.Context) (int, error) {
	atomic.AddInt32(&c.calls, 1)
	return 1, c.err
}

func TestEscalationScheduler_Sweeps(t *testing.T) {
	checker := &countingChecker{}
	s := NewEscalationScheduler(checker, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&checker.calls) >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestEscalationScheduler_ErrorDoesNotStop(t *testing.T) {
	checker := &countingChecker{err: errors.New("roster unavailable")}
	s := NewEscalationScheduler(checker, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&checker.calls) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestNewEscalationScheduler_DefaultInterval(t *testing.T) {
	s := NewEscalationScheduler(&countingChecker{}, 0, nil)
	assert.Equal(t, 30*time.Second, s.interval)
}

func TestSessionStore_RoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewSessionStore(client, "careops:triage:", time.Hour, zap.NewNop())
	ctx := context.Background()

	snap := &models.TriageProtocol{
		SessionID:    "s1",
		AlertID:      "alert-1",
		ProtocolType: models.ProtocolFall,
		SubjectName:  "Rose",
		CurrentStep:  2,
		State:        models.TriageInProgress,
		Responses:    map[string]interface{}{"consciousness": true, "pain_level_initial": 3.0},
		Visited:      []int{1, 2},
		StartedAt:    testNow,
		UpdatedAt:    testNow,
	}
	require.NoError(t, store.Save(ctx, snap))
	assert.True(t, mr.Exists("careops:triage:s1"))
	assert.Equal(t, time.Hour, mr.TTL("careops:triage:s1"))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, snap.AlertID, got.AlertID)
	assert.Equal(t, 2, got.CurrentStep)
	assert.Equal(t, []int{1, 2}, got.Visited)
	assert.Equal(t, true, got.Responses["consciousness"])
	assert.Equal(t, 3.0, got.Responses["pain_level_initial"])

	mr.FastForward(2 * time.Hour)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_SaveAndDelete(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewSessionStore(client, "careops:triage:", time.Hour, nil)
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, &models.TriageProtocol{}))

	require.NoError(t, store.Save(ctx, &models.TriageProtocol{SessionID: "s2", State: models.TriageEmergency}))
	require.NoError(t, store.Delete(ctx, "s2"))
	_, err := store.Load(ctx, "s2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
