package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/common/database"
	"github.com/samalpartha/CareCircle-sub001/internal/common/mqtt"
	rediscommon "github.com/samalpartha/CareCircle-sub001/internal/common/redis"
	"github.com/samalpartha/CareCircle-sub001/internal/config"
	"github.com/samalpartha/CareCircle-sub001/internal/consumer"
	"github.com/samalpartha/CareCircle-sub001/internal/notifier"
	"github.com/samalpartha/CareCircle-sub001/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// App owns the connections and background loops around a CareOpsService
type App struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client
	logger      *zap.Logger

	service        *CareOpsService
	streamConsumer *consumer.StreamConsumer
	scheduler      *consumer.EscalationScheduler
}

// NewApp connects to PostgreSQL, Redis and the MQTT broker and wires the
// repositories, session store and notifiers into the service.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// 1. database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	// 2. redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. mqtt
	mqttClient, err := mqtt.NewClient(&cfg.MQTT)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}

	// 4. repositories
	queueRepo := repository.NewQueueItemRepository(db, logger)
	timelineRepo := repository.NewTimelineRepository(db, logger)
	outcomeRepo := repository.NewOutcomeRepository(db, logger)
	caregiverRepo := repository.NewCaregiverRepository(db, logger)

	// 5. collaborators
	sessions := consumer.NewSessionStore(
		redisClient,
		cfg.CareOps.Session.KeyPrefix,
		time.Duration(cfg.CareOps.Session.TTLSeconds)*time.Second,
		logger,
	)
	dispatcher := notifier.NewMQTTDispatcher(mqttClient, cfg.CareOps.TopicPrefix, mqttClient.QoS(), nil, logger)
	dialer := notifier.NewEmergencyDialer(
		cfg.CareOps.EmergencyDialer.URL,
		time.Duration(cfg.CareOps.EmergencyDialer.TimeoutSec)*time.Second,
		cfg.CareOps.EmergencyDialer.RetryCount,
		logger,
	)

	svc, err := NewCareOpsService(cfg.Tuning, Deps{
		Roster:     caregiverRepo,
		Queue:      queueRepo,
		Outcomes:   outcomeRepo,
		Timeline:   timelineRepo,
		History:    timelineRepo,
		Dispatcher: dispatcher,
		Dialer:     dialer,
		Sessions:   sessions,
	}, logger)
	if err != nil {
		db.Close()
		redisClient.Close()
		mqttClient.Disconnect()
		return nil, err
	}

	// 6. intake and timers
	streamConsumer := consumer.NewStreamConsumer(cfg, redisClient, svc, logger)
	scheduler := consumer.NewEscalationScheduler(
		svc,
		time.Duration(cfg.CareOps.EscalationPollInterval)*time.Second,
		logger,
	)

	return &App{
		config:         cfg,
		db:             db,
		redisClient:    redisClient,
		mqttClient:     mqttClient,
		logger:         logger,
		service:        svc,
		streamConsumer: streamConsumer,
		scheduler:      scheduler,
	}, nil
}

// Service exposes the engine to API layers
func (a *App) Service() *CareOpsService {
	return a.service
}

// Start restores the open queue, then runs the stream consumer and the
// escalation scheduler until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	a.logger.Info("Starting care operations service",
		zap.String("alerts_stream", a.config.CareOps.Streams.Alerts),
		zap.String("tasks_stream", a.config.CareOps.Streams.Tasks),
	)

	if _, err := a.service.LoadQueue(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.scheduler.Start(ctx)
	}()

	err := a.streamConsumer.Start(ctx)
	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("stream consumer stopped: %w", err)
	}
	return nil
}

// Stop closes the connections
func (a *App) Stop() error {
	a.logger.Info("Stopping care operations service")

	if err := database.Close(a.db); err != nil {
		a.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	if a.mqttClient.IsConnected() {
		a.mqttClient.Disconnect()
	}
	return nil
}
