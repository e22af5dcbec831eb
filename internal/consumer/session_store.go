package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrSessionNotFound means the snapshot expired or never existed
var ErrSessionNotFound = errors.New("triage session not found")

// SessionStore keeps triage snapshots in Redis so a session survives a
// restart or moves between instances
type SessionStore struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
	logger      *zap.Logger
}

func NewSessionStore(redisClient *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		logger:      logger,
	}
}

// Key builds the Redis key of a session
func (s *SessionStore) Key(sessionID string) string {
	return s.keyPrefix + sessionID
}

// Save writes the snapshot and refreshes its TTL
func (s *SessionStore) Save(ctx context.Context, snap *models.TriageProtocol) error {
	if snap == nil || snap.SessionID == "" {
		return fmt.Errorf("triage session id is required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal triage session: %w", err)
	}
	if err := s.redisClient.Set(ctx, s.Key(snap.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save triage session: %w", err)
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (*models.TriageProtocol, error) {
	val, err := s.redisClient.Get(ctx, s.Key(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load triage session: %w", err)
	}

	var snap models.TriageProtocol
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal triage session: %w", err)
	}
	return &snap, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redisClient.Del(ctx, s.Key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete triage session: %w", err)
	}
	return nil
}
