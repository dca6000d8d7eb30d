// Package publisher fans emitted decisions out to downstream consumers.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/config"
	"github.com/yourusername/linelogic/internal/models"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "linelogic:decisions"

// RedisPublisher publishes decisions to a Redis stream
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *logrus.Logger
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisPublisher creates a new stream publisher. A maxLen of zero leaves
// the stream untrimmed.
func NewRedisPublisher(client *redis.Client, stream string, maxLen int64, logger *logrus.Logger) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

// Stream returns the stream key decisions are published to
func (p *RedisPublisher) Stream() string {
	return p.stream
}

// SaveDecisions publishes decisions in a single pipeline
func (p *RedisPublisher) SaveDecisions(ctx context.Context, decisions []models.StakeDecision) error {
	if len(decisions) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, d := range decisions {
		values, err := streamValues(d)
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, p.xaddArgs(values))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}

	p.logger.WithFields(logrus.Fields{
		"stream":    p.stream,
		"decisions": len(decisions),
	}).Debug("Published decisions")
	return nil
}

func (p *RedisPublisher) xaddArgs(values map[string]interface{}) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	return args
}

// streamValues flattens a decision into stream fields. The full decision
// travels as JSON under "data"; the rest are for consumers that filter.
func streamValues(d models.StakeDecision) (map[string]interface{}, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decision %s: %w", d.ID, err)
	}
	return map[string]interface{}{
		"data":        string(data),
		"decision_id": d.ID.String(),
		"game_id":     d.GameID,
		"game_date":   d.GameDate.Format(models.DateLayout),
		"selection":   d.Selection,
		"edge":        strconv.FormatFloat(d.Edge, 'f', 6, 64),
		"stake":       d.StakeAmount.StringFixed(2),
	}, nil
}
