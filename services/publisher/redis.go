package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/Nestour97/dsp-scraper/internal/model"
)

// RedisPublisher implements Publisher using Redis streams. Rows and
// diagnostics go to separate streams under a common prefix.
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamMaxLength: streamMaxLength,
	}
}

// PublishRow publishes one price row to the rows stream.
func (p *RedisPublisher) PublishRow(row model.PriceRow) error {
	return p.publish(p.streamPrefix+":rows", row.Provider, row)
}

// PublishDiagnostic publishes one failure record to the diagnostics stream.
func (p *RedisPublisher) PublishDiagnostic(diag model.Diagnostic) error {
	return p.publish(p.streamPrefix+":diagnostics", diag.Provider, diag)
}

// publish marshals the payload, base64 encodes it and appends it to the
// stream keyed by provider name.
func (p *RedisPublisher) publish(stream, key string, payload any) error {
	message, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	encodedMessage := base64.StdEncoding.EncodeToString(message)

	return p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			key: encodedMessage,
		},
	}).Err()
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	pattern := p.streamPrefix + ":*"
	streams, err := p.client.Keys(p.ctx, pattern).Result()
	if err != nil {
		return err
	}

	for _, stream := range streams {
		err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err()
		if err != nil {
			return err
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
