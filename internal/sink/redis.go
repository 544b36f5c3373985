// ABOUTME: Redis transcript sink
// ABOUTME: Publishes finished results and keeps per-session result lists
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harperreed/asrstream/pkg/asr"
	redis "github.com/redis/go-redis/v9"
)

// redisCommands is the subset of *redis.Client the sink uses
type redisCommands interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Close() error
}

// RedisConfig configures the Redis sink
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	// KeyPrefix prefixes per-session keys; defaults to "asrstream:session:"
	KeyPrefix string
}

// Redis publishes each finished result on Channel and appends it to the
// list <prefix><session>. Finish stores the transcript in the hash
// <prefix><session>:meta.
type Redis struct {
	client  redisCommands
	channel string
	prefix  string
}

type redisResult struct {
	Session string `json:"session"`
	asr.Result
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(ctx context.Context, config RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", config.Addr, err)
	}
	return newRedis(client, config), nil
}

func newRedis(client redisCommands, config RedisConfig) *Redis {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "asrstream:session:"
	}
	return &Redis{
		client:  client,
		channel: config.Channel,
		prefix:  prefix,
	}
}

// Write publishes finished results; partials are skipped
func (r *Redis) Write(ctx context.Context, session Session, result asr.Result) error {
	if !result.Finished {
		return nil
	}

	payload, err := json.Marshal(redisResult{Session: session.ID, Result: result})
	if err != nil {
		return err
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH %s: %w", r.channel, err)
	}
	key := r.prefix + session.ID
	if err := r.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("redis RPUSH %s: %w", key, err)
	}
	return nil
}

// Finish stores session metadata and the full transcript
func (r *Redis) Finish(ctx context.Context, session Session, transcript string) error {
	key := r.prefix + session.ID + ":meta"
	err := r.client.HSet(ctx, key,
		"endpoint", session.Endpoint,
		"sample_rate", session.SampleRate,
		"started", session.Started.Unix(),
		"duration_ms", session.Duration().Milliseconds(),
		"transcript", transcript,
	).Err()
	if err != nil {
		return fmt.Errorf("redis HSET %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}
