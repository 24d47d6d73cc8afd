package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type KeyType string

const (
	SessionInfo      KeyType = "voice_session_info"
	CampaignCooldown KeyType = "voice_campaign_cooldown"
	OptOutSet        KeyType = "voice_opt_out_set"
	// CallPlan caches the agent/prompt-version selection made at
	// call-answer time, keyed by call control id, so whichever pod the
	// carrier's media WebSocket actually lands on can provision the
	// session without having owned the answer webhook itself.
	CallPlan KeyType = "voice_call_plan"
	// CampaignThroughput counts sends against a campaign's aggregate
	// messages-per-minute cap, keyed by campaign id rather than phone
	// number (CampaignCooldown's key), so the cap holds across every
	// contact in the campaign, not just repeats to the same number.
	CampaignThroughput KeyType = "voice_campaign_throughput"
)

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

var ErrKeyNotExist = redis.Nil

type RedisServiceInterface interface {
	GenerateKey(keyType KeyType, identifier string) string
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key string, value string, ttl time.Duration) error
	DelValue(ctx context.Context, key string) error
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string, handler func(string)) error
	SAdd(ctx context.Context, key string, member string) error
	SIsMember(ctx context.Context, key string, member string) (bool, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type RedisService struct {
	client *redis.Client
}

func NewRedisService(config *RedisConfig) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisService{
		client: client,
	}, nil
}

// GenerateKey generates a Redis key with the given key type and identifier
func (r *RedisService) GenerateKey(keyType KeyType, identifier string) string {
	return fmt.Sprintf("%s:%s", string(keyType), identifier)
}

// GetValue gets a value from Redis by key
func (r *RedisService) GetValue(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetValue sets a value in Redis with TTL
func (r *RedisService) SetValue(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// DelValue deletes a value from Redis by key
func (r *RedisService) DelValue(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Publish publishes a message to a Redis channel
func (r *RedisService) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe subscribes to a Redis channel and handles incoming messages
func (r *RedisService) Subscribe(ctx context.Context, channel string, handler func(string)) error {
	pubsub := r.client.Subscribe(ctx, channel)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for msg := range ch {
			handler(msg.Payload)
		}
	}()

	return nil
}

// SAdd adds a member to a Redis set, used for the campaign opt-out cache.
func (r *RedisService) SAdd(ctx context.Context, key string, member string) error {
	return r.client.SAdd(ctx, key, member).Err()
}

// SIsMember reports whether member is present in the set at key.
func (r *RedisService) SIsMember(ctx context.Context, key string, member string) (bool, error) {
	return r.client.SIsMember(ctx, key, member).Result()
}

// Incr atomically increments the integer at key, used for per-number
// sending-rate counters in the campaign dispatcher.
func (r *RedisService) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 && ttl > 0 {
		r.client.Expire(ctx, key, ttl)
	}
	return n, nil
}
