package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/splax/reportdesk/pkg/crypto"
)

const redisKeyPrefix = "reportdesk:session:"

// record is the JSON form sealed into Redis.
type record struct {
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisStore keeps sessions in Redis with a TTL per key. Payloads are sealed
// with AES-GCM so a leaked keyspace does not reveal user ids.
type RedisStore struct {
	client *redis.Client
	sealer crypto.Sealer
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps client. The store does not own the client; Close is a no-op.
func NewRedisStore(client *redis.Client, secret string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("session: nil redis client")
	}
	sealer, err := crypto.NewSealer(secret)
	if err != nil {
		return nil, fmt.Errorf("session sealer: %w", err)
	}
	return &RedisStore{client: client, sealer: sealer, prefix: redisKeyPrefix}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	rec, err := s.decode(payload)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, UserID: rec.UserID, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt}, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	payload, err := s.encode(record{UserID: sess.UserID, CreatedAt: sess.CreatedAt, ExpiresAt: sess.ExpiresAt})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+sess.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return nil }

func (s *RedisStore) encode(rec record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return s.sealer.Seal(raw)
}

// decode reports undecryptable or corrupt payloads as ErrNotFound.
func (s *RedisStore) decode(payload []byte) (record, error) {
	raw, err := s.sealer.Open(payload)
	if err != nil {
		return record{}, ErrNotFound
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record{}, ErrNotFound
	}
	return rec, nil
}
