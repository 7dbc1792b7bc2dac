package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned for unknown, expired or malformed session ids.
var ErrNoSession = errors.New("no session")

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Data is what a browser session carries. UserID is zero for anonymous
// sessions that only hold flashes.
type Data struct {
	UserID    uint      `json:"user_id,omitempty"`
	Stamp     string    `json:"stamp,omitempty"`
	Flashes   []Flash   `json:"flashes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps sessions in Redis under opaque UUID ids. Every read slides the
// expiry forward by ttl.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

// TTL is how long an idle session lives.
func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) key(id string) string {
	return "session:" + id
}

// Create stores data under a fresh id and returns the id.
func (s *Store) Create(ctx context.Context, data Data) (string, error) {
	id := uuid.NewString()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}
	if err := s.Save(ctx, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (Data, error) {
	var data Data
	if _, err := uuid.Parse(id); err != nil {
		return data, ErrNoSession
	}
	raw, err := s.client.GetEx(ctx, s.key(id), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return data, ErrNoSession
	}
	if err != nil {
		return data, fmt.Errorf("load session: %w", err)
	}
	if err := sonic.Unmarshal(raw, &data); err != nil {
		_ = s.client.Del(ctx, s.key(id)).Err()
		return data, ErrNoSession
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, id string, data Data) error {
	raw, err := sonic.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Touch extends the session's expiry without reading it.
func (s *Store) Touch(ctx context.Context, id string) error {
	ok, err := s.client.Expire(ctx, s.key(id), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if !ok {
		return ErrNoSession
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// AddFlash appends a message to the session.
func (s *Store) AddFlash(ctx context.Context, id string, f Flash) error {
	data, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	data.Flashes = append(data.Flashes, f)
	return s.Save(ctx, id, data)
}

// PopFlashes returns and clears the session's pending messages.
func (s *Store) PopFlashes(ctx context.Context, id string) ([]Flash, error) {
	data, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(data.Flashes) == 0 {
		return nil, nil
	}
	flashes := data.Flashes
	data.Flashes = nil
	if err := s.Save(ctx, id, data); err != nil {
		return nil, err
	}
	return flashes, nil
}
