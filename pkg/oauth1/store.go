package oauth1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	requestTokenKeyPrefix = "etrade_request_token:"

	// RequestTokenTTL matches E*TRADE's five minute request token lifetime.
	RequestTokenTTL = 5 * time.Minute
)

// ErrRequestTokenNotFound is returned when a request token is unknown,
// expired or already consumed.
var ErrRequestTokenNotFound = errors.New("invalid or expired request token")

// RequestTokenStore keeps request token secrets between the first and third
// legs of the flow.
type RequestTokenStore interface {
	// Save stores the token until it is taken or expires.
	Save(ctx context.Context, rt *RequestToken) error

	// Take returns the token and removes it (one-time use).
	Take(ctx context.Context, token string) (*RequestToken, error)
}

// redisRequestTokenStore implements RequestTokenStore using Redis.
type redisRequestTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRequestTokenStore creates a Redis-backed request token store.
func NewRedisRequestTokenStore(client *redis.Client) RequestTokenStore {
	return &redisRequestTokenStore{client: client, ttl: RequestTokenTTL}
}

func (s *redisRequestTokenStore) Save(ctx context.Context, rt *RequestToken) error {
	data, err := json.Marshal(rt)
	if err != nil {
		return fmt.Errorf("failed to marshal request token: %w", err)
	}

	if err := s.client.Set(ctx, requestTokenKeyPrefix+rt.Token, string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store request token: %w", err)
	}
	return nil
}

func (s *redisRequestTokenStore) Take(ctx context.Context, token string) (*RequestToken, error) {
	// GETDEL keeps the take atomic across replicas
	data, err := s.client.GetDel(ctx, requestTokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil, ErrRequestTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request token: %w", err)
	}

	var rt RequestToken
	if err := json.Unmarshal([]byte(data), &rt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request token: %w", err)
	}
	return &rt, nil
}

// MemoryRequestTokenStore is an in-process store for single-instance runs.
type MemoryRequestTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryEntry
	ttl    time.Duration
	now    func() time.Time
}

type memoryEntry struct {
	token     RequestToken
	expiresAt time.Time
}

// NewMemoryRequestTokenStore creates an empty in-memory store.
func NewMemoryRequestTokenStore() *MemoryRequestTokenStore {
	return &MemoryRequestTokenStore{
		tokens: make(map[string]memoryEntry),
		ttl:    RequestTokenTTL,
		now:    time.Now,
	}
}

func (s *MemoryRequestTokenStore) Save(ctx context.Context, rt *RequestToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.tokens {
		if now.After(e.expiresAt) {
			delete(s.tokens, k)
		}
	}
	s.tokens[rt.Token] = memoryEntry{token: *rt, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryRequestTokenStore) Take(ctx context.Context, token string) (*RequestToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tokens[token]
	if !ok {
		return nil, ErrRequestTokenNotFound
	}
	delete(s.tokens, token)
	if s.now().After(e.expiresAt) {
		return nil, ErrRequestTokenNotFound
	}
	rt := e.token
	return &rt, nil
}
