// Package command interprets inbound operator SMS replies: routing,
// reply-context resolution and handler execution.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"opsdesk_backend/internal/notify"
	"opsdesk_backend/platform/config"
	"opsdesk_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ReplyContext is the per-phone pointer to the most recently prompted
// record, so bare replies like "1" resolve to it.
type ReplyContext struct {
	LeadID           *uuid.UUID `json:"leadId,omitempty"`
	JobID            *uuid.UUID `json:"jobId,omitempty"`
	CustomerName     string     `json:"customerName,omitempty"`
	LastPromptedCode string     `json:"lastPromptedCode,omitempty"`
}

// ContextStore keeps reply contexts keyed by phone digits. Writes are
// last-write-wins; readers tolerate stale pointers.
type ContextStore interface {
	Get(ctx context.Context, phoneDigits string) (ReplyContext, bool, error)
	Set(ctx context.Context, phoneDigits string, rc ReplyContext) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(cfg config.ContextStoreConfig) (*RedisStore, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	ttl := cfg.GetContextTTL()
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	return &RedisStore{
		client: redis.NewClient(opt),
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func contextKey(phoneDigits string) string {
	return "replyctx:" + phoneDigits
}

func (s *RedisStore) Get(ctx context.Context, phoneDigits string) (ReplyContext, bool, error) {
	raw, err := s.client.Get(ctx, contextKey(phoneDigits)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ReplyContext{}, false, nil
	}
	if err != nil {
		return ReplyContext{}, false, err
	}

	var rc ReplyContext
	if err := json.Unmarshal(raw, &rc); err != nil {
		return ReplyContext{}, false, fmt.Errorf("decode reply context: %w", err)
	}
	return rc, true, nil
}

func (s *RedisStore) Set(ctx context.Context, phoneDigits string, rc ReplyContext) error {
	raw, err := json.Marshal(rc)
	if err != nil {
		return fmt.Errorf("encode reply context: %w", err)
	}
	return s.client.Set(ctx, contextKey(phoneDigits), raw, s.ttl).Err()
}

// MemoryStore is an in-process ContextStore for tests and local runs
// without Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	contexts map[string]ReplyContext
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contexts: map[string]ReplyContext{}}
}

func (s *MemoryStore) Get(_ context.Context, phoneDigits string) (ReplyContext, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.contexts[phoneDigits]
	return rc, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, phoneDigits string, rc ReplyContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[phoneDigits] = rc
	return nil
}

// PromptWriter adapts the context store to the outbound pipeline,
// which records a reply pointer whenever a prompt references a record.
type PromptWriter struct {
	store ContextStore
}

func NewPromptWriter(store ContextStore) *PromptWriter {
	return &PromptWriter{store: store}
}

func (w *PromptWriter) SetPrompt(ctx context.Context, phoneNumber string, p notify.PromptPointer) error {
	return w.store.Set(ctx, phone.Digits(phoneNumber), ReplyContext{
		LeadID:           p.LeadID,
		JobID:            p.JobID,
		CustomerName:     p.CustomerName,
		LastPromptedCode: p.PromptedCode,
	})
}
