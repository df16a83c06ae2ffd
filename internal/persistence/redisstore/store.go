// SPDX-License-Identifier: MIT

// Package redisstore keeps the zone document as a YAML blob under one Redis
// key and announces every save on a pub/sub channel so that other instances
// sharing the key can reload.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Key      string // key holding the document; defaults to DefaultKey
}

// DefaultKey is used when Config.Key is empty.
const DefaultKey = "zonewatch:zones"

// Store is a derived.Store backed by Redis.
type Store struct {
	client   *redis.Client
	key      string
	instance string
	logger   zerolog.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("event", "store.connected").
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis zone store")
	return NewWithClient(client, cfg.Key, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, key string, logger zerolog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key, instance: uuid.NewString(), logger: logger}
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

// Key returns the document key.
func (s *Store) Key() string { return s.key }

func (s *Store) channel() string { return s.key + ":changed" }

// Load reads the document.
func (s *Store) Load(ctx context.Context) (derived.Document, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return derived.Document{}, derived.ErrNoDocument
	}
	if err != nil {
		return derived.Document{}, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return derived.UnmarshalDocument(data)
}

// Save writes the document and the save time in one transaction, then
// announces the change.
func (s *Store) Save(ctx context.Context, doc derived.Document) error {
	data, err := derived.MarshalDocument(doc)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key, data, 0)
		pipe.Set(ctx, s.key+":saved_at", time.Now().UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	if err := s.client.Publish(ctx, s.channel(), s.instance).Err(); err != nil {
		// the document is saved; peers catch up on their next reload
		s.logger.Warn().Err(err).Str("event", "store.publish_failed").Msg("failed to announce zone document change")
	}
	return nil
}

// Watch calls onChange whenever another instance saves the document. It
// blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	sub := s.client.Subscribe(ctx, s.channel())
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe %s: %w", s.channel(), err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == s.instance {
				continue
			}
			s.logger.Debug().
				Str("event", "store.peer_changed").
				Str("peer", msg.Payload).
				Msg("zone document changed by another instance")
			onChange()
		}
	}
}
