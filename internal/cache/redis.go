// Package cache keeps the newest reply of each conversation in Redis.
//
// Entries are keyed by the conversation id together with its updated_at
// stamp. Appending a reply moves updated_at, so the next inbox read misses
// and recomputes; a stale entry can never be served for a newer version.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"

	"institution-chat/internal/model"
)

type LatestReplyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestReplyCache connects to the Redis instance at url.
func NewLatestReplyCache(url string, ttl time.Duration) (*LatestReplyCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewWithClient(c, ttl), nil
}

func NewWithClient(c *redis.Client, ttl time.Duration) *LatestReplyCache {
	return &LatestReplyCache{client: c, ttl: ttl}
}

func Key(conv model.Conversation) string {
	return fmt.Sprintf("chat:latest:%d:%d", conv.ID, conv.UpdatedAt.UnixMicro())
}

// Get returns the cached newest reply for this version of conv.
func (c *LatestReplyCache) Get(ctx context.Context, conv model.Conversation) (model.ConversationReply, bool, error) {
	raw, err := c.client.Get(ctx, Key(conv)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ConversationReply{}, false, nil
	}
	if err != nil {
		return model.ConversationReply{}, false, errors.Wrap(err, "redis get")
	}

	var r model.ConversationReply
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.ConversationReply{}, false, errors.Wrap(err, "decode cached reply")
	}
	return r, true, nil
}

func (c *LatestReplyCache) Set(ctx context.Context, conv model.Conversation, reply model.ConversationReply) error {
	raw, err := json.Marshal(reply)
	if err != nil {
		return errors.Wrap(err, "encode reply")
	}
	return errors.Wrap(c.client.Set(ctx, Key(conv), raw, c.ttl).Err(), "redis set")
}

func (c *LatestReplyCache) Close() error {
	return c.client.Close()
}
