package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const (
	chatLoopKey      = "chat:%d:loop"      // String: remaining repeats of the queue head
	chatLangKey      = "chat:%d:lang"      // String: language code
	chatAssistantKey = "chat:%d:assistant" // String: sticky assistant slot index
	activeChatsKey   = "calls:active"      // Set: chats with an active stream
	activeVideoKey   = "calls:active_video"
	musicOnKey       = "calls:music_on"
	autoendKey       = "calls:autoend" // String: "1" when autoend is enabled

	defaultLang = "en"
)

// ChatCache holds the per-chat call state that outlives a single operation:
// loop counters, active flags, language and assistant assignments.
type ChatCache struct {
	client *redis.Client
}

// NewChatCache creates a chat cache on the global client.
func NewChatCache() *ChatCache {
	return &ChatCache{client: RedisClient}
}

// NewChatCacheWith creates a chat cache on an explicit client.
func NewChatCacheWith(client *redis.Client) *ChatCache {
	return &ChatCache{client: client}
}

// ========== loop counter ==========

// GetLoop returns the chat's remaining loop count, zero when unset.
func (c *ChatCache) GetLoop(ctx context.Context, chatID int64) (int, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf(chatLoopKey, chatID)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("bad loop value %q: %w", val, err)
	}
	return n, nil
}

// SetLoop stores the chat's loop count. Negative values are clamped to zero.
func (c *ChatCache) SetLoop(ctx context.Context, chatID int64, loop int) error {
	if loop < 0 {
		loop = 0
	}
	return c.client.Set(ctx, fmt.Sprintf(chatLoopKey, chatID), loop, 0).Err()
}

// ========== active chat flags ==========

// AddActiveChat marks a chat as having an active stream.
func (c *ChatCache) AddActiveChat(ctx context.Context, chatID int64) error {
	return c.client.SAdd(ctx, activeChatsKey, chatID).Err()
}

// RemoveActiveChat clears the active-stream mark.
func (c *ChatCache) RemoveActiveChat(ctx context.Context, chatID int64) error {
	return c.client.SRem(ctx, activeChatsKey, chatID).Err()
}

// IsActiveChat reports whether the chat has an active stream.
func (c *ChatCache) IsActiveChat(ctx context.Context, chatID int64) (bool, error) {
	return c.client.SIsMember(ctx, activeChatsKey, chatID).Result()
}

// ActiveChats lists all chats with an active stream.
func (c *ChatCache) ActiveChats(ctx context.Context) ([]int64, error) {
	vals, err := c.client.SMembers(ctx, activeChatsKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// AddActiveVideoChat marks a chat as streaming video.
func (c *ChatCache) AddActiveVideoChat(ctx context.Context, chatID int64) error {
	return c.client.SAdd(ctx, activeVideoKey, chatID).Err()
}

// RemoveActiveVideoChat clears the video mark.
func (c *ChatCache) RemoveActiveVideoChat(ctx context.Context, chatID int64) error {
	return c.client.SRem(ctx, activeVideoKey, chatID).Err()
}

// MusicOn marks music as enabled for the chat.
func (c *ChatCache) MusicOn(ctx context.Context, chatID int64) error {
	return c.client.SAdd(ctx, musicOnKey, chatID).Err()
}

// MusicOff clears the music-enabled mark.
func (c *ChatCache) MusicOff(ctx context.Context, chatID int64) error {
	return c.client.SRem(ctx, musicOnKey, chatID).Err()
}

// ========== language ==========

// GetLang returns the chat's language code, "en" when unset.
func (c *ChatCache) GetLang(ctx context.Context, chatID int64) string {
	val, err := c.client.Get(ctx, fmt.Sprintf(chatLangKey, chatID)).Result()
	if err != nil || val == "" {
		return defaultLang
	}
	return val
}

// SetLang stores the chat's language code.
func (c *ChatCache) SetLang(ctx context.Context, chatID int64, lang string) error {
	return c.client.Set(ctx, fmt.Sprintf(chatLangKey, chatID), lang, 0).Err()
}

// ========== assistant assignment ==========

// GetAssistant returns the sticky assistant slot for a chat, -1 when unset.
func (c *ChatCache) GetAssistant(ctx context.Context, chatID int64) (int, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf(chatAssistantKey, chatID)).Result()
	if err != nil {
		if err == redis.Nil {
			return -1, nil
		}
		return -1, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return -1, fmt.Errorf("bad assistant slot %q: %w", val, err)
	}
	return n, nil
}

// SetAssistant stores the sticky assistant slot for a chat.
func (c *ChatCache) SetAssistant(ctx context.Context, chatID int64, slot int) error {
	return c.client.Set(ctx, fmt.Sprintf(chatAssistantKey, chatID), slot, 0).Err()
}

// ========== autoend ==========

// AutoendEnabled reports whether the global autoend switch is on.
func (c *ChatCache) AutoendEnabled(ctx context.Context) (bool, error) {
	val, err := c.client.Get(ctx, autoendKey).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return val == "1", nil
}

// SetAutoend flips the global autoend switch.
func (c *ChatCache) SetAutoend(ctx context.Context, on bool) error {
	val := "0"
	if on {
		val = "1"
	}
	return c.client.Set(ctx, autoendKey, val, 0).Err()
}
