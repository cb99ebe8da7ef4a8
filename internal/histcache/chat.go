package histcache

import (
	"encoding/json"
	"time"

	"github.com/oakline/wallbed-studio/internal/domain"
)

const (
	chatHistoryKey = "chat_history"

	// ChatRetention is how long a cached chat message stays loadable.
	// Expiry is double-enforced: the store expires the whole slot, and
	// Load drops individual entries older than this by their own
	// timestamp.
	ChatRetention = 15 * 24 * time.Hour
)

// ChatCache is the append-only local log of chat messages.
type ChatCache struct {
	store Store
	now   func() time.Time
}

// NewChatCache creates a chat cache over the given store.
func NewChatCache(store Store) *ChatCache {
	return &ChatCache{store: store, now: time.Now}
}

// Load returns cached messages that are still within the retention
// window. A corrupt slot reads as empty.
func (c *ChatCache) Load() []domain.ChatMessage {
	raw, ok := c.store.Get(chatHistoryKey)
	if !ok {
		return nil
	}

	var messages []domain.ChatMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		// A corrupt slot is dropped rather than surfaced.
		c.store.Clear(chatHistoryKey)
		return nil
	}

	cutoff := c.now().Add(-ChatRetention)
	kept := messages[:0]
	for _, msg := range messages {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = c.now()
		}
		if msg.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, msg)
	}
	return kept
}

// Append adds messages to the cached log and rewrites the slot once.
// Both sides of a turn must be appended together: the backing cookie
// store reads from the request, so a write within the same request is
// not visible to a second Load. System messages are not cached; they
// are re-seeded on load.
func (c *ChatCache) Append(msgs ...domain.ChatMessage) {
	messages := c.Load()
	for _, msg := range msgs {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = c.now()
		}
		messages = append(messages, msg)
	}
	c.save(messages)
}

// Replace rewrites the cached log with the given history.
func (c *ChatCache) Replace(messages []domain.ChatMessage) {
	c.save(messages)
}

// Clear drops the cached log.
func (c *ChatCache) Clear() {
	c.store.Clear(chatHistoryKey)
}

func (c *ChatCache) save(messages []domain.ChatMessage) {
	filtered := make([]domain.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == domain.RoleSystem {
			continue
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = c.now()
		}
		filtered = append(filtered, msg)
	}

	raw, err := json.Marshal(filtered)
	if err != nil {
		return
	}
	c.store.Set(chatHistoryKey, string(raw), ChatRetention)
}

// MergeInitial combines the fixed initial system entries with loaded
// history. Entries are deduplicated by id; entries without ids (legacy
// cache contents) fall back to content comparison, which collapses
// distinct messages with identical text and is the accepted coarseness
// of that fallback.
func MergeInitial(initial, loaded []domain.ChatMessage) []domain.ChatMessage {
	merged := make([]domain.ChatMessage, 0, len(initial)+len(loaded))
	seenIDs := make(map[string]bool)
	seenContent := make(map[string]bool)

	appendUnique := func(msg domain.ChatMessage) {
		if msg.ID != "" {
			if seenIDs[msg.ID] {
				return
			}
			seenIDs[msg.ID] = true
		} else {
			if seenContent[msg.Content] {
				return
			}
			seenContent[msg.Content] = true
		}
		merged = append(merged, msg)
	}

	for _, msg := range initial {
		appendUnique(msg)
	}
	for _, msg := range loaded {
		appendUnique(msg)
	}
	return merged
}
