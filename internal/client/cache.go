package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"windryft.app/pocket-windryft/internal/store"
)

const GeneralConversation = "general"

// ConversationID keys the cache: "general" or "project-<id>".
func ConversationID(projectID *int64) string {
	if projectID == nil {
		return GeneralConversation
	}
	return "project-" + strconv.FormatInt(*projectID, 10)
}

type MessageLister interface {
	Messages(ctx context.Context, userID int64, projectID *int64) ([]store.AssistantMessage, error)
}

// ConversationCache keeps a local copy of each conversation. The server's
// message list is the source of truth; Refresh replaces the cached copy.
type ConversationCache struct {
	mu            sync.Mutex
	path          string
	conversations map[string][]store.AssistantMessage
}

// DefaultCachePath returns <user config dir>/windryft/conversations.json.
func DefaultCachePath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "windryft", "conversations.json"), nil
}

// OpenConversationCache loads path. A missing file is an empty cache.
func OpenConversationCache(path string) (*ConversationCache, error) {
	c := &ConversationCache{path: path, conversations: map[string][]store.AssistantMessage{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation cache: %w", err)
	}
	if err := json.Unmarshal(data, &c.conversations); err != nil {
		return nil, fmt.Errorf("failed to parse conversation cache: %w", err)
	}
	if c.conversations == nil {
		c.conversations = map[string][]store.AssistantMessage{}
	}
	return c, nil
}

func (c *ConversationCache) Get(id string) []store.AssistantMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]store.AssistantMessage(nil), c.conversations[id]...)
}

// Append adds messages to a conversation, skipping ids already cached.
func (c *ConversationCache) Append(id string, msgs ...store.AssistantMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[int64]bool, len(c.conversations[id]))
	for _, m := range c.conversations[id] {
		seen[m.ID] = true
	}
	for _, m := range msgs {
		if !seen[m.ID] {
			c.conversations[id] = append(c.conversations[id], m)
			seen[m.ID] = true
		}
	}
}

// Refresh reloads one conversation from the server, persists the cache and
// returns the fresh list.
func (c *ConversationCache) Refresh(ctx context.Context, api MessageLister, userID int64, projectID *int64) ([]store.AssistantMessage, error) {
	msgs, err := api.Messages(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	id := ConversationID(projectID)
	c.mu.Lock()
	c.conversations[id] = msgs
	c.mu.Unlock()
	if err := c.Save(); err != nil {
		return nil, err
	}
	return c.Get(id), nil
}

func (c *ConversationCache) Clear(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conversations, id)
}

func (c *ConversationCache) Save() error {
	c.mu.Lock()
	data, err := json.MarshalIndent(c.conversations, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode conversation cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write conversation cache: %w", err)
	}
	return nil
}
