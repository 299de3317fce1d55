package stores

import (
	"time"

	"gorm.io/gorm"
)

// ConversationRecord is the locally cached snapshot of one conversation.
// The cache is a read-through convenience for offline listings; the
// backend stays the source of truth.
type ConversationRecord struct {
	gorm.Model
	ConversationID  string `gorm:"uniqueIndex;not null"`
	Title           string `gorm:"type:text"`
	RemoteUpdatedAt time.Time
	Messages        []MessageRecord `gorm:"foreignKey:ConversationID;references:ConversationID"`
}

// MessageRecord is one cached transcript entry. Placeholders are never
// cached; only settled messages reach the store.
type MessageRecord struct {
	gorm.Model
	ConversationID string `gorm:"index;not null"`
	Sequence       int    `gorm:"not null"`
	Role           string `gorm:"not null"` // "user", "assistant"
	Text           string `gorm:"type:text"`
	Mode           string
}

// ConversationCache abstracts the local persistence backend.
type ConversationCache interface {
	// SaveConversation upserts one snapshot, replacing its messages.
	SaveConversation(rec ConversationRecord) error
	DeleteConversation(conversationID string) error
	// ListConversations returns all snapshots, most recently updated
	// first, with messages in sequence order.
	ListConversations() ([]ConversationRecord, error)

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// CacheConfig holds configuration for cache backends.
type CacheConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewCacheConfig creates a new cache configuration.
func NewCacheConfig(cacheType, connection string) *CacheConfig {
	return &CacheConfig{
		Type:       cacheType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the cache configuration.
func (c *CacheConfig) WithOption(key, value string) *CacheConfig {
	c.Options[key] = value
	return c
}
