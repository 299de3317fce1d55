package stores

import (
	"fmt"
)

// NewCache creates a new conversation cache based on the configuration
func NewCache(config *CacheConfig) (ConversationCache, error) {
	switch config.Type {
	case "sqlite":
		return NewSQLiteCache(config)
	case "postgres":
		return NewPostgresCache(config)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}

// NewSQLiteCacheDefault creates a SQLite cache with default settings
func NewSQLiteCacheDefault() (ConversationCache, error) {
	return NewSQLiteCacheSimple("conversation_cache.sqlite")
}

// NewPostgresCacheDefault creates a PostgreSQL cache with environment-based configuration
// You would typically get these from environment variables
func NewPostgresCacheDefault(host, user, password, dbname string, port int) (ConversationCache, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)
	return NewPostgresCacheSimple(dsn)
}
