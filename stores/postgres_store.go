package stores

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresCache implements ConversationCache for PostgreSQL databases.
type PostgresCache struct {
	db  *gorm.DB
	dsn string
}

// NewPostgresCache creates a new PostgreSQL cache.
func NewPostgresCache(config *CacheConfig) (*PostgresCache, error) {
	if config.Type != "postgres" {
		return nil, fmt.Errorf("invalid cache type for PostgreSQL cache: %s", config.Type)
	}

	cache := &PostgresCache{
		dsn: config.Connection,
	}

	if err := cache.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return cache, nil
}

// NewPostgresCacheSimple creates a new PostgreSQL cache with just a DSN.
func NewPostgresCacheSimple(dsn string) (*PostgresCache, error) {
	config := NewCacheConfig("postgres", dsn)
	return NewPostgresCache(config)
}

// Connect establishes a connection to the PostgreSQL database.
func (s *PostgresCache) Connect() error {
	db, err := gorm.Open(postgres.Open(s.dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	s.db = db

	// Auto-migrate the schema
	if err := s.db.AutoMigrate(&ConversationRecord{}, &MessageRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *PostgresCache) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive.
func (s *PostgresCache) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// SaveConversation upserts one conversation snapshot and replaces its
// cached messages.
func (s *PostgresCache) SaveConversation(rec ConversationRecord) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return saveConversation(s.db, rec)
}

// DeleteConversation removes a snapshot and its messages.
func (s *PostgresCache) DeleteConversation(conversationID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return deleteConversation(s.db, conversationID)
}

// ListConversations returns all snapshots, newest first.
func (s *PostgresCache) ListConversations() ([]ConversationRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return listConversations(s.db)
}
