package stores

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteCache implements ConversationCache for SQLite databases.
type SQLiteCache struct {
	db   *gorm.DB
	path string
}

// NewSQLiteCache creates a new SQLite cache.
func NewSQLiteCache(config *CacheConfig) (*SQLiteCache, error) {
	if config.Type != "sqlite" {
		return nil, fmt.Errorf("invalid cache type for SQLite cache: %s", config.Type)
	}

	cache := &SQLiteCache{
		path: config.Connection,
	}

	if err := cache.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	return cache, nil
}

// NewSQLiteCacheSimple creates a new SQLite cache with just a file path.
func NewSQLiteCacheSimple(dbPath string) (*SQLiteCache, error) {
	config := NewCacheConfig("sqlite", dbPath)
	return NewSQLiteCache(config)
}

// Connect establishes a connection to the SQLite database.
func (s *SQLiteCache) Connect() error {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	s.db = db

	// Auto-migrate the schema
	if err := s.db.AutoMigrate(&ConversationRecord{}, &MessageRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteCache) Close() error {
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
func (s *SQLiteCache) Ping() error {
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
// cached messages in a single transaction.
func (s *SQLiteCache) SaveConversation(rec ConversationRecord) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return saveConversation(s.db, rec)
}

// DeleteConversation removes a snapshot and its messages.
func (s *SQLiteCache) DeleteConversation(conversationID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return deleteConversation(s.db, conversationID)
}

// ListConversations returns all snapshots, newest first.
func (s *SQLiteCache) ListConversations() ([]ConversationRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return listConversations(s.db)
}

// saveConversation is shared by the SQLite and Postgres caches.
func saveConversation(db *gorm.DB, rec ConversationRecord) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var existing ConversationRecord
		err := tx.Where("conversation_id = ?", rec.ConversationID).First(&existing).Error
		switch {
		case err == nil:
			existing.Title = rec.Title
			existing.RemoteUpdatedAt = rec.RemoteUpdatedAt
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to update conversation: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			header := ConversationRecord{
				ConversationID:  rec.ConversationID,
				Title:           rec.Title,
				RemoteUpdatedAt: rec.RemoteUpdatedAt,
			}
			if err := tx.Create(&header).Error; err != nil {
				return fmt.Errorf("failed to create conversation: %w", err)
			}
		default:
			return fmt.Errorf("failed to look up conversation: %w", err)
		}

		// Replace the cached transcript wholesale; snapshots are small
		// and this keeps replace-in-place edits consistent.
		if err := tx.Where("conversation_id = ?", rec.ConversationID).Delete(&MessageRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear cached messages: %w", err)
		}
		for i := range rec.Messages {
			m := MessageRecord{
				ConversationID: rec.ConversationID,
				Sequence:       rec.Messages[i].Sequence,
				Role:           rec.Messages[i].Role,
				Text:           rec.Messages[i].Text,
				Mode:           rec.Messages[i].Mode,
			}
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("failed to cache message: %w", err)
			}
		}
		return nil
	})
}

func deleteConversation(db *gorm.DB, conversationID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&MessageRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete cached messages: %w", err)
		}
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&ConversationRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		return nil
	})
}

func listConversations(db *gorm.DB) ([]ConversationRecord, error) {
	var recs []ConversationRecord
	err := db.
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Order("remote_updated_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cached conversations: %w", err)
	}
	return recs, nil
}
