package synapse

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/synapse-ai/synapse-client/stores"
)

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Config holds configuration for a Synapse client session
type Config struct {
	// APIBaseURL is the HTTP backend, e.g. "http://localhost:8000".
	APIBaseURL string
	// StreamBaseURL is the websocket base. Defaults to APIBaseURL with
	// the scheme rewritten at dial time.
	StreamBaseURL string
	// RefreshSchedule is a cron expression for periodic conversation
	// refreshes; empty disables the scheduler.
	RefreshSchedule string

	Cache  stores.ConversationCache
	Logger *log.Logger
}

// NewConfig creates a configuration with environment-based defaults
func NewConfig() *Config {
	base := os.Getenv("SYNAPSE_API_BASE_URL")
	if base == "" {
		base = "http://localhost:8000"
	}
	return &Config{
		APIBaseURL:      base,
		StreamBaseURL:   os.Getenv("SYNAPSE_STREAM_BASE_URL"),
		RefreshSchedule: os.Getenv("SYNAPSE_REFRESH_SCHEDULE"),
	}
}

// WithAPIBaseURL sets the HTTP backend base URL
func (c *Config) WithAPIBaseURL(baseURL string) *Config {
	c.APIBaseURL = baseURL
	return c
}

// WithStreamBaseURL sets the websocket base URL
func (c *Config) WithStreamBaseURL(baseURL string) *Config {
	c.StreamBaseURL = baseURL
	return c
}

// WithRefreshSchedule sets the cron expression for periodic refreshes
func (c *Config) WithRefreshSchedule(expr string) *Config {
	c.RefreshSchedule = expr
	return c
}

// WithLogger sets the logger shared by the client components
func (c *Config) WithLogger(logger *log.Logger) *Config {
	c.Logger = logger
	return c
}

// WithCache sets the local conversation cache
func (c *Config) WithCache(cache stores.ConversationCache) *Config {
	c.Cache = cache
	return c
}

// WithSQLiteCache sets a SQLite cache with the specified database path
func (c *Config) WithSQLiteCache(dbPath string) *Config {
	cache, err := stores.NewSQLiteCacheSimple(dbPath)
	if err != nil {
		panic("Failed to create SQLite cache: " + err.Error())
	}
	c.Cache = cache
	return c
}

// WithPostgresCache sets a PostgreSQL cache with the specified connection parameters
func (c *Config) WithPostgresCache(host, user, password, dbname string, port int) *Config {
	cache, err := stores.NewPostgresCacheDefault(host, user, password, dbname, port)
	if err != nil {
		panic("Failed to create PostgreSQL cache: " + err.Error())
	}
	c.Cache = cache
	return c
}

func (c *Config) streamBase() string {
	if c.StreamBaseURL != "" {
		return c.StreamBaseURL
	}
	return c.APIBaseURL
}
