package mongo

import "time"

// Config holds MongoDB connection settings
type Config struct {
	// URI is the MongoDB connection string, e.g. mongodb://localhost:27017
	URI string

	// Database name holding the accounts collection
	Database string

	// ConnectTimeout bounds the initial ping and index creation
	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible defaults for MongoDB configuration
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "sagespace",
		ConnectTimeout: 10 * time.Second,
	}
}
