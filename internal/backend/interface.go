package backend

import (
	"context"

	"finanquest/internal/securestore"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the store instance and optional cleanup function
type StoreResult struct {
	Store   securestore.Store
	Type    BackendType
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *StoreResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates secure stores based on configuration
type Factory interface {
	// CreateStore creates a store instance based on the provided config
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
}

// Config holds configuration for store creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite and plain specific
	Path string

	// SQLite specific
	KeyFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	// SQLiteBackend seals every value with a key kept in a private file.
	SQLiteBackend BackendType = "sqlite"
	// PlainBackend is the explicit unencrypted fallback.
	PlainBackend BackendType = "plain"
	// MemoryBackend keeps values for the life of the process only.
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PlainBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Persistent reports whether values survive a restart.
func (bt BackendType) Persistent() bool {
	return bt == SQLiteBackend || bt == PlainBackend
}
