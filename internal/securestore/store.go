// Package securestore persists small string values (the session token and
// the serialized user) in app-private storage that survives restarts.
package securestore

import (
	"context"
	"fmt"
)

// Keys used by the session layer.
const (
	KeyToken = "userToken"
	KeyUser  = "userData"
)

// Store is a persistent string key-value store. Every call blocks until the
// underlying write or read has completed.
type Store interface {
	// Get returns the value for key; found is false when it is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// StorageError reports a failure of the underlying persistence mechanism.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("secure store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Key: key, Err: err}
}
