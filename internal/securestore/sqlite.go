package securestore

import (
	"context"
	"errors"

	applog "finanquest/internal/log"
	"finanquest/internal/storage"
)

var (
	errUnsealedValue = errors.New("value is not sealed but the store requires sealing")
	errSealedValue   = errors.New("value is sealed but no key is available")
)

// SQLite is a Store backed by the kv table. With a Sealer every value is
// encrypted at rest; without one values are stored as-is, which is the
// explicit fallback for platforms that cannot keep a private key.
type SQLite struct {
	repo   *storage.KVRepository
	sealer *Sealer
	logger *applog.Logger
}

var _ Store = (*SQLite)(nil)

// NewSQLite wraps repo. A nil sealer selects the plain fallback and logs a
// warning saying so.
func NewSQLite(repo *storage.KVRepository, sealer *Sealer, logger *applog.Logger) *SQLite {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentStore)
	if sealer == nil {
		logger.Warn("Secure storage unavailable, values are stored unencrypted", "path", repo.Path())
	}
	return &SQLite{repo: repo, sealer: sealer, logger: logger}
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	e, found, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", false, storageErr("get", key, err)
	}
	if !found {
		return "", false, nil
	}
	if s.sealer == nil {
		if e.Sealed {
			return "", false, storageErr("get", key, errSealedValue)
		}
		return string(e.Value), true, nil
	}
	if !e.Sealed {
		return "", false, storageErr("get", key, errUnsealedValue)
	}
	plain, err := s.sealer.Open(key, e.Value)
	if err != nil {
		return "", false, storageErr("get", key, err)
	}
	return string(plain), true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	data := []byte(value)
	sealed := false
	if s.sealer != nil {
		var err error
		if data, err = s.sealer.Seal(key, data); err != nil {
			return storageErr("set", key, err)
		}
		sealed = true
	}
	return storageErr("set", key, s.repo.Put(ctx, key, data, sealed))
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	return storageErr("remove", key, s.repo.Delete(ctx, key))
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.repo.Close()
}
