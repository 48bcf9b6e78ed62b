// Package repository is the read path screen controllers use for backend
// lists. Concurrent reads of the same list share one request, results are
// kept briefly in an LRU cache, and every mutation drops the list it
// touches.
package repository

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"finanquest/internal/api"
	"finanquest/internal/cache"
	"finanquest/internal/core"
	"finanquest/internal/events"
	applog "finanquest/internal/log"
)

// Backend is the part of the API client the repository reads and writes.
type Backend interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, in api.TransactionInput) error
	UpdateTransaction(ctx context.Context, id int64, in api.TransactionInput) error
	DeleteTransaction(ctx context.Context, id int64) error

	ListGoals(ctx context.Context) ([]core.Goal, error)
	CreateGoal(ctx context.Context, in api.GoalInput) error
	DepositGoal(ctx context.Context, id int64, amount core.Money) error
	DeleteGoal(ctx context.Context, id int64) error

	ListChallenges(ctx context.Context) ([]core.Challenge, error)
	ListAchievements(ctx context.Context) ([]core.Achievement, error)
}

const (
	keyTransactions = "transactions"
	keyGoals        = "goals"
	keyChallenges   = "challenges"
	keyAchievements = "achievements"
)

// Config sizes the caches.
type Config struct {
	TTL  time.Duration
	Size int
}

type Repository struct {
	backend Backend
	logger  *applog.Logger
	group   singleflight.Group
	gen     atomic.Uint64

	transactions *cache.LRUCache[[]core.Transaction]
	goals        *cache.LRUCache[[]core.Goal]
	challenges   *cache.LRUCache[[]core.Challenge]
	achievements *cache.LRUCache[[]core.Achievement]
}

var _ events.Sink = (*Repository)(nil)

// New builds a repository. Its caches are registered with mgr for periodic
// cleanup when mgr is non-nil.
func New(backend Backend, cfg Config, mgr *cache.Manager, logger *applog.Logger) *Repository {
	if logger == nil {
		logger = applog.Discard()
	}
	r := &Repository{
		backend:      backend,
		logger:       logger.WithComponent(applog.ComponentRepository),
		transactions: cache.NewLRUCache[[]core.Transaction](cfg.Size, cfg.TTL),
		goals:        cache.NewLRUCache[[]core.Goal](cfg.Size, cfg.TTL),
		challenges:   cache.NewLRUCache[[]core.Challenge](cfg.Size, cfg.TTL),
		achievements: cache.NewLRUCache[[]core.Achievement](cfg.Size, cfg.TTL),
	}
	if mgr != nil {
		mgr.Register(r.transactions)
		mgr.Register(r.goals)
		mgr.Register(r.challenges)
		mgr.Register(r.achievements)
	}
	return r
}

// fetch serves key from c or loads it once for all concurrent callers. A
// result is cached only if no invalidation happened while it was loading.
func fetch[T any](ctx context.Context, r *Repository, key string, c *cache.LRUCache[[]T], load func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := c.Get(key); ok {
		r.logger.DebugContext(ctx, "Cache hit", applog.FieldCacheKey, key)
		return slices.Clone(v), nil
	}

	gen := r.gen.Load()
	flightKey := fmt.Sprintf("%s@%d", key, gen)

	// The shared load must not die with whichever caller started it.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(flightKey, func() (any, error) {
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if r.gen.Load() == gen {
			c.Set(key, v)
		} else {
			r.logger.DebugContext(ctx, "Discarding fetch started before invalidation", applog.FieldCacheKey, key)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		r.logger.DebugContext(ctx, "Fetched list",
			applog.FieldCacheKey, key,
			"shared", res.Shared)
		return slices.Clone(res.Val.([]T)), nil
	}
}

func (r *Repository) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return fetch(ctx, r, keyTransactions, r.transactions, r.backend.ListTransactions)
}

func (r *Repository) Goals(ctx context.Context) ([]core.Goal, error) {
	return fetch(ctx, r, keyGoals, r.goals, r.backend.ListGoals)
}

func (r *Repository) Challenges(ctx context.Context) ([]core.Challenge, error) {
	return fetch(ctx, r, keyChallenges, r.challenges, r.backend.ListChallenges)
}

func (r *Repository) Achievements(ctx context.Context) ([]core.Achievement, error) {
	return fetch(ctx, r, keyAchievements, r.achievements, r.backend.ListAchievements)
}

// A failed mutation may still have been applied by the backend, so the
// list is dropped whatever the outcome.

func (r *Repository) CreateTransaction(ctx context.Context, in api.TransactionInput) error {
	defer r.invalidateTransactions()
	return r.backend.CreateTransaction(ctx, in)
}

func (r *Repository) UpdateTransaction(ctx context.Context, id int64, in api.TransactionInput) error {
	defer r.invalidateTransactions()
	return r.backend.UpdateTransaction(ctx, id, in)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	defer r.invalidateTransactions()
	return r.backend.DeleteTransaction(ctx, id)
}

func (r *Repository) CreateGoal(ctx context.Context, in api.GoalInput) error {
	defer r.invalidateGoals()
	return r.backend.CreateGoal(ctx, in)
}

func (r *Repository) DepositGoal(ctx context.Context, id int64, amount core.Money) error {
	defer r.invalidateGoals()
	return r.backend.DepositGoal(ctx, id, amount)
}

func (r *Repository) DeleteGoal(ctx context.Context, id int64) error {
	defer r.invalidateGoals()
	return r.backend.DeleteGoal(ctx, id)
}

func (r *Repository) invalidateTransactions() {
	r.gen.Add(1)
	r.transactions.Delete(keyTransactions)
}

func (r *Repository) invalidateGoals() {
	r.gen.Add(1)
	r.goals.Delete(keyGoals)
}

// Reset forgets every cached list. Fetches already in flight will not
// repopulate the cache.
func (r *Repository) Reset() {
	r.gen.Add(1)
	r.transactions.Clear()
	r.goals.Clear()
	r.challenges.Clear()
	r.achievements.Clear()
}

// Publish implements events.Sink: a different user may follow, so the
// cache is reset on every sign-in and sign-out.
func (r *Repository) Publish(ctx context.Context, e events.Event) error {
	switch e.Kind {
	case events.SignedIn, events.SignedOut:
		r.logger.DebugContext(ctx, "Resetting cache", applog.FieldEvent, string(e.Kind))
		r.Reset()
	}
	return nil
}
