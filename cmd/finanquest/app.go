package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"finanquest/internal/amqp"
	"finanquest/internal/api"
	"finanquest/internal/backend"
	"finanquest/internal/cache"
	"finanquest/internal/config"
	"finanquest/internal/core"
	"finanquest/internal/events"
	applog "finanquest/internal/log"
	"finanquest/internal/repository"
	"finanquest/internal/session"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	store   *backend.StoreResult
	client  *api.Client
	session *session.Manager
	repo    *repository.Repository
	caches  *cache.Manager
	broker  *amqp.Client

	stdin  *bufio.Reader
	term   io.Reader // original stdin, checked for a terminal
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func newApp(ctx context.Context, cfg *config.Config, logger *applog.Logger, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := backend.NewFactory(logger).CreateStore(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open secure store: %w", err)
	}
	if !store.Type.Persistent() {
		logger.WarnContext(ctx, "Session store is not persistent, sign-in will not survive a restart",
			"backend", store.Type.String())
	}

	anon, err := api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		stdin:  bufio.NewReader(stdin),
		term:   stdin,
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}

	sinks := []events.Sink{events.NewLogSink(logger)}
	if cfg.EventsEnabled() {
		broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.WarnContext(ctx, "Event broker unavailable, continuing without it",
				applog.FieldError, err)
		} else {
			a.broker = broker
			sinks = append(sinks, events.NewAMQPSink(broker))
		}
	}

	a.session = session.NewManager(store.Store, anon,
		session.WithLogger(logger),
		session.WithSinks(sinks...))
	a.client = anon.WithTokens(a.session)

	a.caches = cache.NewManager(logger)
	a.caches.StartCleanup(cfg.CacheTTL)
	a.repo = repository.New(a.client, repository.Config{TTL: cfg.CacheTTL, Size: cfg.CacheSize}, a.caches, logger)
	a.session.AddSink(a.repo)

	a.session.Restore(ctx)
	return a, nil
}

// Close releases the broker connection, the cache janitor and the store.
func (a *app) Close() error {
	a.caches.Stop()
	var errs []error
	if a.broker != nil {
		errs = append(errs, a.broker.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// user returns the signed-in user or session.ErrNotAuthenticated.
func (a *app) user() (core.User, error) {
	sess, ok := a.session.Session()
	if !ok {
		return core.User{}, session.ErrNotAuthenticated
	}
	return sess.User, nil
}
