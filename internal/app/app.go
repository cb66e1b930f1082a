package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/config"
	"chunkabank-bot/internal/constants"
	"chunkabank-bot/internal/handlers"
	"chunkabank-bot/internal/services"
)

// Platform is a chat platform that delivers inbound messages
type Platform interface {
	chat.Platform
	Messages() <-chan chat.Message
	Start(ctx context.Context) error
}

// Status is a snapshot of the bot state published by the event loop
type Status struct {
	Stopping           bool      `json:"stopping"`
	StartedAt          time.Time `json:"started_at"`
	LastFastTick       time.Time `json:"last_fast_tick"`
	LastSlowTick       time.Time `json:"last_slow_tick"`
	DirectoryUsers     int       `json:"directory_users"`
	DirectoryStale     bool      `json:"directory_stale"`
	TrackedUsers       int       `json:"tracked_users"`
	ActiveInteractions int       `json:"active_interactions"`
	PendingRequests    int       `json:"pending_requests"`
	PendingPings       int       `json:"pending_pings"`
	LockChannel        string    `json:"lock_channel"`
}

// App runs the bot event loop. Every service is driven from the loop goroutine.
type App struct {
	cfg          *config.Config
	platform     Platform
	scheduler    *services.Scheduler
	states       *services.UserStateService
	directory    *services.Directory
	interactions *services.InteractionManager
	updates      *services.UpdatesManager
	lock         *services.LockChannelManager
	now          func() time.Time

	stopping bool
	fatalErr error

	mu     sync.RWMutex
	status Status

	logger *logrus.Logger
}

// New wires the bot services
func New(
	cfg *config.Config,
	platform Platform,
	ledger handlers.Ledger,
	permissions services.MappingProvider,
	store services.BookmarkStore,
	logger *logrus.Logger,
) (*App, error) {
	factory, err := handlers.NewHandlerFactory(handlers.DefaultCommands()...)
	if err != nil {
		return nil, err
	}

	now := time.Now
	states := services.NewUserStateService(logger)
	directory := services.NewDirectory(platform, cfg.Bot.SlowTick*constants.DirectoryStaleTicks, logger)
	interactions := services.NewInteractionManager(factory, states, directory, permissions, ledger, platform, services.InteractionOptions{
		Timeout:      cfg.Bot.InteractionTimeout,
		MessageLimit: platform.MessageLimit(),
		Location:     time.Local,
		Debug:        cfg.Bot.Debug,
		Now:          now,
	}, logger)
	updates := services.NewUpdatesManager(interactions.Dependencies(), store, logger)
	lock := services.NewLockChannelManager(platform, now, logger)

	scheduler := services.NewScheduler(logger)
	lock.Register(scheduler)
	directory.Register(scheduler)
	updates.Register(scheduler)
	interactions.Register(scheduler)

	return &App{
		cfg:          cfg,
		platform:     platform,
		scheduler:    scheduler,
		states:       states,
		directory:    directory,
		interactions: interactions,
		updates:      updates,
		lock:         lock,
		now:          now,
		logger:       logger,
	}, nil
}

// Status returns the last published snapshot; safe for concurrent use
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Run starts the platform and runs the event loop until shutdown.
// It returns the fatal error that stopped the bot, if any.
func (a *App) Run(ctx context.Context, signals <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := a.platform.Start(ctx); err != nil {
			a.logger.Errorf("Chat platform stopped: %v", err)
		}
	}()

	if err := a.start(ctx); err != nil {
		_ = a.platform.Close()
		return err
	}

	fast := time.NewTicker(a.cfg.Bot.FastTick)
	defer fast.Stop()
	slow := time.NewTicker(a.cfg.Bot.SlowTick)
	defer slow.Stop()

	a.mu.Lock()
	a.status.StartedAt = a.now()
	a.mu.Unlock()
	a.publish(time.Time{}, time.Time{})

	for {
		select {
		case <-fast.C:
			a.tick(ctx, services.CadenceFast)
			a.publish(a.now(), time.Time{})

		case <-slow.C:
			if a.stopping {
				a.logger.Info("Stopping after fatal error")
				return a.shutdown(ctx)
			}
			a.tick(ctx, services.CadenceSlow)
			a.publish(time.Time{}, a.now())

		case msg, ok := <-a.platform.Messages():
			if !ok {
				a.logger.Warn("Chat platform closed the message stream")
				return a.shutdown(ctx)
			}
			if a.handleMessage(ctx, msg) {
				return a.shutdown(ctx)
			}
			a.publish(time.Time{}, time.Time{})

		case sig := <-signals:
			if a.stopping {
				a.logger.Warnf("Received %s while stopping, exiting now", sig)
				_ = a.platform.Close()
				return a.fatalErr
			}
			a.logger.Infof("Received %s, shutting down", sig)
			return a.shutdown(ctx)

		case <-ctx.Done():
			return a.shutdown(context.Background())
		}
	}
}

// start loads the initial state and claims the group
func (a *App) start(ctx context.Context) error {
	if err := a.directory.Refresh(ctx); err != nil {
		a.logger.Warnf("Initial directory refresh failed: %v", err)
	}
	if err := a.updates.Restore(ctx); err != nil {
		a.logger.Warnf("Starting without saved bookmarks: %v", err)
	}

	err := a.lock.Start(ctx)
	if errors.Is(err, chat.ErrUnsupported) {
		a.logger.Warnf("Lock channel unavailable, running without the single instance check: %v", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to start lock channel: %w", err)
	}
	return nil
}

func (a *App) tick(ctx context.Context, cadence services.Cadence) {
	if err := a.scheduler.Tick(ctx, cadence); err != nil {
		a.logger.Errorf("Fatal error, stopping the bot: %v", err)
		a.stopping = true
		a.fatalErr = err
	}
}

// handleMessage dispatches one inbound message and reports whether the bot should shut down
func (a *App) handleMessage(ctx context.Context, msg chat.Message) bool {
	handled, err := a.lock.HandleMessage(ctx, msg)
	if err != nil {
		a.logger.Errorf("Failed to handle lock channel message: %v", err)
	}
	if handled {
		return a.stopping
	}

	if a.stopping {
		a.logger.Debugf("Ignoring message from user %s while stopping", msg.AuthorID)
		return false
	}
	if msg.AuthorID == "" {
		return false
	}

	if err := a.interactions.HandleMessage(ctx, msg); err != nil {
		a.logger.Errorf("Failed to handle message from user %s: %v", msg.AuthorID, err)
	}
	return false
}

// shutdown says farewell on the lock channel and disconnects
func (a *App) shutdown(ctx context.Context) error {
	a.stopping = true
	a.publish(time.Time{}, time.Time{})

	if err := a.lock.Farewell(ctx); err != nil {
		a.logger.Warnf("Failed to send farewell: %v", err)
	}
	if err := a.platform.Close(); err != nil {
		a.logger.Warnf("Failed to close chat platform: %v", err)
	}

	a.logger.Info("Bot stopped")
	return a.fatalErr
}

// publish stores a snapshot for the status endpoint
func (a *App) publish(fastTick, slowTick time.Time) {
	active, pending := a.states.Stats()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.status.Stopping = a.stopping
	a.status.DirectoryUsers = a.directory.Count()
	a.status.DirectoryStale = a.directory.Stale(a.now())
	a.status.TrackedUsers = a.updates.TrackedUsers()
	a.status.ActiveInteractions = active
	a.status.PendingRequests = pending
	a.status.PendingPings = a.lock.PendingRequests()
	a.status.LockChannel = a.lock.ChannelID()
	if !fastTick.IsZero() {
		a.status.LastFastTick = fastTick
	}
	if !slowTick.IsZero() {
		a.status.LastSlowTick = slowTick
	}
}
