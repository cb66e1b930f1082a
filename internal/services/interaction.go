package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/constants"
	"chunkabank-bot/internal/handlers"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
)

const failureNotice = "Sorry, something went wrong while processing your request"

// UserDirectory resolves users and their direct channels
type UserDirectory interface {
	handlers.Directory
	DirectChannel(ctx context.Context, userID string) (string, error)
}

// MappingProvider returns the ledger mapping and admin flag of a chat user
type MappingProvider interface {
	Mapping(userID string) models.UserMapping
}

// InteractionOptions tune the interaction manager
type InteractionOptions struct {
	Timeout      time.Duration
	MessageLimit int
	Location     *time.Location
	Debug        bool
	Now          func() time.Time
}

// InteractionManager routes messages to dialogs and delivers queued requests
type InteractionManager struct {
	factory     *handlers.HandlerFactory
	states      *UserStateService
	directory   UserDirectory
	permissions MappingProvider
	sender      chat.Sender
	deps        *handlers.Dependencies
	debug       bool
	logger      *logrus.Logger
}

// NewInteractionManager creates a new interaction manager
func NewInteractionManager(
	factory *handlers.HandlerFactory,
	states *UserStateService,
	directory UserDirectory,
	permissions MappingProvider,
	ledger handlers.Ledger,
	sender chat.Sender,
	opts InteractionOptions,
	logger *logrus.Logger,
) *InteractionManager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultInteractionTimeout
	}
	if opts.MessageLimit <= 0 {
		opts.MessageLimit = constants.DefaultMessageLimit
	}

	m := &InteractionManager{
		factory:     factory,
		states:      states,
		directory:   directory,
		permissions: permissions,
		sender:      sender,
		debug:       opts.Debug,
		logger:      logger,
	}
	m.deps = &handlers.Dependencies{
		Ledger:       ledger,
		Directory:    directory,
		Sender:       sender,
		Queue:        m,
		Logger:       logger,
		Now:          opts.Now,
		Location:     opts.Location,
		Timeout:      opts.Timeout,
		MessageLimit: opts.MessageLimit,
	}

	return m
}

// Dependencies returns the dependencies handed to handlers
func (m *InteractionManager) Dependencies() *handlers.Dependencies {
	return m.deps
}

// Register adds queue delivery and expiry checks to the fast tick
func (m *InteractionManager) Register(registrar TaskRegistrar) {
	registrar.Register(CadenceFast, "drain-queues", m.DrainQueues)
	registrar.Register(CadenceFast, "expire-interactions", m.ExpireInteractions)
}

// HandleMessage routes a user message to the active dialog, a new command or the help reply
func (m *InteractionManager) HandleMessage(ctx context.Context, msg chat.Message) error {
	log := m.logger.WithFields(logrus.Fields{"user": msg.AuthorID, "channel": msg.ChannelID})

	if active := m.states.GetInteraction(msg.AuthorID, msg.ChannelID); active != nil {
		log.Debugf("Forwarding message to active %T", active)
		done := m.run(ctx, msg.ChannelID, func(ctx context.Context) (bool, error) {
			return active.HandleMessage(ctx, msg)
		})
		if done {
			return m.states.UnsetInteraction(msg.AuthorID, msg.ChannelID)
		}
		return nil
	}

	mapping := m.permissions.Mapping(msg.AuthorID)
	normalized := helpers.NormalizeMessage(msg.Content)

	cmd, ok := m.factory.Match(normalized, mapping)
	if !ok {
		log.Debug("No command matched")
		return m.send(ctx, msg.ChannelID, m.factory.Reply(normalized, mapping))
	}

	handler := cmd.New(handlers.Session{
		UserID:       msg.AuthorID,
		ChannelID:    msg.ChannelID,
		Mapping:      mapping,
		Dependencies: m.deps,
	})
	if err := m.states.SetInteraction(msg.AuthorID, msg.ChannelID, handler); err != nil {
		return err
	}

	log.Infof("Starting command %q", cmd.Prefix())
	done := m.run(ctx, msg.ChannelID, func(ctx context.Context) (bool, error) {
		return handler.HandleMessage(ctx, msg)
	})
	if done {
		return m.states.UnsetInteraction(msg.AuthorID, msg.ChannelID)
	}
	return nil
}

// QueueInteraction queues a request on the direct channel of a user
func (m *InteractionManager) QueueInteraction(ctx context.Context, userID string, request handlers.RequestHandler) error {
	channelID, err := m.directory.DirectChannel(ctx, userID)
	if err != nil {
		return err
	}

	m.states.QueueRequest(userID, channelID, request)
	return nil
}

// DrainQueues starts the oldest queued request of every free slot
func (m *InteractionManager) DrainQueues(ctx context.Context) error {
	for _, slot := range m.states.Slots() {
		request, ok := m.states.TryDequeue(slot.UserID, slot.ChannelID)
		if !ok {
			continue
		}

		if err := m.states.SetInteraction(slot.UserID, slot.ChannelID, request); err != nil {
			return err
		}

		channelID := slot.ChannelID
		done := m.run(ctx, channelID, func(ctx context.Context) (bool, error) {
			return request.InitiateInteraction(ctx, channelID)
		})
		if done {
			if err := m.states.UnsetInteraction(slot.UserID, slot.ChannelID); err != nil {
				return err
			}
		}
	}

	return nil
}

// ExpireInteractions frees the slots of dialogs that timed out
func (m *InteractionManager) ExpireInteractions(ctx context.Context) error {
	now := m.deps.Now()
	for _, slot := range m.states.Slots() {
		active := slot.Active
		if active == nil {
			continue
		}

		expired := m.run(ctx, slot.ChannelID, func(ctx context.Context) (bool, error) {
			return active.CheckExpired(ctx, now)
		})
		if expired {
			m.logger.Infof("Interaction %T of user %s in channel %s expired", active, slot.UserID, slot.ChannelID)
			if err := m.states.UnsetInteraction(slot.UserID, slot.ChannelID); err != nil {
				return err
			}
		}
	}

	return nil
}

// run executes a handler step. Errors and panics are reported to the channel and complete the dialog.
func (m *InteractionManager) run(ctx context.Context, channelID string, step func(context.Context) (bool, error)) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("Panic while handling interaction in channel %s: %v", channelID, r)
			m.notifyFailure(ctx, channelID, fmt.Errorf("panic: %v", r))
			done = true
		}
	}()

	completed, err := step(ctx)
	if err != nil {
		m.logger.Errorf("Interaction in channel %s failed: %v", channelID, err)
		m.notifyFailure(ctx, channelID, err)
		return true
	}
	return completed
}

func (m *InteractionManager) notifyFailure(ctx context.Context, channelID string, cause error) {
	text := failureNotice
	if m.debug {
		text += "\n" + cause.Error()
	}
	if err := m.send(ctx, channelID, text); err != nil {
		m.logger.Warnf("Failed to report failure to channel %s: %v", channelID, err)
	}
}

func (m *InteractionManager) send(ctx context.Context, channelID string, text string) error {
	for _, part := range helpers.SliceMessage(text, constants.ContinuationMarker, m.deps.MessageLimit) {
		if err := m.sender.Send(ctx, channelID, part); err != nil {
			return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
		}
	}
	return nil
}
