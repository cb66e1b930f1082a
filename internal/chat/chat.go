package chat

import (
	"context"
	"errors"
)

// ErrUnsupported is returned for capabilities the platform does not offer
var ErrUnsupported = errors.New("operation not supported by the chat platform")

// Message is an inbound chat message event
type Message struct {
	AuthorID  string
	ChannelID string
	Content   string
	IsDirect  bool
}

// Member is an entry of the chat group directory
type Member struct {
	ID          string
	Name        string
	Nickname    string
	DisplayName string
	IsBot       bool
}

// Group is a chat group (server, supergroup) the bot is connected to
type Group struct {
	ID   string
	Name string
}

// Sender delivers plain text to a channel
type Sender interface {
	Send(ctx context.Context, channelID string, text string) error
}

// Platform is the capability set the bot consumes from the chat platform
type Platform interface {
	Sender

	// Members lists the members of the served group
	Members(ctx context.Context) ([]Member, error)
	// DirectChannel returns the direct-message channel with a user, creating it if needed
	DirectChannel(ctx context.Context, userID string) (string, error)
	// Groups lists the groups the bot is connected to
	Groups(ctx context.Context) ([]Group, error)
	// FindChannel looks up a channel of a group by name
	FindChannel(ctx context.Context, groupID string, name string) (string, bool, error)
	// CreateRestrictedChannel creates a channel only the bot can read and write
	CreateRestrictedChannel(ctx context.Context, groupID string, name string) (string, error)
	// MessageLimit is the maximum size of a single outbound message
	MessageLimit() int
	// Close disconnects from the platform
	Close() error
}
