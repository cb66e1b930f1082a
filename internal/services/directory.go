package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/models"
)

// MemberSource enumerates the members of the served chat group
type MemberSource interface {
	Members(ctx context.Context) ([]chat.Member, error)
	DirectChannel(ctx context.Context, userID string) (string, error)
}

// Directory keeps the users of the chat group.
// Entries live until a successful refresh omits them; a failing member
// listing keeps the last known users.
type Directory struct {
	source     MemberSource
	cache      *cache.Cache
	staleAfter time.Duration

	mu        sync.Mutex
	refreshed time.Time

	logger *logrus.Logger
}

// NewDirectory creates a directory that reports itself stale after staleAfter without a successful refresh
func NewDirectory(source MemberSource, staleAfter time.Duration, logger *logrus.Logger) *Directory {
	return &Directory{
		source:     source,
		cache:      cache.New(cache.NoExpiration, 0),
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Register adds the directory refresh to the slow tick
func (d *Directory) Register(registrar TaskRegistrar) {
	registrar.Register(CadenceSlow, "refresh-directory", d.Refresh)
}

// Refresh reloads the member list, keeping resolved direct channels
func (d *Directory) Refresh(ctx context.Context) error {
	members, err := d.source.Members(ctx)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	seen := make(map[string]bool, len(members))
	for _, member := range members {
		if member.IsBot {
			continue
		}
		seen[member.ID] = true

		existing, found := d.UserInfo(member.ID)
		if !found {
			d.logger.Infof("Adding user %s (%s) to the directory", member.ID, member.Name)
		}

		d.cache.Set(member.ID, models.UserInfo{
			UserID:          member.ID,
			Name:            member.Name,
			Nickname:        member.Nickname,
			DisplayName:     member.DisplayName,
			DirectChannelID: existing.DirectChannelID,
		}, cache.NoExpiration)
	}

	for id := range d.cache.Items() {
		if !seen[id] {
			d.logger.Infof("Removing user %s from the directory", id)
			d.cache.Delete(id)
		}
	}

	d.mu.Lock()
	d.refreshed = time.Now()
	d.mu.Unlock()
	return nil
}

// Stale reports whether the last successful refresh is older than the stale window
func (d *Directory) Stale(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refreshed.IsZero() || now.Sub(d.refreshed) > d.staleAfter
}

// UserInfo returns a user by id
func (d *Directory) UserInfo(userID string) (models.UserInfo, bool) {
	data, found := d.cache.Get(userID)
	if !found {
		return models.UserInfo{}, false
	}
	info, ok := data.(models.UserInfo)
	return info, ok
}

// Search finds users by name prefix; exact name matches take precedence
func (d *Directory) Search(query string) []models.UserInfo {
	var exact, prefix []models.UserInfo
	for _, user := range d.Users() {
		switch {
		case user.MatchesExactly(query):
			exact = append(exact, user)
		case user.MatchesPrefix(query):
			prefix = append(prefix, user)
		}
	}

	if len(exact) > 0 {
		return exact
	}
	return prefix
}

// Users returns every user sorted by printable name
func (d *Directory) Users() []models.UserInfo {
	items := d.cache.Items()
	users := make([]models.UserInfo, 0, len(items))
	for _, item := range items {
		if info, ok := item.Object.(models.UserInfo); ok {
			users = append(users, info)
		}
	}

	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i].PrintableName()) < strings.ToLower(users[j].PrintableName())
	})
	return users
}

// Count returns the number of known users
func (d *Directory) Count() int {
	return d.cache.ItemCount()
}

// DirectChannel resolves the direct message channel of a user, caching it on the entry
func (d *Directory) DirectChannel(ctx context.Context, userID string) (string, error) {
	info, found := d.UserInfo(userID)
	if found && info.DirectChannelID != "" {
		return info.DirectChannelID, nil
	}

	channelID, err := d.source.DirectChannel(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to open direct channel with user %s: %w", userID, err)
	}

	if found {
		info.DirectChannelID = channelID
		d.cache.Set(userID, info, cache.NoExpiration)
	}
	return channelID, nil
}
