package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/handlers"
	"chunkabank-bot/internal/models"
)

// NewTestLogger creates a logger that discards output
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// NewTestUser creates a directory entry whose direct channel is "dm-<id>"
func NewTestUser(id, name, displayName string) models.UserInfo {
	return models.UserInfo{
		UserID:          id,
		Name:            name,
		Nickname:        name,
		DisplayName:     displayName,
		DirectChannelID: "dm-" + id,
	}
}

// SentMessage is a message recorded by RecordingSender
type SentMessage struct {
	ChannelID string
	Text      string
}

// RecordingSender records every sent message
type RecordingSender struct {
	mu       sync.Mutex
	Messages []SentMessage
	Err      error
	// ChannelErrs fails sends to single channels
	ChannelErrs map[string]error
}

func (s *RecordingSender) Send(_ context.Context, channelID string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if err := s.ChannelErrs[channelID]; err != nil {
		return err
	}
	s.Messages = append(s.Messages, SentMessage{ChannelID: channelID, Text: text})
	return nil
}

// Last returns the last message sent to a channel
func (s *RecordingSender) Last(channelID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].ChannelID == channelID {
			return s.Messages[i].Text
		}
	}
	return ""
}

// To returns every message sent to a channel
func (s *RecordingSender) To(channelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var texts []string
	for _, m := range s.Messages {
		if m.ChannelID == channelID {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

// Reset forgets recorded messages
func (s *RecordingSender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = nil
}

// StaticDirectory is an in-memory handlers.Directory
type StaticDirectory struct {
	users map[string]models.UserInfo
}

// NewStaticDirectory creates a directory from a fixed user list
func NewStaticDirectory(users ...models.UserInfo) *StaticDirectory {
	d := &StaticDirectory{users: make(map[string]models.UserInfo, len(users))}
	for _, u := range users {
		d.users[u.UserID] = u
	}
	return d
}

func (d *StaticDirectory) UserInfo(userID string) (models.UserInfo, bool) {
	u, ok := d.users[userID]
	return u, ok
}

func (d *StaticDirectory) Search(query string) []models.UserInfo {
	var exact, prefix []models.UserInfo
	for _, u := range d.Users() {
		switch {
		case u.MatchesExactly(query):
			exact = append(exact, u)
		case u.MatchesPrefix(query):
			prefix = append(prefix, u)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return prefix
}

func (d *StaticDirectory) Users() []models.UserInfo {
	users := make([]models.UserInfo, 0, len(d.users))
	for _, u := range d.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i].PrintableName()) < strings.ToLower(users[j].PrintableName())
	})
	return users
}

// QueuedRequest is a request recorded by RecordingQueue
type QueuedRequest struct {
	UserID  string
	Handler handlers.RequestHandler
}

// RecordingQueue records queued requests without delivering them
type RecordingQueue struct {
	Requests []QueuedRequest
	Err      error
}

func (q *RecordingQueue) QueueInteraction(_ context.Context, userID string, handler handlers.RequestHandler) error {
	if q.Err != nil {
		return q.Err
	}
	q.Requests = append(q.Requests, QueuedRequest{UserID: userID, Handler: handler})
	return nil
}

// Pop removes and returns the oldest queued request
func (q *RecordingQueue) Pop() (QueuedRequest, error) {
	if len(q.Requests) == 0 {
		return QueuedRequest{}, fmt.Errorf("no queued requests")
	}
	r := q.Requests[0]
	q.Requests = q.Requests[1:]
	return r, nil
}

// FakePlatform is an in-memory chat.Platform
type FakePlatform struct {
	RecordingSender
	MemberList   []chat.Member
	GroupList    []chat.Group
	Channels     map[string]string
	Created      []string
	Limit        int
	Closed       bool
	MembersErr   error
	DirectPrefix string
}

// NewFakePlatform creates a platform with a single group
func NewFakePlatform(members ...chat.Member) *FakePlatform {
	return &FakePlatform{
		MemberList:   members,
		GroupList:    []chat.Group{{ID: "group-1", Name: "Chunka"}},
		Channels:     map[string]string{},
		Limit:        2000,
		DirectPrefix: "dm-",
	}
}

func (p *FakePlatform) Members(context.Context) ([]chat.Member, error) {
	if p.MembersErr != nil {
		return nil, p.MembersErr
	}
	return p.MemberList, nil
}

func (p *FakePlatform) DirectChannel(_ context.Context, userID string) (string, error) {
	return p.DirectPrefix + userID, nil
}

func (p *FakePlatform) Groups(context.Context) ([]chat.Group, error) {
	return p.GroupList, nil
}

func (p *FakePlatform) FindChannel(_ context.Context, groupID string, name string) (string, bool, error) {
	id, ok := p.Channels[groupID+"/"+name]
	return id, ok, nil
}

func (p *FakePlatform) CreateRestrictedChannel(_ context.Context, groupID string, name string) (string, error) {
	id := "channel-" + name
	p.Channels[groupID+"/"+name] = id
	p.Created = append(p.Created, name)
	return id, nil
}

func (p *FakePlatform) MessageLimit() int {
	return p.Limit
}

func (p *FakePlatform) Close() error {
	p.Closed = true
	return nil
}
