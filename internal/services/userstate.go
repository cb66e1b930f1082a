package services

import (
	"fmt"
	"sort"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/handlers"
)

// UserChannelState is the dialog slot of a user in a channel
type UserChannelState struct {
	UserID    string
	ChannelID string
	Active    handlers.InteractionHandler
	Queue     []handlers.RequestHandler
}

// UserStateService owns every (user, channel) slot.
// It is used from the event loop goroutine only.
type UserStateService struct {
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewUserStateService creates a new user state service
func NewUserStateService(logger *logrus.Logger) *UserStateService {
	return &UserStateService{
		// slots live until the bot stops; handler timeouts are checked explicitly
		cache:  cache.New(cache.NoExpiration, 0),
		logger: logger,
	}
}

func slotKey(userID, channelID string) string {
	return fmt.Sprintf("user_state_%s_%s", userID, channelID)
}

func (s *UserStateService) slot(userID, channelID string) *UserChannelState {
	key := slotKey(userID, channelID)
	if data, found := s.cache.Get(key); found {
		if state, ok := data.(*UserChannelState); ok {
			return state
		}
	}

	state := &UserChannelState{UserID: userID, ChannelID: channelID}
	s.cache.Set(key, state, cache.NoExpiration)
	return state
}

// GetInteraction returns the active handler of a slot, if any
func (s *UserStateService) GetInteraction(userID, channelID string) handlers.InteractionHandler {
	data, found := s.cache.Get(slotKey(userID, channelID))
	if !found {
		return nil
	}
	state, ok := data.(*UserChannelState)
	if !ok {
		return nil
	}
	return state.Active
}

// SetInteraction installs the active handler of a slot
func (s *UserStateService) SetInteraction(userID, channelID string, handler handlers.InteractionHandler) error {
	state := s.slot(userID, channelID)
	if state.Active != nil {
		return &apperrors.StateError{UserID: userID, ChannelID: channelID, Message: "an interaction is already active"}
	}

	state.Active = handler
	s.logger.Debugf("Set interaction %T for user %s in channel %s", handler, userID, channelID)
	return nil
}

// UnsetInteraction frees a slot
func (s *UserStateService) UnsetInteraction(userID, channelID string) error {
	state := s.slot(userID, channelID)
	if state.Active == nil {
		return &apperrors.StateError{UserID: userID, ChannelID: channelID, Message: "no active interaction"}
	}

	state.Active = nil
	s.logger.Debugf("Cleared interaction for user %s in channel %s", userID, channelID)
	return nil
}

// QueueRequest appends a request to the slot queue
func (s *UserStateService) QueueRequest(userID, channelID string, request handlers.RequestHandler) {
	state := s.slot(userID, channelID)
	state.Queue = append(state.Queue, request)
	s.logger.Debugf("Queued request %T for user %s in channel %s (%d pending)", request, userID, channelID, len(state.Queue))
}

// TryDequeue pops the oldest request of a free slot
func (s *UserStateService) TryDequeue(userID, channelID string) (handlers.RequestHandler, bool) {
	state := s.slot(userID, channelID)
	if state.Active != nil || len(state.Queue) == 0 {
		return nil, false
	}

	request := state.Queue[0]
	state.Queue[0] = nil
	state.Queue = state.Queue[1:]
	return request, true
}

// Slots returns every known slot ordered by user and channel
func (s *UserStateService) Slots() []*UserChannelState {
	items := s.cache.Items()
	slots := make([]*UserChannelState, 0, len(items))
	for _, item := range items {
		if state, ok := item.Object.(*UserChannelState); ok {
			slots = append(slots, state)
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].UserID != slots[j].UserID {
			return slots[i].UserID < slots[j].UserID
		}
		return slots[i].ChannelID < slots[j].ChannelID
	})
	return slots
}

// Stats counts active dialogs and pending requests
func (s *UserStateService) Stats() (active int, pending int) {
	for _, state := range s.Slots() {
		if state.Active != nil {
			active++
		}
		pending += len(state.Queue)
	}
	return active, pending
}
