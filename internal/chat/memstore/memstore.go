// Package memstore is an in-memory implementation of the chat stores with
// the same ordering and uniqueness rules as the Postgres storage. It backs
// tests and local runs without a database.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"institution-chat/internal/model"
	"institution-chat/internal/storage"
)

type pair struct{ lo, hi int64 }

func pairOf(a, b int64) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

type Store struct {
	mu            sync.Mutex
	now           func() time.Time
	users         map[int64]model.User
	conversations map[int64]model.Conversation
	byPair        map[pair]int64
	replies       map[int64][]model.ConversationReply
	nextConv      int64
	nextReply     int64

	// FailAppend, when set, makes AppendReply fail without writing.
	FailAppend error
}

func New() *Store {
	return &Store{
		now:           time.Now,
		users:         make(map[int64]model.User),
		conversations: make(map[int64]model.Conversation),
		byPair:        make(map[pair]int64),
		replies:       make(map[int64][]model.ConversationReply),
	}
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// RemoveUser drops a user from the directory, leaving their
// conversations in place.
func (s *Store) RemoveUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *Store) FindOrCreateConversation(ctx context.Context, userA, userB int64) (model.Conversation, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Conversation{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byPair[pairOf(userA, userB)]; ok {
		return s.conversations[id], false, nil
	}
	s.nextConv++
	now := s.now().UTC().Truncate(time.Microsecond)
	c := model.Conversation{ID: s.nextConv, ParticipantA: userA, ParticipantB: userB, CreatedAt: now, UpdatedAt: now}
	s.conversations[c.ID] = c
	s.byPair[pairOf(userA, userB)] = c.ID
	return c, true, nil
}

func (s *Store) GetConversation(ctx context.Context, id int64) (model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return model.Conversation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return model.Conversation{}, storage.ErrNoRows
	}
	return c, nil
}

func (s *Store) forUser(userID int64) []model.Conversation {
	var out []model.Conversation
	for _, c := range s.conversations {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) CountConversationsForUser(ctx context.Context, userID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forUser(userID)), nil
}

func (s *Store) ListConversationsForUser(ctx context.Context, userID int64, limit, offset int) ([]model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return window(s.forUser(userID), limit, offset), nil
}

func (s *Store) AppendReply(ctx context.Context, conversationID, senderID int64, body string) (model.ConversationReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return model.ConversationReply{}, storage.ErrNoRows
	}
	if !c.HasParticipant(senderID) {
		return model.ConversationReply{}, storage.ErrNotParticipant
	}
	if s.FailAppend != nil {
		return model.ConversationReply{}, s.FailAppend
	}

	sentAt := s.now().UTC().Truncate(time.Microsecond)
	if !sentAt.After(c.UpdatedAt) {
		sentAt = c.UpdatedAt.Add(time.Microsecond)
	}
	s.nextReply++
	r := model.ConversationReply{ID: s.nextReply, ConversationID: conversationID, SenderID: senderID, Body: body, SentAt: sentAt}
	s.replies[conversationID] = append(s.replies[conversationID], r)
	c.UpdatedAt = sentAt
	s.conversations[conversationID] = c
	return r, nil
}

// newestFirst returns a copy of the conversation's replies ordered by
// sent_at then id, both descending.
func (s *Store) newestFirst(conversationID int64) []model.ConversationReply {
	rs := append([]model.ConversationReply(nil), s.replies[conversationID]...)
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].SentAt.Equal(rs[j].SentAt) {
			return rs[i].SentAt.After(rs[j].SentAt)
		}
		return rs[i].ID > rs[j].ID
	})
	return rs
}

func (s *Store) LatestReply(ctx context.Context, conversationID int64) (model.ConversationReply, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.ConversationReply{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.newestFirst(conversationID)
	if len(rs) == 0 {
		return model.ConversationReply{}, false, nil
	}
	return rs[0], true, nil
}

func (s *Store) CountReplies(ctx context.Context, conversationID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies[conversationID]), nil
}

func (s *Store) ListReplies(ctx context.Context, conversationID int64, limit, offset int) ([]model.ConversationReply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return window(s.newestFirst(conversationID), limit, offset), nil
}

func (s *Store) LookupUser(ctx context.Context, id int64) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, storage.ErrNoRows
	}
	return u, nil
}

func (s *Store) LookupUsers(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]model.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *Store) SearchUsers(ctx context.Context, institutionID int64, prefix string, limit int) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix = strings.ToLower(prefix)
	var out []model.User
	for _, u := range s.users {
		full := strings.ToLower(u.Firstname + " " + u.Surname)
		if u.InstitutionID == institutionID && strings.HasPrefix(full, prefix) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Surname != out[j].Surname {
			return out[i].Surname < out[j].Surname
		}
		if out[i].Firstname != out[j].Firstname {
			return out[i].Firstname < out[j].Firstname
		}
		return out[i].ID < out[j].ID
	})
	return window(out, limit, 0), nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
