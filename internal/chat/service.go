// Package chat is the direct-messaging core: two-party conversations, their
// reply history, the inbox view and new-reply push.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"institution-chat/internal/auth"
	"institution-chat/internal/metrics"
	"institution-chat/internal/model"
	"institution-chat/internal/pagination"
	"institution-chat/internal/storage"
)

const (
	DefaultMaxBodyLength = 2000
	searchLimit          = 10
)

type Options struct {
	MaxBodyLength       int
	SameInstitutionOnly bool
	Limits              pagination.Limits
}

type Deps struct {
	Conversations ConversationStore
	Replies       ReplyStore
	Users         UserDirectory
	// Cache and Notifier are optional.
	Cache    LatestCache
	Notifier Notifier
	Log      *zap.Logger
}

type Service struct {
	conversations ConversationStore
	replies       ReplyStore
	users         UserDirectory
	resolver      *ParticipantResolver
	cache         LatestCache
	notifier      Notifier
	opts          Options
	log           *zap.Logger
}

func NewService(d Deps, opts Options) *Service {
	if opts.MaxBodyLength <= 0 {
		opts.MaxBodyLength = DefaultMaxBodyLength
	}
	opts.Limits = opts.Limits.Normalize()
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Service{
		conversations: d.Conversations,
		replies:       d.Replies,
		users:         d.Users,
		resolver:      NewParticipantResolver(d.Users, opts.SameInstitutionOnly),
		cache:         d.Cache,
		notifier:      d.Notifier,
		opts:          opts,
		log:           d.Log,
	}
}

// CreateConversation returns the conversation between caller and
// otherUserID, creating it on first contact. Repeated calls from either side
// return the same conversation with Created=false.
func (s *Service) CreateConversation(ctx context.Context, caller auth.Identity, otherUserID int64) (model.ConversationView, error) {
	other, err := s.resolver.ResolveCounterparty(ctx, caller, otherUserID)
	if err != nil {
		return model.ConversationView{}, err
	}

	conv, created, err := s.conversations.FindOrCreateConversation(ctx, caller.ID, other.ID)
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		s.log.Error("duplicate conversation for pair",
			zap.Int64("user_a", caller.ID), zap.Int64("user_b", other.ID))
		return model.ConversationView{}, fmt.Errorf("%w: more than one conversation for this pair", ErrConflict)
	case err != nil:
		return model.ConversationView{}, fmt.Errorf("find or create conversation: %w", err)
	}

	if created {
		metrics.ConversationsCreated.Inc()
		s.log.Info("conversation created",
			zap.Int64("conversation_id", conv.ID), zap.Int64("user_a", conv.ParticipantA), zap.Int64("user_b", conv.ParticipantB))
	}

	return model.ConversationView{
		ID:      conv.ID,
		UserOne: conv.ParticipantA,
		UserTwo: conv.ParticipantB,
		Created: created,
	}, nil
}

func (s *Service) validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return invalid("reply must not be empty")
	}
	if n := utf8.RuneCountInString(body); n > s.opts.MaxBodyLength {
		return invalid("reply is %d characters, limit is %d", n, s.opts.MaxBodyLength)
	}
	return nil
}

// PostReply appends body to the conversation as caller and pushes it to the
// counterparty. The push runs after the write commits and cannot fail it.
func (s *Service) PostReply(ctx context.Context, caller auth.Identity, conversationID int64, body string) (model.ReplyView, error) {
	if conversationID <= 0 {
		return model.ReplyView{}, invalid("conversation id must be positive")
	}
	if err := s.validateBody(body); err != nil {
		return model.ReplyView{}, err
	}

	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if errors.Is(err, storage.ErrNoRows) {
		return model.ReplyView{}, fmt.Errorf("%w: conversation does not exist", ErrNotFound)
	}
	if err != nil {
		return model.ReplyView{}, fmt.Errorf("get conversation: %w", err)
	}
	if !conv.HasParticipant(caller.ID) {
		return model.ReplyView{}, fmt.Errorf("%w: no such user in given conversation", ErrForbidden)
	}

	reply, err := s.replies.AppendReply(ctx, conversationID, caller.ID, body)
	switch {
	case errors.Is(err, storage.ErrNoRows):
		return model.ReplyView{}, fmt.Errorf("%w: conversation does not exist", ErrNotFound)
	case errors.Is(err, storage.ErrNotParticipant):
		return model.ReplyView{}, fmt.Errorf("%w: no such user in given conversation", ErrForbidden)
	case err != nil:
		return model.ReplyView{}, fmt.Errorf("append reply: %w", err)
	}
	metrics.RepliesAppended.Inc()

	// The reply is durable from here on; nothing below may fail the call.
	view := toReplyView(reply, s.senderSummary(ctx, caller))
	s.notifier.Notify(conv.Other(caller.ID), view)

	return view, nil
}

func (s *Service) senderSummary(ctx context.Context, caller auth.Identity) model.UserSummary {
	u, err := s.users.LookupUser(ctx, caller.ID)
	if err != nil {
		s.log.Warn("sender lookup failed, using token identity",
			zap.Int64("user_id", caller.ID), zap.Error(err))
		return model.UserSummary{ID: caller.ID, Email: caller.Email}
	}
	return u.Summary()
}

// ListReplies returns the reply history of a conversation, newest first.
// Only the two participants may read it.
func (s *Service) ListReplies(ctx context.Context, caller auth.Identity, conversationID int64, page, perPage *int) (pagination.Envelope[model.ReplyView], error) {
	var empty pagination.Envelope[model.ReplyView]

	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if errors.Is(err, storage.ErrNoRows) {
		return empty, fmt.Errorf("%w: conversation does not exist", ErrNotFound)
	}
	if err != nil {
		return empty, readErr(ctx, "get conversation", err)
	}
	if !conv.HasParticipant(caller.ID) {
		return empty, fmt.Errorf("%w: not a participant of this conversation", ErrForbidden)
	}

	total, err := s.replies.CountReplies(ctx, conversationID)
	if err != nil {
		return empty, readErr(ctx, "count replies", err)
	}
	p := s.opts.Limits.Paginate(total, page, perPage)
	if total == 0 {
		return pagination.NewEnvelope[model.ReplyView](0, p, nil), nil
	}

	replies, err := s.replies.ListReplies(ctx, conversationID, p.PerPage, p.Offset)
	if err != nil {
		return empty, readErr(ctx, "list replies", err)
	}

	users, err := s.users.LookupUsers(ctx, []int64{conv.ParticipantA, conv.ParticipantB})
	if err != nil {
		return empty, readErr(ctx, "lookup participants", err)
	}

	views := make([]model.ReplyView, 0, len(replies))
	for _, r := range replies {
		views = append(views, toReplyView(r, summaryOf(users, r.SenderID)))
	}
	return pagination.NewEnvelope(total, p, views), nil
}

// SearchUsers finds users of the caller's institution whose full name
// starts with nameLike.
func (s *Service) SearchUsers(ctx context.Context, caller auth.Identity, nameLike string) ([]model.UserSummary, error) {
	nameLike = strings.TrimSpace(nameLike)
	if nameLike == "" {
		return nil, invalid("name_like must not be empty")
	}

	users, err := s.users.SearchUsers(ctx, caller.InstitutionID, nameLike, searchLimit)
	if err != nil {
		return nil, readErr(ctx, "search users", err)
	}

	out := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

func toReplyView(r model.ConversationReply, sender model.UserSummary) model.ReplyView {
	return model.ReplyView{
		ID:             r.ID,
		Body:           r.Body,
		SentAt:         r.SentAt,
		Sender:         sender,
		ConversationID: r.ConversationID,
	}
}

// summaryOf falls back to a bare id when the identity service no longer
// knows the user.
func summaryOf(users map[int64]model.User, id int64) model.UserSummary {
	if u, ok := users[id]; ok {
		return u.Summary()
	}
	return model.UserSummary{ID: id}
}
