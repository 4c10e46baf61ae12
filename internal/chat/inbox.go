package chat

import (
	"context"

	"go.uber.org/zap"

	"institution-chat/internal/auth"
	"institution-chat/internal/model"
	"institution-chat/internal/pagination"
)

// ListInbox returns the caller's conversations, most recently active first,
// each with the other participant and its newest reply if any.
func (s *Service) ListInbox(ctx context.Context, caller auth.Identity, page, perPage *int) (pagination.Envelope[model.InboxEntry], error) {
	var empty pagination.Envelope[model.InboxEntry]

	total, err := s.conversations.CountConversationsForUser(ctx, caller.ID)
	if err != nil {
		return empty, readErr(ctx, "count conversations", err)
	}
	p := s.opts.Limits.Paginate(total, page, perPage)
	if total == 0 {
		return pagination.NewEnvelope[model.InboxEntry](0, p, nil), nil
	}

	convs, err := s.conversations.ListConversationsForUser(ctx, caller.ID, p.PerPage, p.Offset)
	if err != nil {
		return empty, readErr(ctx, "list conversations", err)
	}

	latest := make([]*model.ConversationReply, len(convs))
	ids := make([]int64, 0, 2*len(convs))
	for i, conv := range convs {
		ids = append(ids, conv.Other(caller.ID))

		r, ok, err := s.latestFor(ctx, conv)
		if err != nil {
			return empty, readErr(ctx, "latest reply", err)
		}
		if ok {
			latest[i] = &r
			ids = append(ids, r.SenderID)
		}
	}

	users, err := s.users.LookupUsers(ctx, ids)
	if err != nil {
		return empty, readErr(ctx, "lookup users", err)
	}

	entries := make([]model.InboxEntry, 0, len(convs))
	for i, conv := range convs {
		entry := model.InboxEntry{
			ConversationID: conv.ID,
			OtherUser:      summaryOf(users, conv.Other(caller.ID)),
			UpdatedAt:      conv.UpdatedAt,
		}
		if r := latest[i]; r != nil {
			view := toReplyView(*r, summaryOf(users, r.SenderID))
			entry.LastReply = &view
		}
		entries = append(entries, entry)
	}
	return pagination.NewEnvelope(total, p, entries), nil
}

// latestFor resolves the newest reply of one conversation, going through the
// cache when one is configured. Cache failures degrade to the store.
func (s *Service) latestFor(ctx context.Context, conv model.Conversation) (model.ConversationReply, bool, error) {
	if s.cache != nil {
		r, ok, err := s.cache.Get(ctx, conv)
		if err != nil {
			s.log.Warn("latest reply cache read failed", zap.Int64("conversation_id", conv.ID), zap.Error(err))
		} else if ok {
			return r, true, nil
		}
	}

	r, ok, err := s.replies.LatestReply(ctx, conv.ID)
	if err != nil || !ok {
		return r, ok, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, conv, r); err != nil {
			s.log.Warn("latest reply cache write failed", zap.Int64("conversation_id", conv.ID), zap.Error(err))
		}
	}
	return r, true, nil
}
