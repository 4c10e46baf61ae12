package chat

import (
	"context"

	"institution-chat/internal/model"
)

// ConversationStore owns conversation identity and pair uniqueness.
type ConversationStore interface {
	FindOrCreateConversation(ctx context.Context, userA, userB int64) (model.Conversation, bool, error)
	GetConversation(ctx context.Context, id int64) (model.Conversation, error)
	CountConversationsForUser(ctx context.Context, userID int64) (int, error)
	ListConversationsForUser(ctx context.Context, userID int64, limit, offset int) ([]model.Conversation, error)
}

// ReplyStore owns the ordered reply history. AppendReply must insert the
// reply and bump the conversation's updated_at atomically.
type ReplyStore interface {
	AppendReply(ctx context.Context, conversationID, senderID int64, body string) (model.ConversationReply, error)
	LatestReply(ctx context.Context, conversationID int64) (model.ConversationReply, bool, error)
	CountReplies(ctx context.Context, conversationID int64) (int, error)
	ListReplies(ctx context.Context, conversationID int64, limit, offset int) ([]model.ConversationReply, error)
}

// UserDirectory is the read-only view of the identity service.
type UserDirectory interface {
	LookupUser(ctx context.Context, id int64) (model.User, error)
	LookupUsers(ctx context.Context, ids []int64) (map[int64]model.User, error)
	SearchUsers(ctx context.Context, institutionID int64, prefix string, limit int) ([]model.User, error)
}

// LatestCache memoises the newest reply per conversation version.
type LatestCache interface {
	Get(ctx context.Context, conv model.Conversation) (model.ConversationReply, bool, error)
	Set(ctx context.Context, conv model.Conversation, reply model.ConversationReply) error
}

// Notifier pushes a new-reply hint to a user. Implementations must return
// immediately and absorb their own failures.
type Notifier interface {
	Notify(recipientID int64, reply model.ReplyView)
}

type nopNotifier struct{}

func (nopNotifier) Notify(int64, model.ReplyView) {}
