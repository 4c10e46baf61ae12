// internal/model/conversation.go
package model

import "time"

type Conversation struct {
	ID           int64     `db:"id" json:"id"`
	ParticipantA int64     `db:"participant_a" json:"user_one"`
	ParticipantB int64     `db:"participant_b" json:"user_two"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether userID is one of the two parties.
func (c Conversation) HasParticipant(userID int64) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Other returns the participant that is not userID. The columns are an
// unordered pair, so callers must never read ParticipantB as "them".
func (c Conversation) Other(userID int64) int64 {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

type ConversationReply struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conv_id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	Body           string    `db:"body" json:"reply"`
	SentAt         time.Time `db:"sent_at" json:"reply_time"`
}

// ReplyView is the serialized reply: API responses and push payloads.
type ReplyView struct {
	ID             int64       `json:"id"`
	Body           string      `json:"reply"`
	SentAt         time.Time   `json:"reply_time"`
	Sender         UserSummary `json:"reply_user"`
	ConversationID int64       `json:"conv_id"`
}

// ConversationView is returned by conversation creation.
type ConversationView struct {
	ID      int64 `json:"id"`
	UserOne int64 `json:"user_one"`
	UserTwo int64 `json:"user_two"`
	Created bool  `json:"created"`
}

// InboxEntry is one conversation as seen by one of its participants.
type InboxEntry struct {
	ConversationID int64       `json:"id"`
	OtherUser      UserSummary `json:"other_user"`
	LastReply      *ReplyView  `json:"last_reply,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
