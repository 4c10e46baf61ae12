package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"institution-chat/internal/model"
)

const replyColumns = `id, conversation_id, sender_id, body, sent_at`

func scanReply(row interface{ Scan(...any) error }) (model.ConversationReply, error) {
	var r model.ConversationReply
	err := row.Scan(&r.ID, &r.ConversationID, &r.SenderID, &r.Body, &r.SentAt)
	return r, err
}

// AppendReply inserts a reply and bumps the conversation's updated_at in one
// transaction. The conversation row is locked first and sent_at is kept
// strictly after the previous updated_at, so replies to one conversation are
// ordered by sent_at in commit order and updated_at always equals the newest
// reply's sent_at.
//
// The transaction is detached from ctx cancellation: once begun it runs to
// commit or rollback.
func (s *Storage) AppendReply(ctx context.Context, conversationID, senderID int64, body string) (model.ConversationReply, error) {
	var reply model.ConversationReply
	txCtx := context.WithoutCancel(ctx)

	err := s.WithTx(txCtx, func(tx *sql.Tx) error {
		var (
			a, b      int64
			updatedAt time.Time
		)
		err := tx.QueryRowContext(txCtx,
			`SELECT participant_a, participant_b, updated_at FROM conversations WHERE id = $1 FOR UPDATE`,
			conversationID,
		).Scan(&a, &b, &updatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoRows
		}
		if err != nil {
			return errors.Wrap(err, "lock conversation")
		}
		if senderID != a && senderID != b {
			return ErrNotParticipant
		}

		sentAt := s.now()
		if !sentAt.After(updatedAt) {
			sentAt = updatedAt.UTC().Add(time.Microsecond)
		}
		reply, err = scanReply(tx.QueryRowContext(txCtx, `
			INSERT INTO conversation_replies (conversation_id, sender_id, body, sent_at)
			VALUES ($1, $2, $3, $4)
			RETURNING `+replyColumns,
			conversationID, senderID, body, sentAt,
		))
		if err != nil {
			return errors.Wrap(err, "insert reply")
		}

		return touchConversation(txCtx, tx, conversationID, sentAt)
	})
	if err != nil {
		return model.ConversationReply{}, err
	}
	return reply, nil
}

// LatestReply returns the newest reply of a conversation; ok is false when
// the conversation has none.
func (s *Storage) LatestReply(ctx context.Context, conversationID int64) (model.ConversationReply, bool, error) {
	r, err := scanReply(s.DB.QueryRowContext(ctx, `
		SELECT `+replyColumns+`
		FROM conversation_replies
		WHERE conversation_id = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT 1`, conversationID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ConversationReply{}, false, nil
	}
	if err != nil {
		return model.ConversationReply{}, false, errors.Wrap(err, "latest reply")
	}
	return r, true, nil
}

func (s *Storage) CountReplies(ctx context.Context, conversationID int64) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_replies WHERE conversation_id = $1`, conversationID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count replies")
	}
	return n, nil
}

// ListReplies returns a window of the reply history, newest first.
func (s *Storage) ListReplies(ctx context.Context, conversationID int64, limit, offset int) ([]model.ConversationReply, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+replyColumns+`
		FROM conversation_replies
		WHERE conversation_id = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		conversationID, limit, offset,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list replies")
	}
	defer rows.Close()

	var out []model.ConversationReply
	for rows.Next() {
		r, err := scanReply(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan reply")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate replies")
}
