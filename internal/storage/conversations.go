package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"institution-chat/internal/model"
)

const conversationColumns = `id, participant_a, participant_b, created_at, updated_at`

func scanConversation(row interface{ Scan(...any) error }) (model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// FindOrCreateConversation returns the single conversation for the unordered
// pair {userA, userB}, inserting it when missing. The pair index makes the
// insert a no-op for a concurrent duplicate, after which the winner's row is
// read back.
func (s *Storage) FindOrCreateConversation(ctx context.Context, userA, userB int64) (model.Conversation, bool, error) {
	now := s.now()

	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO conversations (participant_a, participant_b, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT DO NOTHING
		RETURNING `+conversationColumns,
		userA, userB, now,
	)
	c, err := scanConversation(row)
	switch {
	case err == nil:
		return c, true, nil
	case errors.Is(err, sql.ErrNoRows):
	case isUniqueViolation(err):
	default:
		return model.Conversation{}, false, errors.Wrap(err, "insert conversation")
	}

	c, err = s.findConversationByPair(ctx, userA, userB)
	if err != nil {
		return model.Conversation{}, false, err
	}
	return c, false, nil
}

func (s *Storage) findConversationByPair(ctx context.Context, userA, userB int64) (model.Conversation, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE LEAST(participant_a, participant_b) = LEAST($1::bigint, $2::bigint)
		  AND GREATEST(participant_a, participant_b) = GREATEST($1::bigint, $2::bigint)
		LIMIT 2`,
		userA, userB,
	)
	if err != nil {
		return model.Conversation{}, errors.Wrap(err, "find conversation by pair")
	}
	defer rows.Close()

	var found []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return model.Conversation{}, errors.Wrap(err, "scan conversation")
		}
		found = append(found, c)
	}
	if err := rows.Err(); err != nil {
		return model.Conversation{}, errors.Wrap(err, "iterate conversations")
	}

	switch len(found) {
	case 0:
		return model.Conversation{}, ErrNoRows
	case 1:
		return found[0], nil
	default:
		return model.Conversation{}, ErrDuplicate
	}
}

func (s *Storage) GetConversation(ctx context.Context, id int64) (model.Conversation, error) {
	c, err := scanConversation(s.DB.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Conversation{}, ErrNoRows
	}
	if err != nil {
		return model.Conversation{}, errors.Wrap(err, "get conversation")
	}
	return c, nil
}

func (s *Storage) CountConversationsForUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversations
		WHERE participant_a = $1 OR participant_b = $1`, userID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count conversations")
	}
	return n, nil
}

// ListConversationsForUser returns the caller's conversations, most recently
// active first.
func (s *Storage) ListConversationsForUser(ctx context.Context, userID int64, limit, offset int) ([]model.Conversation, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan conversation")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "iterate conversations")
}

// touchConversation bumps updated_at; it never moves backwards.
func touchConversation(ctx context.Context, q queryer, id int64, ts time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE conversations SET updated_at = GREATEST(updated_at, $2) WHERE id = $1`, id, ts)
	if err != nil {
		return errors.Wrap(err, "touch conversation")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoRows
	}
	return nil
}
