// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var (
	// ErrNoRows is returned when the addressed row does not exist.
	ErrNoRows = errors.New("storage: no rows")
	// ErrNotParticipant is returned when a sender is not part of the conversation.
	ErrNotParticipant = errors.New("storage: sender is not a participant")
	// ErrDuplicate is returned when more than one row exists for a unique key.
	ErrDuplicate = errors.New("storage: duplicate row")
)

const uniqueViolation = "23505"

type Storage struct {
	DB    *sql.DB
	clock func() time.Time
}

func NewStorage(dsn string) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{DB: db, clock: time.Now}, nil
}

// now returns the current time at the precision Postgres keeps.
func (s *Storage) now() time.Time {
	clock := s.clock
	if clock == nil {
		clock = time.Now
	}
	return clock().UTC().Truncate(time.Microsecond)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id             BIGSERIAL PRIMARY KEY,
	email          VARCHAR(40) NOT NULL,
	firstname      VARCHAR(20) NOT NULL DEFAULT '',
	surname        VARCHAR(40) NOT NULL DEFAULT '',
	institution_id BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS conversations (
	id            BIGSERIAL PRIMARY KEY,
	participant_a BIGINT NOT NULL REFERENCES users(id),
	participant_b BIGINT NOT NULL REFERENCES users(id),
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	CONSTRAINT conversations_distinct_participants CHECK (participant_a <> participant_b)
);

CREATE UNIQUE INDEX IF NOT EXISTS conversations_pair_uniq
	ON conversations (LEAST(participant_a, participant_b), GREATEST(participant_a, participant_b));
CREATE INDEX IF NOT EXISTS conversations_a_updated ON conversations (participant_a, updated_at DESC);
CREATE INDEX IF NOT EXISTS conversations_b_updated ON conversations (participant_b, updated_at DESC);

CREATE TABLE IF NOT EXISTS conversation_replies (
	id              BIGSERIAL PRIMARY KEY,
	conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	sender_id       BIGINT NOT NULL REFERENCES users(id),
	body            TEXT NOT NULL,
	sent_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS conversation_replies_recent
	ON conversation_replies (conversation_id, sent_at DESC, id DESC);
`

// Migrate creates the messaging tables. The users table belongs to the
// identity service and is only created when missing.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "migrate schema")
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// WithTx runs fn inside a transaction and commits when it returns nil.
// Every other exit path, panics included, rolls back.
func (s *Storage) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
