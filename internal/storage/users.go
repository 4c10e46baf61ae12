package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"institution-chat/internal/model"
)

const userColumns = `id, email, firstname, surname, institution_id`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Firstname, &u.Surname, &u.InstitutionID)
	return u, err
}

func (s *Storage) LookupUser(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNoRows
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "lookup user")
	}
	return u, nil
}

// LookupUsers fetches several users at once; missing ids are absent from the map.
func (s *Storage) LookupUsers(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	out := make(map[int64]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "lookup users")
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		out[u.ID] = u
	}
	return out, errors.Wrap(rows.Err(), "iterate users")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchUsers matches "firstname surname" by case-insensitive prefix within
// one institution.
func (s *Storage) SearchUsers(ctx context.Context, institutionID int64, prefix string, limit int) ([]model.User, error) {
	pattern := likeEscaper.Replace(strings.ToLower(prefix)) + "%"

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE institution_id = $1
		  AND lower(firstname || ' ' || surname) LIKE $2 ESCAPE '\'
		ORDER BY surname, firstname, id
		LIMIT $3`,
		institutionID, pattern, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "search users")
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	return out, errors.Wrap(rows.Err(), "iterate users")
}

// CreateUser is used by seeding and tests; user management itself lives in
// the identity service.
func (s *Storage) CreateUser(ctx context.Context, u model.User) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO users (email, firstname, surname, institution_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		u.Email, u.Firstname, u.Surname, u.InstitutionID,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "create user")
	}
	return id, nil
}
