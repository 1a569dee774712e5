package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

// UserStore is the SQLite-backed user system of record.
type UserStore struct {
	readDB   *sql.DB
	writeDB  *sql.DB
	pageSize int
}

// NewUserStore creates a UserStore over a read/write pool pair.
func NewUserStore(writeDB, readDB *sql.DB) *UserStore {
	return &UserStore{readDB: readDB, writeDB: writeDB, pageSize: domain.DefaultPageSize}
}

// Describe returns one page of users ordered by id, with a continuation
// token for the next page. An empty token means the listing is complete.
func (s *UserStore) Describe(ctx context.Context, nextToken string) ([]domain.UserRecord, string, error) {
	offset, err := domain.DecodePageToken(nextToken)
	if err != nil {
		return nil, "", domain.ErrValidation("bad page token: %v", err)
	}

	rows, err := s.readDB.QueryContext(ctx, `
		SELECT user_id, login_name, display_name, role, disabled
		FROM users
		ORDER BY user_id
		LIMIT ? OFFSET ?`, s.pageSize+1, offset)
	if err != nil {
		return nil, "", fmt.Errorf("describe users: %w", mapDBError(err))
	}
	defer rows.Close() //nolint:errcheck

	var users []domain.UserRecord
	for rows.Next() {
		var u domain.UserRecord
		var disabled int
		if err := rows.Scan(&u.UserID, &u.LoginName, &u.DisplayName, &u.Role, &disabled); err != nil {
			return nil, "", fmt.Errorf("scan user: %w", err)
		}
		u.Disabled = disabled != 0
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("describe users: %w", err)
	}

	next := ""
	if len(users) > s.pageSize {
		users = users[:s.pageSize]
		next = domain.EncodePageToken(offset + s.pageSize)
	}
	return users, next, nil
}

// Create inserts a user row. Returns false without error when the id is
// already taken.
func (s *UserStore) Create(ctx context.Context, userID, loginName, role string) (bool, error) {
	res, err := s.writeDB.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (user_id, login_name, role)
		VALUES (?, ?, ?)`, userID, loginName, role)
	if err != nil {
		return false, fmt.Errorf("create user %s: %w", userID, mapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create user %s: %w", userID, err)
	}
	return n > 0, nil
}
