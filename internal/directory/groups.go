package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

// GroupStore is the SQLite-backed group system of record.
type GroupStore struct {
	readDB   *sql.DB
	writeDB  *sql.DB
	pageSize int
}

// NewGroupStore creates a GroupStore over a read/write pool pair.
func NewGroupStore(writeDB, readDB *sql.DB) *GroupStore {
	return &GroupStore{readDB: readDB, writeDB: writeDB, pageSize: domain.DefaultPageSize}
}

// Describe returns one page of groups ordered by id.
func (s *GroupStore) Describe(ctx context.Context, nextToken string) ([]domain.GroupRecord, string, error) {
	offset, err := domain.DecodePageToken(nextToken)
	if err != nil {
		return nil, "", domain.ErrValidation("bad page token: %v", err)
	}

	rows, err := s.readDB.QueryContext(ctx, `
		SELECT group_id, display_name
		FROM user_groups
		ORDER BY group_id
		LIMIT ? OFFSET ?`, s.pageSize+1, offset)
	if err != nil {
		return nil, "", fmt.Errorf("describe groups: %w", mapDBError(err))
	}
	defer rows.Close() //nolint:errcheck

	var groups []domain.GroupRecord
	for rows.Next() {
		var g domain.GroupRecord
		if err := rows.Scan(&g.GroupID, &g.DisplayName); err != nil {
			return nil, "", fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("describe groups: %w", err)
	}

	next := ""
	if len(groups) > s.pageSize {
		groups = groups[:s.pageSize]
		next = domain.EncodePageToken(offset + s.pageSize)
	}
	return groups, next, nil
}

// ListMemberships returns the full user-to-group membership relation. The
// relation is applied in bulk after all users and groups are loaded, so it is
// not paged.
func (s *GroupStore) ListMemberships(ctx context.Context) ([]domain.Membership, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT user_id, group_id
		FROM group_memberships
		ORDER BY group_id, user_id`)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", mapDBError(err))
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.UserID, &m.GroupID); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateGroup inserts a group row. Returns false when the id exists.
func (s *GroupStore) CreateGroup(ctx context.Context, groupID, displayName string) (bool, error) {
	res, err := s.writeDB.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_groups (group_id, display_name)
		VALUES (?, ?)`, groupID, displayName)
	if err != nil {
		return false, fmt.Errorf("create group %s: %w", groupID, mapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create group %s: %w", groupID, err)
	}
	return n > 0, nil
}

// DeleteGroup deletes a group row. Membership rows pointing at the deleted
// group are kept; the loader drops edges it cannot resolve. Returns false
// when the id was absent.
func (s *GroupStore) DeleteGroup(ctx context.Context, groupID string) (bool, error) {
	res, err := s.writeDB.ExecContext(ctx, `
		DELETE FROM user_groups WHERE group_id = ?`, groupID)
	if err != nil {
		return false, fmt.Errorf("delete group %s: %w", groupID, mapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete group %s: %w", groupID, err)
	}
	return n > 0, nil
}

// AddMember records a membership row. Returns false when it already exists.
func (s *GroupStore) AddMember(ctx context.Context, userID, groupID string) (bool, error) {
	res, err := s.writeDB.ExecContext(ctx, `
		INSERT OR IGNORE INTO group_memberships (user_id, group_id)
		VALUES (?, ?)`, userID, groupID)
	if err != nil {
		return false, fmt.Errorf("add member %s to %s: %w", userID, groupID, mapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add member %s to %s: %w", userID, groupID, err)
	}
	return n > 0, nil
}

// RemoveMember deletes a membership row. Returns false when it was absent.
func (s *GroupStore) RemoveMember(ctx context.Context, userID, groupID string) (bool, error) {
	res, err := s.writeDB.ExecContext(ctx, `
		DELETE FROM group_memberships WHERE user_id = ? AND group_id = ?`, userID, groupID)
	if err != nil {
		return false, fmt.Errorf("remove member %s from %s: %w", userID, groupID, mapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove member %s from %s: %w", userID, groupID, err)
	}
	return n > 0, nil
}
