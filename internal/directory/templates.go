package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

// TemplateStore is the SQLite-backed session-template system of record,
// including the published-to share relation.
type TemplateStore struct {
	readDB   *sql.DB
	writeDB  *sql.DB
	pageSize int
}

// NewTemplateStore creates a TemplateStore over a read/write pool pair.
func NewTemplateStore(writeDB, readDB *sql.DB) *TemplateStore {
	return &TemplateStore{readDB: readDB, writeDB: writeDB, pageSize: domain.DefaultPageSize}
}

// Describe returns one page of session templates ordered by id.
func (s *TemplateStore) Describe(ctx context.Context, nextToken string) ([]domain.TemplateRecord, string, error) {
	offset, err := domain.DecodePageToken(nextToken)
	if err != nil {
		return nil, "", domain.ErrValidation("bad page token: %v", err)
	}

	rows, err := s.readDB.QueryContext(ctx, `
		SELECT template_id, owner_id
		FROM session_templates
		ORDER BY template_id
		LIMIT ? OFFSET ?`, s.pageSize+1, offset)
	if err != nil {
		return nil, "", fmt.Errorf("describe templates: %w", mapDBError(err))
	}
	defer rows.Close() //nolint:errcheck

	var templates []domain.TemplateRecord
	for rows.Next() {
		var t domain.TemplateRecord
		if err := rows.Scan(&t.TemplateID, &t.OwnerID); err != nil {
			return nil, "", fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("describe templates: %w", err)
	}

	next := ""
	if len(templates) > s.pageSize {
		templates = templates[:s.pageSize]
		next = domain.EncodePageToken(offset + s.pageSize)
	}
	return templates, next, nil
}

// UsersSharedWith returns the ids of users the template is published to.
func (s *TemplateStore) UsersSharedWith(ctx context.Context, templateID string) ([]string, error) {
	return s.sharedWith(ctx, templateID, "user")
}

// GroupsSharedWith returns the ids of groups the template is published to.
func (s *TemplateStore) GroupsSharedWith(ctx context.Context, templateID string) ([]string, error) {
	return s.sharedWith(ctx, templateID, "group")
}

func (s *TemplateStore) sharedWith(ctx context.Context, templateID, principalType string) ([]string, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT principal_id
		FROM template_shares
		WHERE template_id = ? AND principal_type = ?
		ORDER BY principal_id`, templateID, principalType)
	if err != nil {
		return nil, fmt.Errorf("shared-with %s: %w", templateID, mapDBError(err))
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Publish replaces the template's share relation in full, keeping only ids
// that resolve to existing users or groups. Unknown ids are reported back as
// rejected rather than failing the whole publish. The replacement runs in a
// single transaction.
func (s *TemplateStore) Publish(ctx context.Context, templateID string, userIDs, groupIDs []string) (domain.PublishResult, error) {
	var result domain.PublishResult

	var exists int
	err := s.readDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_templates WHERE template_id = ?`, templateID).Scan(&exists)
	if err != nil {
		return result, fmt.Errorf("publish %s: %w", templateID, mapDBError(err))
	}
	if exists == 0 {
		return result, domain.ErrNotFound("session template %s not found", templateID)
	}

	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("publish %s: %w", templateID, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM template_shares WHERE template_id = ?`, templateID); err != nil {
		return result, fmt.Errorf("publish %s: %w", templateID, mapDBError(err))
	}

	for _, uid := range userIDs {
		ok, err := s.insertShare(ctx, tx, templateID, "user", uid,
			`SELECT COUNT(*) FROM users WHERE user_id = ?`)
		if err != nil {
			return result, fmt.Errorf("publish %s: %w", templateID, err)
		}
		if ok {
			result.AcceptedUsers = append(result.AcceptedUsers, uid)
		} else {
			result.RejectedUsers = append(result.RejectedUsers, uid)
		}
	}
	for _, gid := range groupIDs {
		ok, err := s.insertShare(ctx, tx, templateID, "group", gid,
			`SELECT COUNT(*) FROM user_groups WHERE group_id = ?`)
		if err != nil {
			return result, fmt.Errorf("publish %s: %w", templateID, err)
		}
		if ok {
			result.AcceptedGroups = append(result.AcceptedGroups, gid)
		} else {
			result.RejectedGroups = append(result.RejectedGroups, gid)
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("publish %s: %w", templateID, err)
	}
	return result, nil
}

func (s *TemplateStore) insertShare(ctx context.Context, tx *sql.Tx, templateID, principalType, principalID, existsQuery string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, existsQuery, principalID).Scan(&n); err != nil {
		return false, mapDBError(err)
	}
	if n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO template_shares (template_id, principal_type, principal_id)
		VALUES (?, ?, ?)`, templateID, principalType, principalID); err != nil {
		return false, mapDBError(err)
	}
	return true, nil
}

// CreateTemplate inserts a template row. Returns false when the id exists.
func (s *TemplateStore) CreateTemplate(ctx context.Context, templateID, ownerID string) (bool, error) {
	res, err := s.writeDB.ExecContext(ctx, `
		INSERT OR IGNORE INTO session_templates (template_id, owner_id)
		VALUES (?, ?)`, templateID, ownerID)
	if err != nil {
		return false, fmt.Errorf("create template %s: %w", templateID, mapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create template %s: %w", templateID, err)
	}
	return n > 0, nil
}

// DeleteTemplate deletes a template row and its share rows. Returns false
// when the id was absent.
func (s *TemplateStore) DeleteTemplate(ctx context.Context, templateID string) (bool, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete template %s: %w", templateID, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM template_shares WHERE template_id = ?`, templateID); err != nil {
		return false, fmt.Errorf("delete template %s shares: %w", templateID, mapDBError(err))
	}
	res, err := tx.ExecContext(ctx, `
		DELETE FROM session_templates WHERE template_id = ?`, templateID)
	if err != nil {
		return false, fmt.Errorf("delete template %s: %w", templateID, mapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete template %s: %w", templateID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete template %s: %w", templateID, err)
	}
	return n > 0, nil
}
