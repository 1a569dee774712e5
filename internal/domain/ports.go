package domain

import "context"

// UserRecord is a user as described by the external user directory.
type UserRecord struct {
	UserID      string
	LoginName   string
	DisplayName string
	Role        string
	Disabled    bool
}

// GroupRecord is a group as described by the external group directory.
type GroupRecord struct {
	GroupID     string
	DisplayName string
}

// Membership is a single user-group membership edge from the bulk relation.
type Membership struct {
	UserID  string
	GroupID string
}

// TemplateRecord is a session template as described by the template directory.
type TemplateRecord struct {
	TemplateID string
	OwnerID    string // empty when the template has no owner
}

// SessionRecord is a live session as described by the session broker.
type SessionRecord struct {
	SessionID string
	OwnerID   string // empty when the session has no owner
}

// RoleRecord is a role definition from the role source.
type RoleRecord struct {
	Name        string
	Permissions []string // ordered permitted action names
}

// PublishResult reports the per-id outcome of a template publish call.
type PublishResult struct {
	AcceptedUsers  []string
	RejectedUsers  []string
	AcceptedGroups []string
	RejectedGroups []string
}

// UserDirectory is the external system of record for users.
// Describe pages with an opaque continuation token; an empty returned token
// means the listing is complete.
type UserDirectory interface {
	Describe(ctx context.Context, nextToken string) (users []UserRecord, next string, err error)
	Create(ctx context.Context, userID, loginName, role string) (bool, error)
}

// GroupDirectory is the external system of record for groups and the bulk
// user-group membership relation.
type GroupDirectory interface {
	Describe(ctx context.Context, nextToken string) (groups []GroupRecord, next string, err error)
	ListMemberships(ctx context.Context) ([]Membership, error)
}

// SessionTemplateDirectory is the external system of record for session
// templates and their published-to share lists.
type SessionTemplateDirectory interface {
	Describe(ctx context.Context, nextToken string) (templates []TemplateRecord, next string, err error)
	UsersSharedWith(ctx context.Context, templateID string) ([]string, error)
	GroupsSharedWith(ctx context.Context, templateID string) ([]string, error)
	Publish(ctx context.Context, templateID string, userIDs, groupIDs []string) (PublishResult, error)
}

// SessionDirectory describes live sessions via the session broker.
type SessionDirectory interface {
	DescribeSessions(ctx context.Context, nextToken string) (sessions []SessionRecord, next string, err error)
}

// PolicySource provides the raw declarative rule text, re-readable on demand.
type PolicySource interface {
	Read(ctx context.Context) (string, error)
}

// RoleSource provides the role definitions with their permitted actions.
type RoleSource interface {
	Roles(ctx context.Context) ([]RoleRecord, error)
}
