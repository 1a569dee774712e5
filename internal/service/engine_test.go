package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
	"github.com/aws/dcv-access-console-sub000/internal/policy"
)

const testPolicies = `
	// role-based system permissions
	permit (principal, action, resource) when { action in principal.role.permissions };

	// collaborators may view shared sessions
	permit (principal, action == Action::"viewResource", resource is Session)
	when { principal in resource.collaborators };

	// owners control their own resources
	permit (principal, action, resource) when { resource has owner && principal == resource.owner };

	forbid (principal, action, resource) when { principal.disabled == true };
`

func testCollaborators() Collaborators {
	return Collaborators{
		Users: &fakeUserDir{users: []domain.UserRecord{
			{UserID: "u1", LoginName: "u1@example.com", DisplayName: "User One", Role: "Admin"},
			{UserID: "u2", LoginName: "u2@example.com", DisplayName: "User Two", Role: "User"},
			{UserID: "u3", LoginName: "u3@example.com", DisplayName: "User Three", Role: "User"},
		}},
		Groups: &fakeGroupDir{
			groups:      []domain.GroupRecord{{GroupID: "g1"}},
			memberships: []domain.Membership{{UserID: "u2", GroupID: "g1"}},
		},
		Templates: &fakeTemplateDir{
			templates: []domain.TemplateRecord{{TemplateID: "tpl1", OwnerID: "u1"}},
			shared:    map[string]sharedWith{"tpl1": {users: []string{"u2", "ghost"}}},
		},
		Sessions: &fakeSessionDir{sessions: []domain.SessionRecord{
			{SessionID: "r1", OwnerID: "u1"},
		}},
		Policies: &fakePolicySource{text: testPolicies},
		Roles: &fakeRoleSource{roles: []domain.RoleRecord{
			{Name: "Admin", Permissions: []string{"viewResource", "deleteResource", "createSession", "viewSessions"}},
			{Name: "User", Permissions: []string{"createSession"}},
		}},
	}
}

func newTestEngine(t *testing.T, caseInsensitive bool) *Engine {
	t.Helper()
	opts := Options{
		CaseInsensitiveIDs: caseInsensitive,
		Logger:             slog.Default(),
	}
	e := NewEngine(testCollaborators(), policy.NewEvaluator(caseInsensitive), opts)
	require.NoError(t, e.LoadEntities(context.Background()))
	return e
}

func TestEndToEndCollaboratorScenario(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	added, err := e.AddPrincipalToShareList(ctx, domain.TypeUser, "u2", domain.TypeSession, "r1", domain.ShareLevelCollaborators)
	require.NoError(t, err)
	assert.True(t, added)

	shared, err := e.SharedPrincipals(domain.TypeSession, "r1", domain.ShareLevelCollaborators, domain.TypeUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, shared)

	ok, err := e.IsAuthorizedOnResource(ctx, domain.TypeUser, "u2", "viewResource", domain.TypeSession, "r1")
	require.NoError(t, err)
	assert.True(t, ok, "collaborator gets view access")

	ok, err = e.IsAuthorizedOnResource(ctx, domain.TypeUser, "u3", "viewResource", domain.TypeSession, "r1")
	require.NoError(t, err)
	assert.False(t, ok, "non-collaborator denied")
}

func TestSystemLevelDecision(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	ok, err := e.IsAuthorized(ctx, domain.TypeUser, "u1", "deleteResource")
	require.NoError(t, err)
	assert.True(t, ok, "admin role carries deleteResource")

	ok, err = e.IsAuthorized(ctx, domain.TypeUser, "u2", "deleteResource")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.IsAuthorized(ctx, domain.TypeUser, "u2", "createSession")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOwnerDecision(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	ok, err := e.IsAuthorizedOnResource(ctx, domain.TypeUser, "u1", "viewResource", domain.TypeSession, "r1")
	require.NoError(t, err)
	assert.True(t, ok, "owner sees own session")
}

func TestDefaultDenyForUnknownAction(t *testing.T) {
	e := newTestEngine(t, false)

	ok, err := e.IsAuthorized(context.Background(), domain.TypeUser, "u1", "unmentionedAction")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCaseInsensitiveDecisionsAgree(t *testing.T) {
	e := newTestEngine(t, true)
	ctx := context.Background()

	require.True(t, e.AddUser(ctx, domain.UserRecord{UserID: "Alice", Role: "Admin"}))

	lower, err := e.IsAuthorized(ctx, domain.TypeUser, "alice", "deleteResource")
	require.NoError(t, err)
	upper, err := e.IsAuthorized(ctx, domain.TypeUser, "Alice", "deleteResource")
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
	assert.True(t, lower)
}

func TestEvaluatorFailureIsNotDenial(t *testing.T) {
	eval := &fakeEvaluator{err: assert.AnError}
	e := NewEngine(testCollaborators(), eval, Options{Logger: slog.Default()})

	_, err := e.IsAuthorized(context.Background(), domain.TypeUser, "u1", "viewResource")
	var evalErr *domain.EvaluationError
	require.ErrorAs(t, err, &evalErr)
}

func TestFakeEvaluatorReceivesPlaceholderResource(t *testing.T) {
	eval := &fakeEvaluator{decision: domain.Decision{Allowed: true}}
	e := NewEngine(testCollaborators(), eval, Options{Logger: slog.Default()})

	ok, err := e.IsAuthorized(context.Background(), domain.TypeUser, "u1", "viewSessions")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.PlaceholderResource, eval.lastReq.Resource)
}

func TestMutationInsertIfAbsent(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	assert.False(t, e.AddUser(ctx, domain.UserRecord{UserID: "u1"}), "u1 loaded from directory")
	assert.True(t, e.AddUser(ctx, domain.UserRecord{UserID: "u9", Role: "User"}))
	assert.False(t, e.AddUser(ctx, domain.UserRecord{UserID: "u9"}))

	assert.True(t, e.AddGroup(ctx, domain.GroupRecord{GroupID: "g2"}))
	assert.False(t, e.AddGroup(ctx, domain.GroupRecord{GroupID: "g1"}))

	assert.True(t, e.AddSession(ctx, domain.SessionRecord{SessionID: "r2", OwnerID: "u9"}))
	assert.False(t, e.AddSession(ctx, domain.SessionRecord{SessionID: "r1"}))

	assert.True(t, e.AddSessionTemplate(ctx, domain.TemplateRecord{TemplateID: "tpl2"}))
	assert.True(t, e.AddRole(ctx, domain.RoleRecord{Name: "Auditor", Permissions: []string{"viewSessions"}}))
	assert.False(t, e.AddRole(ctx, domain.RoleRecord{Name: "Admin"}))
}

func TestSetShareListReportsAcceptedAndRejected(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	res, err := e.SetShareList(ctx, domain.TypeSession, "r1", domain.ShareLevelCollaborators,
		[]string{"u2", "ghost"}, []string{"g1", "phantom"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, res.AcceptedUsers)
	assert.Equal(t, []string{"ghost"}, res.RejectedUsers)
	assert.Equal(t, []string{"g1"}, res.AcceptedGroups)
	assert.Equal(t, []string{"phantom"}, res.RejectedGroups)

	users, err := e.SharedPrincipals(domain.TypeSession, "r1", domain.ShareLevelCollaborators, domain.TypeUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, users)

	// Total replacement: a second call with a different set leaves nothing
	// of the first behind.
	res, err = e.SetShareList(ctx, domain.TypeSession, "r1", domain.ShareLevelCollaborators, []string{"u3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, res.AcceptedUsers)

	users, err = e.SharedPrincipals(domain.TypeSession, "r1", domain.ShareLevelCollaborators, domain.TypeUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, users)
}

func TestSetShareListHardFailures(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	_, err := e.SetShareList(ctx, domain.TypeSession, "missing", domain.ShareLevelCollaborators, nil, nil)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = e.SetShareList(ctx, domain.TypeSession, "r1", "publishedTo", nil, nil)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestShareListRemoveIdempotence(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	added, err := e.AddPrincipalToShareList(ctx, domain.TypeUser, "u2", domain.TypeSession, "r1", domain.ShareLevelCollaborators)
	require.NoError(t, err)
	require.True(t, added)

	removed, err := e.RemovePrincipalFromShareList(ctx, domain.TypeUser, "u2", domain.TypeSession, "r1", domain.ShareLevelCollaborators)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = e.RemovePrincipalFromShareList(ctx, domain.TypeUser, "u2", domain.TypeSession, "r1", domain.ShareLevelCollaborators)
	require.NoError(t, err)
	assert.False(t, removed, "second removal reports not present")
}

func TestGroupMembershipMutations(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	assert.False(t, e.AddUserToGroup(ctx, "u2", "g1"), "membership loaded from directory")
	assert.True(t, e.AddUserToGroup(ctx, "u3", "g1"))
	assert.True(t, e.RemoveUserFromGroup(ctx, "u3", "g1"))
	assert.False(t, e.RemoveUserFromGroup(ctx, "u3", "g1"))
	assert.False(t, e.AddUserToGroup(ctx, "u3", "nope"))
}

func TestDeleteDoesNotCascade(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	assert.True(t, e.RemoveGroup(ctx, "g1"))
	assert.False(t, e.RemoveGroup(ctx, "g1"))

	// u2 still carries the stale membership edge; decisions through the
	// removed group simply no longer match.
	ok, err := e.IsAuthorized(ctx, domain.TypeUser, "u2", "createSession")
	require.NoError(t, err)
	assert.True(t, ok, "role-based access unaffected")

	assert.True(t, e.DeleteResource(ctx, domain.TypeSession, "r1"))
	assert.False(t, e.DeleteResource(ctx, domain.TypeSession, "r1"))
	assert.False(t, e.DeleteResource(ctx, domain.TypeUser, "u1"), "users are not resources")
}

func TestRoleLookups(t *testing.T) {
	e := newTestEngine(t, false)

	role, ok := e.UserRole("u1")
	assert.True(t, ok)
	assert.Equal(t, "Admin", role)

	name, ok := e.UserDisplayName("u2")
	assert.True(t, ok)
	assert.Equal(t, "User Two", name)

	_, ok = e.UserRole("stranger")
	assert.False(t, ok)

	assert.Equal(t, []string{"Admin", "User"}, e.Roles())
	assert.Equal(t, "User", e.DefaultUserRole())
}

// Concurrent mutations and decision reads through the engine surface: the
// race detector plus list invariants cover the atomic-visibility guarantee.
func TestConcurrentMutationsAndReads(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	const n = 16
	for i := 0; i < n; i++ {
		require.True(t, e.AddUser(ctx, domain.UserRecord{UserID: userName(i), Role: "User"}))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			added, err := e.AddPrincipalToShareList(ctx, domain.TypeUser, userName(i), domain.TypeSession, "r1", domain.ShareLevelCollaborators)
			if err != nil || !added {
				t.Errorf("add %d: added=%v err=%v", i, added, err)
			}
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			shared, err := e.SharedPrincipals(domain.TypeSession, "r1", domain.ShareLevelCollaborators, domain.TypeUser)
			if err != nil {
				t.Errorf("read: %v", err)
				return
			}
			seen := map[string]bool{}
			for _, id := range shared {
				if seen[id] {
					t.Errorf("duplicate %s", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	shared, err := e.SharedPrincipals(domain.TypeSession, "r1", domain.ShareLevelCollaborators, domain.TypeUser)
	require.NoError(t, err)
	assert.Len(t, shared, n)
}

func userName(i int) string {
	return "worker" + string(rune('a'+i))
}
