package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
	"github.com/aws/dcv-access-console-sub000/internal/policy"
)

// page splits items into fixed-size pages driven by integer continuation
// tokens, exercising the opaque-token protocol end to end.
func page[T any](items []T, token string, size int) ([]T, string, error) {
	offset := 0
	if token != "" {
		var err error
		offset, err = strconv.Atoi(token)
		if err != nil {
			return nil, "", fmt.Errorf("bad token %q", token)
		}
	}
	if offset >= len(items) {
		return nil, "", nil
	}
	end := offset + size
	if end > len(items) {
		end = len(items)
	}
	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[offset:end], next, nil
}

type fakeUserDir struct {
	users []domain.UserRecord
	err   error
}

func (f *fakeUserDir) Describe(_ context.Context, token string) ([]domain.UserRecord, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return page(f.users, token, 2)
}

func (f *fakeUserDir) Create(context.Context, string, string, string) (bool, error) {
	return true, nil
}

type fakeGroupDir struct {
	groups        []domain.GroupRecord
	memberships   []domain.Membership
	err           error
	membershipErr error
}

func (f *fakeGroupDir) Describe(_ context.Context, token string) ([]domain.GroupRecord, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return page(f.groups, token, 2)
}

func (f *fakeGroupDir) ListMemberships(context.Context) ([]domain.Membership, error) {
	if f.membershipErr != nil {
		return nil, f.membershipErr
	}
	return f.memberships, nil
}

type sharedWith struct {
	users  []string
	groups []string
}

type fakeTemplateDir struct {
	templates []domain.TemplateRecord
	shared    map[string]sharedWith
	err       error
}

func (f *fakeTemplateDir) Describe(_ context.Context, token string) ([]domain.TemplateRecord, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return page(f.templates, token, 2)
}

func (f *fakeTemplateDir) UsersSharedWith(_ context.Context, id string) ([]string, error) {
	return f.shared[id].users, nil
}

func (f *fakeTemplateDir) GroupsSharedWith(_ context.Context, id string) ([]string, error) {
	return f.shared[id].groups, nil
}

func (f *fakeTemplateDir) Publish(_ context.Context, _ string, userIDs, groupIDs []string) (domain.PublishResult, error) {
	return domain.PublishResult{AcceptedUsers: userIDs, AcceptedGroups: groupIDs}, nil
}

type fakeSessionDir struct {
	sessions []domain.SessionRecord
	err      error
}

func (f *fakeSessionDir) DescribeSessions(_ context.Context, token string) ([]domain.SessionRecord, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return page(f.sessions, token, 2)
}

type fakePolicySource struct {
	text string
	err  error
}

func (f *fakePolicySource) Read(context.Context) (string, error) {
	return f.text, f.err
}

type fakeRoleSource struct {
	roles []domain.RoleRecord
	err   error
}

func (f *fakeRoleSource) Roles(context.Context) ([]domain.RoleRecord, error) {
	return f.roles, f.err
}

// fakeEvaluator substitutes a deterministic decision for the real rule
// matcher, per the evaluator port contract.
type fakeEvaluator struct {
	decision domain.Decision
	err      error
	lastReq  domain.DecisionRequest
}

func (f *fakeEvaluator) Evaluate(req domain.DecisionRequest, _ domain.EntitySnapshot, _ *policy.Set) (domain.Decision, error) {
	f.lastReq = req
	return f.decision, f.err
}
