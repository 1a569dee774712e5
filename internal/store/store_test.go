package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

func user(s *Store, id string) *domain.Entity {
	return domain.NewEntity(s.NewID(domain.TypeUser, id))
}

func session(s *Store, id string) *domain.Entity {
	return domain.NewEntity(s.NewID(domain.TypeSession, id))
}

func TestPutDuplicateIsNoOp(t *testing.T) {
	s := New(false)

	first := user(s, "alice")
	first.Attrs[domain.AttrDisplayName] = domain.StringValue("Alice")
	require.True(t, s.Put(first))

	second := user(s, "alice")
	second.Attrs[domain.AttrDisplayName] = domain.StringValue("Impostor")
	assert.False(t, s.Put(second))

	got, ok := s.Get(s.NewID(domain.TypeUser, "alice"))
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Attrs[domain.AttrDisplayName].Str)
}

func TestGetReturnsInsertedAttributesAndEdges(t *testing.T) {
	s := New(false)

	role := domain.NewEntity(s.NewID(domain.TypeRole, "Admin"))
	require.True(t, s.Put(role))

	u := user(s, "alice")
	u.Attrs[domain.AttrRole] = domain.IDListValue(s.NewID(domain.TypeRole, "Admin"))
	u.Attrs[domain.AttrLoginName] = domain.StringValue("alice@example.com")
	u.Attrs[domain.AttrDisabled] = domain.BoolValue(false)
	require.True(t, s.Put(u))

	got, ok := s.Get(u.ID)
	require.True(t, ok)
	assert.Equal(t, u.Attrs, got.Attrs)
	assert.Empty(t, got.Parents)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(false)
	require.True(t, s.Put(user(s, "alice")))

	got, _ := s.Get(s.NewID(domain.TypeUser, "alice"))
	got.Attrs["tampered"] = domain.StringValue("yes")

	fresh, _ := s.Get(s.NewID(domain.TypeUser, "alice"))
	assert.NotContains(t, fresh.Attrs, "tampered")
}

func TestCaseInsensitiveUserAndGroupIDs(t *testing.T) {
	s := New(true)

	require.True(t, s.Put(user(s, "Alice")))
	assert.True(t, s.Contains(domain.EntityID{Type: domain.TypeUser, ID: "alice"}))
	assert.True(t, s.Contains(domain.EntityID{Type: domain.TypeUser, ID: "ALICE"}))

	// Session ids are never case-normalized.
	require.True(t, s.Put(session(s, "Sess-1")))
	assert.False(t, s.Contains(domain.EntityID{Type: domain.TypeSession, ID: "sess-1"}))
	assert.True(t, s.Contains(domain.EntityID{Type: domain.TypeSession, ID: "Sess-1"}))
}

func TestParentEdgesRequireBothEndpoints(t *testing.T) {
	s := New(false)
	require.True(t, s.Put(user(s, "u1")))

	g1 := s.NewID(domain.TypeGroup, "g1")
	assert.False(t, s.AddParentEdge(s.NewID(domain.TypeUser, "u1"), g1))

	require.True(t, s.Put(domain.NewEntity(g1)))
	assert.True(t, s.AddParentEdge(s.NewID(domain.TypeUser, "u1"), g1))
	assert.False(t, s.AddParentEdge(s.NewID(domain.TypeUser, "u1"), g1), "duplicate edge")

	assert.True(t, s.RemoveParentEdge(s.NewID(domain.TypeUser, "u1"), g1))
	assert.False(t, s.RemoveParentEdge(s.NewID(domain.TypeUser, "u1"), g1), "edge already gone")
}

func TestShareListLevelValidation(t *testing.T) {
	s := New(false)
	require.True(t, s.Put(session(s, "s1")))

	_, ok := s.ShareList(s.NewID(domain.TypeSession, "s1"), "publishedTo")
	assert.False(t, ok, "publishedTo is not a session share level")

	ids, ok := s.ShareList(s.NewID(domain.TypeSession, "s1"), domain.ShareLevelCollaborators)
	assert.True(t, ok)
	assert.Empty(t, ids, "empty list is distinct from no-such-level")
}

func TestSetShareListReplacesInFull(t *testing.T) {
	s := New(false)
	require.True(t, s.Put(session(s, "s1")))
	require.True(t, s.Put(user(s, "u1")))
	require.True(t, s.Put(user(s, "u2")))

	res := s.NewID(domain.TypeSession, "s1")
	require.True(t, s.SetShareList(res, domain.ShareLevelCollaborators, []domain.EntityID{s.NewID(domain.TypeUser, "u1")}))
	require.True(t, s.SetShareList(res, domain.ShareLevelCollaborators, []domain.EntityID{s.NewID(domain.TypeUser, "u2")}))

	ids, ok := s.ShareList(res, domain.ShareLevelCollaborators)
	require.True(t, ok)
	assert.Equal(t, []domain.EntityID{s.NewID(domain.TypeUser, "u2")}, ids)
}

func TestAddToShareListIdempotence(t *testing.T) {
	s := New(false)
	require.True(t, s.Put(session(s, "s1")))
	require.True(t, s.Put(user(s, "u1")))

	res := s.NewID(domain.TypeSession, "s1")
	u1 := s.NewID(domain.TypeUser, "u1")

	added, err := s.AddToShareList(res, domain.ShareLevelCollaborators, u1)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddToShareList(res, domain.ShareLevelCollaborators, u1)
	require.NoError(t, err)
	assert.False(t, added, "already shared")

	removed, err := s.RemoveFromShareList(res, domain.ShareLevelCollaborators, u1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveFromShareList(res, domain.ShareLevelCollaborators, u1)
	require.NoError(t, err)
	assert.False(t, removed, "not present")
}

func TestAddToShareListRequiresExistingPrincipal(t *testing.T) {
	s := New(false)
	require.True(t, s.Put(session(s, "s1")))

	_, err := s.AddToShareList(s.NewID(domain.TypeSession, "s1"), domain.ShareLevelCollaborators, s.NewID(domain.TypeUser, "ghost"))
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRemoveDoesNotCascadeEdges(t *testing.T) {
	s := New(false)
	require.True(t, s.Put(user(s, "u1")))
	g1 := s.NewID(domain.TypeGroup, "g1")
	require.True(t, s.Put(domain.NewEntity(g1)))
	require.True(t, s.AddParentEdge(s.NewID(domain.TypeUser, "u1"), g1))

	require.True(t, s.Remove(g1))

	// The member still carries the stale edge; it is harmless dangling state.
	parents := s.ParentsOf(s.NewID(domain.TypeUser, "u1"))
	assert.Equal(t, []domain.EntityID{g1}, parents)
	assert.False(t, s.Contains(g1))
}

// Concurrent single-principal writers against one resource, interleaved with
// readers: no duplicates, no drops, and every observed list is a valid
// prefix-consistent state.
func TestConcurrentShareListMutation(t *testing.T) {
	s := New(false)
	require.True(t, s.Put(session(s, "s1")))
	res := s.NewID(domain.TypeSession, "s1")

	const writers = 32
	const readers = 8

	principals := make([]domain.EntityID, writers)
	for i := range principals {
		id := s.NewID(domain.TypeUser, "u"+string(rune('A'+i%26))+string(rune('0'+i/26)))
		principals[i] = id
		require.True(t, s.Put(domain.NewEntity(id)))
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				ids, ok := s.ShareList(res, domain.ShareLevelCollaborators)
				if !ok {
					t.Error("share level vanished during reads")
					return
				}
				seen := make(map[domain.EntityID]bool, len(ids))
				for _, id := range ids {
					if seen[id] {
						t.Errorf("duplicate entry %s observed", id)
						return
					}
					seen[id] = true
				}
			}
		}()
	}

	var writerWG sync.WaitGroup
	for _, p := range principals {
		writerWG.Add(1)
		go func(p domain.EntityID) {
			defer writerWG.Done()
			added, err := s.AddToShareList(res, domain.ShareLevelCollaborators, p)
			if err != nil || !added {
				t.Errorf("add %s: added=%v err=%v", p, added, err)
			}
		}(p)
	}
	writerWG.Wait()
	close(stop)
	wg.Wait()

	ids, ok := s.ShareList(res, domain.ShareLevelCollaborators)
	require.True(t, ok)
	assert.Len(t, ids, writers, "every writer's entry must survive")
}
