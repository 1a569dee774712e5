// Package service implements the authorization decision engine: the entity
// graph, its query and mutation surface, and the loader that rebuilds the
// graph from the external systems of record.
package service

import (
	"log/slog"
	"sync"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
	"github.com/aws/dcv-access-console-sub000/internal/policy"
	"github.com/aws/dcv-access-console-sub000/internal/store"
)

// Evaluator is the policy-evaluation capability the engine delegates rule
// matching to. Tests substitute a deterministic fake.
type Evaluator interface {
	Evaluate(req domain.DecisionRequest, snap domain.EntitySnapshot, rules *policy.Set) (domain.Decision, error)
}

// Collaborators bundles the external systems of record the loader reads.
type Collaborators struct {
	Users     domain.UserDirectory
	Groups    domain.GroupDirectory
	Templates domain.SessionTemplateDirectory
	Sessions  domain.SessionDirectory
	Policies  domain.PolicySource
	Roles     domain.RoleSource
}

// Options configures engine behavior.
type Options struct {
	// CaseInsensitiveIDs lowercases User and Group identifiers at every
	// insert, lookup, and comparison site.
	CaseInsensitiveIDs bool
	// DefaultRole is reported for users without a role edge.
	DefaultRole string
	Logger      *slog.Logger
}

// graph is the unit of atomic replacement: an entity arena plus the policy
// set it was loaded with. Reload builds a fresh graph privately and swaps
// the pointer under the engine's write lock, so no decision is ever served
// against a mixed old/new graph.
type graph struct {
	store *store.Store
	rules *policy.Set
}

// Engine is the authorization decision engine. All reads and single-entity
// mutations go against the current graph; LoadEntities replaces it whole.
type Engine struct {
	mu    sync.RWMutex
	graph *graph

	eval            Evaluator
	collab          Collaborators
	caseInsensitive bool
	defaultRole     string
	logger          *slog.Logger
}

// NewEngine creates an engine with an empty graph. Queries against the empty
// graph deny by default; callers run LoadEntities before serving.
func NewEngine(collab Collaborators, eval Evaluator, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaultRole := opts.DefaultRole
	if defaultRole == "" {
		defaultRole = "User"
	}
	return &Engine{
		graph: &graph{
			store: store.New(opts.CaseInsensitiveIDs),
			rules: &policy.Set{},
		},
		eval:            eval,
		collab:          collab,
		caseInsensitive: opts.CaseInsensitiveIDs,
		defaultRole:     defaultRole,
		logger:          logger.With("component", "authz-engine"),
	}
}

// currentGraph returns the graph pointer under the shared lock. The stores
// themselves are internally synchronized, so holding the pointer after the
// lock is released is safe: a concurrent reload swaps the pointer but never
// mutates a published graph's identity.
func (e *Engine) currentGraph() *graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

func (e *Engine) swapGraph(g *graph) {
	e.mu.Lock()
	e.graph = g
	e.mu.Unlock()
}

// newID builds an id normalized for the engine's case mode.
func (e *Engine) newID(t domain.EntityType, rawID string) domain.EntityID {
	return domain.NewEntityID(t, rawID, e.caseInsensitive)
}
