package policy

import (
	"fmt"
	"strings"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

// Evaluator is the default rule evaluator. It matches a decision request
// against every statement in a set: any matching forbid denies, otherwise
// any matching permit allows, otherwise the decision is deny.
//
// Head constraints: principal (any | == Type::"id" | in Group::"id"),
// action (any | == Action::"name" | in [Action::"…", …]),
// resource (any | == Type::"id" | is Type).
//
// Condition atoms: `a in b` (transitive through parent edges), `a == b`,
// `a != b`, `a has attr`, combined with !, &&, || and parentheses. A
// condition that dereferences an absent entity or attribute evaluates to
// false rather than failing the whole decision; malformed policy text is an
// error, never a silent allow or deny.
type Evaluator struct {
	caseInsensitive bool
}

// NewEvaluator creates the default evaluator. caseInsensitive must match the
// entity store's id normalization mode so id literals in policy text compare
// consistently.
func NewEvaluator(caseInsensitive bool) *Evaluator {
	return &Evaluator{caseInsensitive: caseInsensitive}
}

// Evaluate answers one decision request against the rule set.
func (e *Evaluator) Evaluate(req domain.DecisionRequest, snap domain.EntitySnapshot, rules *Set) (domain.Decision, error) {
	if rules == nil {
		return domain.Decision{}, fmt.Errorf("no policy set loaded")
	}

	var permits []string
	for _, stmt := range rules.Statements {
		matched, err := e.matches(stmt, req, snap)
		if err != nil {
			return domain.Decision{}, fmt.Errorf("%s: %w", stmt.ID, err)
		}
		if !matched {
			continue
		}
		if stmt.Effect == EffectForbid {
			// Forbid takes precedence over any permit.
			return domain.Decision{Allowed: false, Reasons: []string{stmt.ID}}, nil
		}
		permits = append(permits, stmt.ID)
	}

	if len(permits) > 0 {
		return domain.Decision{Allowed: true, Reasons: permits}, nil
	}
	return domain.Decision{Allowed: false}, nil
}

func (e *Evaluator) matches(stmt Statement, req domain.DecisionRequest, snap domain.EntitySnapshot) (bool, error) {
	ok, err := e.matchHead(stmt.Head, req, snap)
	if err != nil || !ok {
		return false, err
	}
	if stmt.Condition == "" {
		return true, nil
	}

	p := newCondParser(stmt.Condition, e.caseInsensitive)
	res, err := p.parseExpr(req, snap)
	if err != nil {
		return false, err
	}
	if !p.atEnd() {
		return false, fmt.Errorf("unexpected trailing input in condition: %q", p.rest())
	}
	return res, nil
}

// matchHead evaluates the three comma-separated scope constraints.
func (e *Evaluator) matchHead(head string, req domain.DecisionRequest, snap domain.EntitySnapshot) (bool, error) {
	parts := splitTopLevel(head)
	if len(parts) != 3 {
		return false, fmt.Errorf("head clause must have principal, action, resource constraints, got %d parts", len(parts))
	}

	for i, want := range []struct {
		name string
		id   domain.EntityID
	}{
		{"principal", req.Principal},
		{"action", req.Action},
		{"resource", req.Resource},
	} {
		ok, err := e.matchConstraint(strings.TrimSpace(parts[i]), want.name, want.id, snap)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (e *Evaluator) matchConstraint(constraint, name string, subject domain.EntityID, snap domain.EntitySnapshot) (bool, error) {
	if constraint == name {
		return true, nil // unconstrained
	}
	rest, ok := strings.CutPrefix(constraint, name)
	if !ok {
		return false, fmt.Errorf("constraint %q does not start with %s", constraint, name)
	}
	rest = strings.TrimSpace(rest)

	switch {
	case strings.HasPrefix(rest, "=="):
		target, err := e.parseIDLiteral(strings.TrimSpace(rest[2:]))
		if err != nil {
			return false, err
		}
		return subject == target, nil

	case strings.HasPrefix(rest, "in"):
		arg := strings.TrimSpace(rest[2:])
		if strings.HasPrefix(arg, "[") {
			if !strings.HasSuffix(arg, "]") {
				return false, fmt.Errorf("unterminated list in constraint %q", constraint)
			}
			for _, item := range splitTopLevel(arg[1 : len(arg)-1]) {
				target, err := e.parseIDLiteral(strings.TrimSpace(item))
				if err != nil {
					return false, err
				}
				if inHierarchy(subject, target, snap) {
					return true, nil
				}
			}
			return false, nil
		}
		target, err := e.parseIDLiteral(arg)
		if err != nil {
			return false, err
		}
		return inHierarchy(subject, target, snap), nil

	case strings.HasPrefix(rest, "is"):
		typeName := strings.TrimSpace(rest[2:])
		t, ok := domain.ParseEntityType(typeName)
		if !ok {
			return false, fmt.Errorf("unknown entity type %q in constraint", typeName)
		}
		return subject.Type == t, nil

	default:
		return false, fmt.Errorf("unsupported constraint %q", constraint)
	}
}

// parseIDLiteral parses `Type::"id"` into a normalized EntityID.
func (e *Evaluator) parseIDLiteral(s string) (domain.EntityID, error) {
	sep := strings.Index(s, "::")
	if sep < 0 {
		return domain.EntityID{}, fmt.Errorf("expected Type::\"id\" literal, got %q", s)
	}
	t, ok := domain.ParseEntityType(strings.TrimSpace(s[:sep]))
	if !ok {
		return domain.EntityID{}, fmt.Errorf("unknown entity type in literal %q", s)
	}
	quoted := strings.TrimSpace(s[sep+2:])
	if len(quoted) < 2 || quoted[0] != '"' || quoted[len(quoted)-1] != '"' {
		return domain.EntityID{}, fmt.Errorf("id in literal %q must be quoted", s)
	}
	return domain.NewEntityID(t, quoted[1:len(quoted)-1], e.caseInsensitive), nil
}

// inHierarchy reports whether a is b or b is reachable from a through parent
// edges, transitively.
func inHierarchy(a, b domain.EntityID, snap domain.EntitySnapshot) bool {
	if a == b {
		return true
	}
	visited := map[domain.EntityID]bool{a: true}
	queue := []domain.EntityID{a}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, p := range snap.ParentsOf(current) {
			if p == b {
				return true
			}
			if !visited[p] {
				visited[p] = true
				queue = append(queue, p)
			}
		}
	}
	return false
}

// splitTopLevel splits on commas that are not nested inside brackets or
// string literals.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			inString = !inString
		case inString:
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
