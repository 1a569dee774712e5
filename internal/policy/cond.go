package policy

import (
	"fmt"
	"strings"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

// Condition expression evaluation. Conditions are boolean expressions over
// the request's principal, action, and resource: attribute paths, id
// literals, `in` (transitive), `==`/`!=`, `has`, `!`, `&&`, `||`, and
// parentheses. Dereferencing an absent entity or attribute yields an
// undefined value; any comparison over undefined is false.

type tokKind int

const (
	tokIdent tokKind = iota
	tokString
	tokOp // == != && || ! ( ) . :: [ ] ,
	tokEOF
)

type token struct {
	kind tokKind
	text string
}

type condParser struct {
	toks            []token
	pos             int
	caseInsensitive bool
}

func newCondParser(src string, caseInsensitive bool) *condParser {
	return &condParser{toks: tokenize(src), caseInsensitive: caseInsensitive}
}

func tokenize(src string) []token {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '"':
			j := i + 1
			for j < len(src) && src[j] != '"' {
				j++
			}
			toks = append(toks, token{tokString, src[i+1 : min(j, len(src))]})
			i = j + 1
		case isWordByte(c):
			j := i
			for j < len(src) && isWordByte(src[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, src[i:j]})
			i = j
		case strings.HasPrefix(src[i:], "=="), strings.HasPrefix(src[i:], "!="),
			strings.HasPrefix(src[i:], "&&"), strings.HasPrefix(src[i:], "||"),
			strings.HasPrefix(src[i:], "::"):
			toks = append(toks, token{tokOp, src[i : i+2]})
			i += 2
		default:
			toks = append(toks, token{tokOp, string(c)})
			i++
		}
	}
	return append(toks, token{kind: tokEOF})
}

func (p *condParser) peek() token  { return p.toks[p.pos] }
func (p *condParser) next() token  { t := p.toks[p.pos]; p.pos++; return t }
func (p *condParser) atEnd() bool  { return p.peek().kind == tokEOF }
func (p *condParser) rest() string {
	var parts []string
	for _, t := range p.toks[p.pos:] {
		if t.kind != tokEOF {
			parts = append(parts, t.text)
		}
	}
	return strings.Join(parts, " ")
}

func (p *condParser) accept(kind tokKind, text string) bool {
	if t := p.peek(); t.kind == kind && t.text == text {
		p.pos++
		return true
	}
	return false
}

// parseExpr := and ("||" and)*
func (p *condParser) parseExpr(req domain.DecisionRequest, snap domain.EntitySnapshot) (bool, error) {
	left, err := p.parseAnd(req, snap)
	if err != nil {
		return false, err
	}
	for p.accept(tokOp, "||") {
		right, err := p.parseAnd(req, snap)
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

// parseAnd := unary ("&&" unary)*
func (p *condParser) parseAnd(req domain.DecisionRequest, snap domain.EntitySnapshot) (bool, error) {
	left, err := p.parseUnary(req, snap)
	if err != nil {
		return false, err
	}
	for p.accept(tokOp, "&&") {
		right, err := p.parseUnary(req, snap)
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

// parseUnary := "!" unary | "(" expr ")" | comparison
func (p *condParser) parseUnary(req domain.DecisionRequest, snap domain.EntitySnapshot) (bool, error) {
	if p.accept(tokOp, "!") {
		inner, err := p.parseUnary(req, snap)
		return !inner, err
	}
	if p.accept(tokOp, "(") {
		inner, err := p.parseExpr(req, snap)
		if err != nil {
			return false, err
		}
		if !p.accept(tokOp, ")") {
			return false, fmt.Errorf("expected ) in condition")
		}
		return inner, nil
	}
	return p.parseComparison(req, snap)
}

// parseComparison := operand (("==" | "!=") operand | "in" operand | "has" ident)?
func (p *condParser) parseComparison(req domain.DecisionRequest, snap domain.EntitySnapshot) (bool, error) {
	left, err := p.parseOperand(req, snap)
	if err != nil {
		return false, err
	}

	switch {
	case p.accept(tokOp, "=="):
		right, err := p.parseOperand(req, snap)
		if err != nil {
			return false, err
		}
		return equalValues(left, right), nil

	case p.accept(tokOp, "!="):
		right, err := p.parseOperand(req, snap)
		if err != nil {
			return false, err
		}
		if left.kind == cvUndefined || right.kind == cvUndefined {
			return false, nil
		}
		return !equalValues(left, right), nil

	case p.peek().kind == tokIdent && p.peek().text == "in":
		p.next()
		right, err := p.parseOperand(req, snap)
		if err != nil {
			return false, err
		}
		return valueIn(left, right, snap), nil

	case p.peek().kind == tokIdent && p.peek().text == "has":
		p.next()
		attr := p.next()
		if attr.kind != tokIdent {
			return false, fmt.Errorf("expected attribute name after has, got %q", attr.text)
		}
		return valueHas(left, attr.text, snap), nil

	default:
		// Bare term: must be boolean-valued.
		switch left.kind {
		case cvBool:
			return left.b, nil
		case cvUndefined:
			return false, nil
		default:
			return false, fmt.Errorf("condition term is not boolean")
		}
	}
}

type cvKind int

const (
	cvEntity cvKind = iota
	cvIDList
	cvString
	cvBool
	cvUndefined
)

type condValue struct {
	kind cvKind
	id   domain.EntityID
	ids  []domain.EntityID
	str  string
	b    bool
}

var undefined = condValue{kind: cvUndefined}

// parseOperand := ("principal"|"action"|"resource") ("." ident)*
//              | Type::"id" | "string" | true | false | "[" operand,* "]"
func (p *condParser) parseOperand(req domain.DecisionRequest, snap domain.EntitySnapshot) (condValue, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return condValue{kind: cvString, str: t.text}, nil

	case tokOp:
		if t.text != "[" {
			return undefined, fmt.Errorf("unexpected %q in condition", t.text)
		}
		var ids []domain.EntityID
		for !p.accept(tokOp, "]") {
			item, err := p.parseOperand(req, snap)
			if err != nil {
				return undefined, err
			}
			if item.kind != cvEntity {
				return undefined, fmt.Errorf("list elements must be entity literals")
			}
			ids = append(ids, item.id)
			p.accept(tokOp, ",")
		}
		return condValue{kind: cvIDList, ids: ids}, nil

	case tokIdent:
		switch t.text {
		case "true":
			return condValue{kind: cvBool, b: true}, nil
		case "false":
			return condValue{kind: cvBool, b: false}, nil
		}

		// Entity literal: Type::"id"
		if p.accept(tokOp, "::") {
			idTok := p.next()
			if idTok.kind != tokString {
				return undefined, fmt.Errorf("expected quoted id after %s::", t.text)
			}
			et, ok := domain.ParseEntityType(t.text)
			if !ok {
				return undefined, fmt.Errorf("unknown entity type %q", t.text)
			}
			return condValue{kind: cvEntity, id: domain.NewEntityID(et, idTok.text, p.caseInsensitive)}, nil
		}

		var base condValue
		switch t.text {
		case "principal":
			base = condValue{kind: cvEntity, id: req.Principal}
		case "action":
			base = condValue{kind: cvEntity, id: req.Action}
		case "resource":
			base = condValue{kind: cvEntity, id: req.Resource}
		default:
			return undefined, fmt.Errorf("unknown identifier %q in condition", t.text)
		}

		for p.accept(tokOp, ".") {
			attr := p.next()
			if attr.kind != tokIdent {
				return undefined, fmt.Errorf("expected attribute name after '.', got %q", attr.text)
			}
			base = attrStep(base, attr.text, snap)
		}
		return base, nil

	default:
		return undefined, fmt.Errorf("unexpected end of condition")
	}
}

// attrStep dereferences one attribute access. A single-element id list (a
// role or owner edge) is transparently dereferenced so paths like
// principal.role.permissions work.
func attrStep(v condValue, attr string, snap domain.EntitySnapshot) condValue {
	id, ok := derefEntity(v)
	if !ok {
		return undefined
	}
	e, ok := snap.Get(id)
	if !ok {
		return undefined
	}
	av, ok := e.Attrs[attr]
	if !ok {
		return undefined
	}
	switch av.Kind {
	case domain.AttrString:
		return condValue{kind: cvString, str: av.Str}
	case domain.AttrBool:
		return condValue{kind: cvBool, b: av.Bool}
	case domain.AttrIDList:
		return condValue{kind: cvIDList, ids: av.IDs}
	}
	return undefined
}

func derefEntity(v condValue) (domain.EntityID, bool) {
	switch v.kind {
	case cvEntity:
		return v.id, true
	case cvIDList:
		if len(v.ids) == 1 {
			return v.ids[0], true
		}
	}
	return domain.EntityID{}, false
}

func equalValues(a, b condValue) bool {
	if a.kind == cvUndefined || b.kind == cvUndefined {
		return false
	}
	if aid, ok := derefEntity(a); ok {
		if bid, ok := derefEntity(b); ok {
			return aid == bid
		}
		return false
	}
	switch {
	case a.kind == cvString && b.kind == cvString:
		return a.str == b.str
	case a.kind == cvBool && b.kind == cvBool:
		return a.b == b.b
	}
	return false
}

// valueIn implements `a in b`: membership of entity a in entity or id-list
// b, transitively through parent edges.
func valueIn(a, b condValue, snap domain.EntitySnapshot) bool {
	id, ok := derefEntity(a)
	if !ok {
		return false
	}
	switch b.kind {
	case cvEntity:
		return inHierarchy(id, b.id, snap)
	case cvIDList:
		for _, target := range b.ids {
			if inHierarchy(id, target, snap) {
				return true
			}
		}
	}
	return false
}

func valueHas(v condValue, attr string, snap domain.EntitySnapshot) bool {
	id, ok := derefEntity(v)
	if !ok {
		return false
	}
	e, ok := snap.Get(id)
	if !ok {
		return false
	}
	av, ok := e.Attrs[attr]
	if !ok {
		return false
	}
	// An empty edge list reads as "attribute absent".
	if av.Kind == domain.AttrIDList && len(av.IDs) == 0 {
		return false
	}
	return true
}
