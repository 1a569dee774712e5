// Package policy parses the console's declarative permit/forbid rule source
// and evaluates authorization decisions against an entity snapshot.
//
// The rule grammar is:
//
//	(permit|forbid) ( <head> ) [when { <condition> }] ;
//
// The head clause never contains a closing parenthesis; the optional
// condition clause may contain arbitrarily nested braces, which are balanced
// rather than scanned to the first closer.
package policy

import (
	"fmt"
	"strings"
)

// Effect is the outcome a rule contributes when it matches.
type Effect string

const (
	EffectPermit Effect = "permit"
	EffectForbid Effect = "forbid"
)

// Statement is one parsed rule block. ID is a synthetic sequential name
// ("policy0", "policy1", …) used only for diagnostics.
type Statement struct {
	ID        string
	Effect    Effect
	Head      string // text between the head parentheses
	Condition string // text between the when braces, empty when absent
}

// Set is a parsed collection of rules. A Set is immutable after Parse; a
// reload builds a fresh one.
type Set struct {
	Statements []Statement
}

// Parse extracts all rule blocks from the raw policy source. Malformed
// source yields an error and no partial set.
func Parse(src string) (*Set, error) {
	s := &scanner{src: stripComments(src)}
	set := &Set{}

	for {
		s.skipSpace()
		if s.done() {
			return set, nil
		}

		word := s.readWord()
		var effect Effect
		switch word {
		case "permit":
			effect = EffectPermit
		case "forbid":
			effect = EffectForbid
		default:
			return nil, fmt.Errorf("rule %d: expected permit or forbid, got %q", len(set.Statements), word)
		}

		s.skipSpace()
		if !s.consume('(') {
			return nil, fmt.Errorf("rule %d: expected ( after %s", len(set.Statements), effect)
		}
		head, ok := s.readUntil(')')
		if !ok {
			return nil, fmt.Errorf("rule %d: unterminated head clause", len(set.Statements))
		}

		s.skipSpace()
		condition := ""
		if s.peekWord() == "when" {
			s.readWord()
			s.skipSpace()
			if !s.consume('{') {
				return nil, fmt.Errorf("rule %d: expected { after when", len(set.Statements))
			}
			body, ok := s.readBalanced('{', '}')
			if !ok {
				return nil, fmt.Errorf("rule %d: unbalanced braces in condition clause", len(set.Statements))
			}
			condition = strings.TrimSpace(body)
		}

		s.skipSpace()
		if !s.consume(';') {
			return nil, fmt.Errorf("rule %d: expected ; to terminate rule", len(set.Statements))
		}

		set.Statements = append(set.Statements, Statement{
			ID:        fmt.Sprintf("policy%d", len(set.Statements)),
			Effect:    effect,
			Head:      strings.TrimSpace(head),
			Condition: condition,
		})
	}
}

// stripComments removes // line comments outside of string literals.
func stripComments(src string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '"' {
			inString = !inString
		}
		if !inString && c == '/' && i+1 < len(src) && src[i+1] == '/' {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			b.WriteByte('\n')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) consume(c byte) bool {
	if s.pos < len(s.src) && s.src[s.pos] == c {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) readWord() string {
	start := s.pos
	for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

func (s *scanner) peekWord() string {
	save := s.pos
	w := s.readWord()
	s.pos = save
	return w
}

// readUntil consumes up to and including the first occurrence of c,
// returning the text before it.
func (s *scanner) readUntil(c byte) (string, bool) {
	start := s.pos
	for s.pos < len(s.src) {
		if s.src[s.pos] == c {
			text := s.src[start:s.pos]
			s.pos++
			return text, true
		}
		s.pos++
	}
	return "", false
}

// readBalanced consumes until the closer matching the already-consumed
// opener, counting nesting depth. String literals are opaque to the count.
func (s *scanner) readBalanced(open, close byte) (string, bool) {
	start := s.pos
	depth := 1
	inString := false
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '"':
			inString = !inString
		case !inString && c == open:
			depth++
		case !inString && c == close:
			depth--
			if depth == 0 {
				text := s.src[start:s.pos]
				s.pos++
				return text, true
			}
		}
		s.pos++
	}
	return "", false
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
