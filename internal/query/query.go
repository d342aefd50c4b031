// Package query builds parameterized SELECT statements from a list of
// optional predicates.
//
// Column names come from code, never from user input; every value is bound
// as a positional parameter ($1, $2, ...) in the order predicates were added.
package query

import (
	"fmt"
	"strings"
)

// Op is a comparison operator supported by the builder.
type Op int

const (
	// Eq matches values exactly.
	Eq Op = iota
	// Contains matches a substring with LIKE.
	Contains
)

// Predicate is a single "<column> <op> <value>" condition.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Builder accumulates predicates on top of an unconditional base query.
type Builder struct {
	base    string
	preds   []Predicate
	orderBy string
}

// Select starts a builder from the given base query, which must not carry a WHERE clause.
func Select(base string) *Builder {
	return &Builder{base: strings.TrimSpace(base)}
}

// Where appends a predicate unconditionally.
func (b *Builder) Where(column string, op Op, value any) *Builder {
	b.preds = append(b.preds, Predicate{Column: column, Op: op, Value: value})
	return b
}

// WhereIf appends a predicate only when value is Present.
func (b *Builder) WhereIf(column string, op Op, value string) *Builder {
	if !Present(value) {
		return b
	}
	return b.Where(column, op, strings.TrimSpace(value))
}

// OrderBy sets the ORDER BY expression.
func (b *Builder) OrderBy(expr string) *Builder {
	b.orderBy = expr
	return b
}

// Predicates returns a copy of the accumulated predicates.
func (b *Builder) Predicates() []Predicate {
	out := make([]Predicate, len(b.preds))
	copy(out, b.preds)
	return out
}

// Build reduces the predicates into a statement and its bound arguments.
func (b *Builder) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString(b.base)

	args := make([]any, 0, len(b.preds))
	for i, p := range b.preds {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		n := len(args) + 1
		switch p.Op {
		case Contains:
			fmt.Fprintf(&sb, `%s LIKE $%d ESCAPE '\'`, p.Column, n)
			args = append(args, "%"+escapeLike(fmt.Sprint(p.Value))+"%")
		default:
			fmt.Fprintf(&sb, "%s = $%d", p.Column, n)
			args = append(args, p.Value)
		}
	}

	if b.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.orderBy)
	}
	return sb.String(), args
}

var allSentinels = []string{"tutti", "tutte", "all"}

// Present reports whether a filter value constrains the result: it must be
// non-empty after trimming and must not be one of the "all" sentinels.
func Present(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	for _, s := range allSentinels {
		if strings.EqualFold(v, s) {
			return false
		}
	}
	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
