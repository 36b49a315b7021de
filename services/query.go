package services

import (
	"strconv"
	"strings"
)

// Predicate is a SQL boolean expression written with '?' placeholders.
// Placeholders are renumbered to $n when the final query is built.
type Predicate struct {
	Clause string
	Args   []any
}

func where(clause string, args ...any) Predicate {
	return Predicate{Clause: clause, Args: args}
}

// And joins predicates; an empty list yields an empty clause.
func And(preds ...Predicate) Predicate {
	parts := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		if p.Clause == "" {
			continue
		}
		parts = append(parts, "("+p.Clause+")")
		args = append(args, p.Args...)
	}
	return Predicate{Clause: strings.Join(parts, " AND "), Args: args}
}

// build appends "WHERE <pred>" to base and numbers placeholders starting
// after the arguments already bound in base.
func build(base string, pred Predicate, tail string, bound ...any) (string, []any) {
	var sb strings.Builder
	sb.WriteString(base)
	if pred.Clause != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(pred.Clause)
	}
	if tail != "" {
		sb.WriteString(" ")
		sb.WriteString(tail)
	}
	args := append(append([]any{}, bound...), pred.Args...)
	return rebind(sb.String(), len(bound)+1), args
}

// rebind replaces each '?' with $start, $start+1, ...
func rebind(query string, start int) string {
	var sb strings.Builder
	n := start
	for _, r := range query {
		if r == '?' {
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
