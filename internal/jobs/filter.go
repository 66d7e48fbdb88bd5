package jobs

import (
	"strconv"
	"strings"
)

// predicate is one rendered filter clause. The clause contains "?" where its
// argument belongs; BuildFilter numbers it.
type predicate struct {
	clause string
	arg    any
	bound  bool
}

// filterRule turns one FilterOptions field into a predicate, or reports that
// the field is absent.
type filterRule func(FilterOptions) (predicate, bool)

// filterRules run in this order, which fixes both clause and argument order.
var filterRules = []filterRule{
	titleRule,
	minSalaryRule,
	hasEquityRule,
}

func titleRule(o FilterOptions) (predicate, bool) {
	if o.Title == nil {
		return predicate{}, false
	}
	return predicate{clause: "title ILIKE ?", arg: "%" + escapeLike(*o.Title) + "%", bound: true}, true
}

func minSalaryRule(o FilterOptions) (predicate, bool) {
	if o.MinSalary == nil {
		return predicate{}, false
	}
	return predicate{clause: "salary >= ?", arg: *o.MinSalary, bound: true}, true
}

func hasEquityRule(o FilterOptions) (predicate, bool) {
	if o.HasEquity == nil || !*o.HasEquity {
		return predicate{}, false
	}
	return predicate{clause: "equity > 0"}, true
}

// BuildFilter folds the supplied options into a conjunctive WHERE fragment
// (without the WHERE keyword) and the positional arguments for it. Placeholders
// are numbered from $1 and args[i] always binds $(i+1). With no options set it
// returns "" and no args.
func BuildFilter(opts FilterOptions) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	for _, rule := range filterRules {
		p, ok := rule(opts)
		if !ok {
			continue
		}
		clause := p.clause
		if p.bound {
			args = append(args, p.arg)
			clause = strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1)
		}
		clauses = append(clauses, clause)
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
