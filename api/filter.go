package main

import (
	"fmt"
	"strings"
)

// taskPredicate is a composable filter over tasks. It renders to a SQL
// WHERE fragment for the storage layer and evaluates in memory via
// matches. An empty predicate constrains nothing.
type taskPredicate struct {
	conds []sqlCond
	match []func(*task) bool
}

// sqlCond appends its bind values to args and returns a SQL fragment
// referencing them by position.
type sqlCond func(args *[]any) string

func (p taskPredicate) and(q taskPredicate) taskPredicate {
	return taskPredicate{
		conds: append(append([]sqlCond{}, p.conds...), q.conds...),
		match: append(append([]func(*task) bool{}, p.match...), q.match...),
	}
}

func (p taskPredicate) matches(t *task) bool {
	for _, m := range p.match {
		if !m(t) {
			return false
		}
	}
	return true
}

func (p taskPredicate) toSQL(args *[]any) string {
	if len(p.conds) == 0 {
		return "TRUE"
	}
	parts := make([]string, 0, len(p.conds))
	for _, c := range p.conds {
		parts = append(parts, c(args))
	}
	return strings.Join(parts, " AND ")
}

// byAuthorID matches tasks authored by the given user.
// A nil id contributes no constraint.
func byAuthorID(authorID *int64) taskPredicate {
	if authorID == nil {
		return taskPredicate{}
	}
	id := *authorID
	return taskPredicate{
		conds: []sqlCond{func(args *[]any) string {
			*args = append(*args, id)
			return fmt.Sprintf("author_id = $%d", len(*args))
		}},
		match: []func(*task) bool{func(t *task) bool {
			return t.AuthorID == id
		}},
	}
}

// byAssigneeID matches tasks assigned to the given user. A nil id
// contributes no constraint; tasks without an assignee never match.
func byAssigneeID(assigneeID *int64) taskPredicate {
	if assigneeID == nil {
		return taskPredicate{}
	}
	id := *assigneeID
	return taskPredicate{
		conds: []sqlCond{func(args *[]any) string {
			*args = append(*args, id)
			return fmt.Sprintf("assignee_id = $%d", len(*args))
		}},
		match: []func(*task) bool{func(t *task) bool {
			return t.AssigneeID != nil && *t.AssigneeID == id
		}},
	}
}

// bySearchQuery matches tasks whose title or description contains the
// query, case-insensitive. A blank query contributes no constraint.
func bySearchQuery(query string) taskPredicate {
	if strings.TrimSpace(query) == "" {
		return taskPredicate{}
	}
	needle := strings.ToLower(query)
	return taskPredicate{
		conds: []sqlCond{func(args *[]any) string {
			*args = append(*args, "%"+needle+"%")
			n := len(*args)
			return fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", n, n)
		}},
		match: []func(*task) bool{func(t *task) bool {
			return strings.Contains(strings.ToLower(t.Title), needle) ||
				strings.Contains(strings.ToLower(t.Description), needle)
		}},
	}
}

func byStatus(status taskStatus) taskPredicate {
	return taskPredicate{
		conds: []sqlCond{func(args *[]any) string {
			*args = append(*args, string(status))
			return fmt.Sprintf("status = $%d", len(*args))
		}},
		match: []func(*task) bool{func(t *task) bool {
			return t.Status == status
		}},
	}
}

func byPriority(priority taskPriority) taskPredicate {
	return taskPredicate{
		conds: []sqlCond{func(args *[]any) string {
			*args = append(*args, string(priority))
			return fmt.Sprintf("priority = $%d", len(*args))
		}},
		match: []func(*task) bool{func(t *task) bool {
			return t.Priority == priority
		}},
	}
}

// withFilter combines the author, assignee and search criteria of a
// filter with AND semantics. Absent criteria contribute no constraint,
// so a filter with only a search query matches on text alone.
func withFilter(f taskFilter) taskPredicate {
	return byAuthorID(f.AuthorID).
		and(byAssigneeID(f.AssigneeID)).
		and(bySearchQuery(f.SearchQuery))
}
