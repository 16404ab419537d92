package main

import (
	"errors"
	"fmt"
	"log"
)

// identity is the authenticated caller as extracted from a token.
// It is per-request and never persisted.
type identity struct {
	Email      string
	GivenName  string
	FamilyName string
}

var (
	errIdentityMissing  = errors.New("user information is missing")
	errEntityNotFound   = errors.New("not found")
	errPermissionDenied = errors.New("permission denied")
	errFieldRestricted  = fmt.Errorf("%w: the assignee is allowed to change only the task status", errPermissionDenied)
)

type entityType int

const (
	entityTask entityType = iota
	entityComment
)

// authStore is the slice of storage the authorizer needs: user
// resolution plus entity lookup. Lookups return (nil, nil) when the
// record is absent.
type authStore interface {
	getUserByEmail(email string) (*user, error)
	insertUser(u *user) error
	getTaskByID(id int64) (*task, error)
	getCommentByID(id int64) (*comment, error)
}

// authorizer decides whether the current caller may mutate a task or
// comment. It holds no state of its own; every decision is a pure
// function of the caller and the stored entity.
type authorizer struct {
	store authStore
}

// taskFieldChanged reports, per field, whether the proposed state
// differs from the persisted task. assigneeMutableFields names the
// fields an assignee may change; everything else must compare equal
// for an assignee-submitted update to pass. Adding a field means
// adding a table entry, not a new branch.
var taskFieldChanged = map[string]func(cur *task, proposed *taskRequest) bool{
	"title": func(cur *task, p *taskRequest) bool {
		return p.Title != cur.Title
	},
	"description": func(cur *task, p *taskRequest) bool {
		return p.Description != cur.Description
	},
	"status": func(cur *task, p *taskRequest) bool {
		return taskStatus(p.Status) != cur.Status
	},
	"priority": func(cur *task, p *taskRequest) bool {
		return taskPriority(p.Priority) != cur.Priority
	},
	"assignee_id": func(cur *task, p *taskRequest) bool {
		if p.AssigneeID == nil || cur.AssigneeID == nil {
			return p.AssigneeID != nil || cur.AssigneeID != nil
		}
		return *p.AssigneeID != *cur.AssigneeID
	},
}

var assigneeMutableFields = map[string]bool{
	"status": true,
}

// currentUser resolves the caller's persisted user, creating one on
// first sight with fullName = givenName + " " + familyName.
func (a *authorizer) currentUser(ident *identity) (*user, error) {
	if ident == nil {
		return nil, errIdentityMissing
	}
	u, err := a.store.getUserByEmail(ident.Email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	u = &user{
		Email:    ident.Email,
		FullName: ident.GivenName + " " + ident.FamilyName,
	}
	if err := a.store.insertUser(u); err != nil {
		return nil, err
	}
	log.Printf("created user %q on first sight", u.Email)
	return u, nil
}

// authorizeDelete allows the delete iff the caller authored the
// entity. Assignees may not delete, even where they may update.
func (a *authorizer) authorizeDelete(ident *identity, et entityType, id int64) error {
	u, err := a.currentUser(ident)
	if err != nil {
		return err
	}
	switch et {
	case entityTask:
		t, err := a.store.getTaskByID(id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("task with id %d %w", id, errEntityNotFound)
		}
		if t.AuthorID != u.ID {
			return fmt.Errorf("%w: you do not have permission to delete this task", errPermissionDenied)
		}
	case entityComment:
		c, err := a.store.getCommentByID(id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("comment with id %d %w", id, errEntityNotFound)
		}
		if c.AuthorID != u.ID {
			return fmt.Errorf("%w: you do not have permission to delete this comment", errPermissionDenied)
		}
	}
	return nil
}

// authorizeUpdate decides an update. Task authors may change any
// field; a non-author assignee may change only the status; anyone
// else is denied. Comments are author-only and ignore proposed.
func (a *authorizer) authorizeUpdate(ident *identity, et entityType, id int64, proposed *taskRequest) error {
	u, err := a.currentUser(ident)
	if err != nil {
		return err
	}
	switch et {
	case entityTask:
		t, err := a.store.getTaskByID(id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("task with id %d %w", id, errEntityNotFound)
		}
		isAuthor := t.AuthorID == u.ID
		// A task without an assignee has no assignee rights to grant.
		isAssignee := t.AssigneeID != nil && *t.AssigneeID == u.ID
		if !isAuthor && !isAssignee {
			return fmt.Errorf("%w: you do not have permission to edit or delete this task", errPermissionDenied)
		}
		if isAuthor {
			return nil
		}
		for field, changed := range taskFieldChanged {
			if assigneeMutableFields[field] {
				continue
			}
			if changed(t, proposed) {
				return errFieldRestricted
			}
		}
	case entityComment:
		c, err := a.store.getCommentByID(id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("comment with id %d %w", id, errEntityNotFound)
		}
		if c.AuthorID != u.ID {
			return fmt.Errorf("%w: you do not have permission to edit or delete this comment", errPermissionDenied)
		}
	}
	return nil
}
