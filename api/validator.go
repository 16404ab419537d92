package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var emailRegexp = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

var errFilterInvalid = errors.New("invalid task filter")

type validator struct {
	errors map[string]string
}

func newValidator() *validator {
	return &validator{
		errors: make(map[string]string),
	}
}

func (v *validator) toError() error {
	if v == nil {
		return errors.New("")
	}
	data, err := json.Marshal(v.errors)
	if err != nil {
		return err
	}
	return errors.New(string(data))
}

func (v *validator) hasErrors() bool {
	return len(v.errors) != 0
}

func (v *validator) checkCond(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.errors[key]; !ok {
		v.errors[key] = msg
	}
}

func (v *validator) checkEmail(email string) {
	v.checkCond(email != "", "email", "must be provided")
	v.checkCond(emailRegexp.Match([]byte(email)), "email", "must be a valid email address")
}

func (v *validator) checkPassword(password string) {
	v.checkCond(password != "", "password", "must be provided")
	v.checkCond(len(password) >= 8, "password", "must be atleast 8 characters long")
	v.checkCond(len(password) <= 72, "password", "must be atmost 72 characters long")
}

func (v *validator) checkTaskRequest(r *taskRequest) {
	v.checkCond(strings.TrimSpace(r.Title) != "", "title", "must be provided")
	v.checkCond(len(r.Title) >= 3, "title", "must be atleast 3 characters long")
	v.checkCond(len(r.Title) <= 50, "title", "must be atmost 50 characters long")
	v.checkCond(len(r.Description) <= 1000, "description", "must be atmost 1000 characters long")
	v.checkCond(taskStatus(r.Status).isValid(), "status", "must be one of PENDING, IN_PROGRESS, COMPLETED")
	v.checkCond(taskPriority(r.Priority).isValid(), "priority", "must be one of HIGH, MEDIUM, LOW")
	if r.AssigneeID != nil {
		v.checkCond(*r.AssigneeID > 0, "assignee_id", "must be greater than zero")
	}
}

func (v *validator) checkCommentRequest(r *commentRequest) {
	v.checkCond(strings.TrimSpace(r.Text) != "", "text", "must be provided")
	v.checkCond(r.TaskID > 0, "task_id", "must be greater than zero")
}

// checkTaskFilter enforces the filter precondition before any
// predicate is built: pagination fully specified and at least one
// criterion present.
func checkTaskFilter(f taskFilter) error {
	if f.Page == nil || f.Size == nil {
		return fmt.Errorf("%w: both page and size must be specified", errFilterInvalid)
	}
	if *f.Page < 0 || *f.Size <= 0 {
		return fmt.Errorf("%w: page must be non-negative and size positive", errFilterInvalid)
	}
	if f.AuthorID == nil && f.AssigneeID == nil && strings.TrimSpace(f.SearchQuery) == "" {
		return fmt.Errorf("%w: at least one of author_id, assignee_id, or search_query must be specified", errFilterInvalid)
	}
	return nil
}
