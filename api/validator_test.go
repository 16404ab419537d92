package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int {
	return &v
}

func TestCheckTaskFilter(t *testing.T) {
	valid := taskFilter{Page: intp(0), Size: intp(10), SearchQuery: "budget"}
	require.NoError(t, checkTaskFilter(valid))

	tests := map[string]taskFilter{
		"missing page":      {Size: intp(10), SearchQuery: "budget"},
		"missing size":      {Page: intp(0), SearchQuery: "budget"},
		"missing both":      {SearchQuery: "budget"},
		"no criteria":       {Page: intp(0), Size: intp(10)},
		"blank search only": {Page: intp(0), Size: intp(10), SearchQuery: "  "},
		"negative page":     {Page: intp(-1), Size: intp(10), SearchQuery: "budget"},
		"zero size":         {Page: intp(0), Size: intp(0), SearchQuery: "budget"},
	}
	for name, f := range tests {
		err := checkTaskFilter(f)
		assert.ErrorIs(t, err, errFilterInvalid, name)
	}

	// A single id criterion is sufficient.
	require.NoError(t, checkTaskFilter(taskFilter{Page: intp(1), Size: intp(5), AuthorID: int64p(5)}))
	require.NoError(t, checkTaskFilter(taskFilter{Page: intp(1), Size: intp(5), AssigneeID: int64p(9)}))
}

func TestCheckTaskRequest(t *testing.T) {
	valid := taskRequest{
		Title:    "Prepare release",
		Status:   string(statusPending),
		Priority: string(priorityHigh),
	}

	v := newValidator()
	v.checkTaskRequest(&valid)
	assert.False(t, v.hasErrors())

	tests := map[string]func(r *taskRequest){
		"blank title":      func(r *taskRequest) { r.Title = "  " },
		"short title":      func(r *taskRequest) { r.Title = "ab" },
		"long title":       func(r *taskRequest) { r.Title = strings.Repeat("a", 51) },
		"bad status":       func(r *taskRequest) { r.Status = "DONE" },
		"bad priority":     func(r *taskRequest) { r.Priority = "URGENT" },
		"zero assignee id": func(r *taskRequest) { r.AssigneeID = int64p(0) },
	}
	for name, mutate := range tests {
		r := valid
		mutate(&r)
		v := newValidator()
		v.checkTaskRequest(&r)
		assert.True(t, v.hasErrors(), name)
	}
}

func TestCheckCommentRequest(t *testing.T) {
	v := newValidator()
	v.checkCommentRequest(&commentRequest{Text: "looks good", TaskID: 1})
	assert.False(t, v.hasErrors())

	v = newValidator()
	v.checkCommentRequest(&commentRequest{Text: " ", TaskID: 0})
	assert.True(t, v.hasErrors())
}

func TestValidatorKeepsFirstError(t *testing.T) {
	v := newValidator()
	v.checkCond(false, "title", "first")
	v.checkCond(false, "title", "second")
	assert.Equal(t, "first", v.errors["title"])
}
