package main

import "time"

type taskStatus string

const (
	statusPending    taskStatus = "PENDING"
	statusInProgress taskStatus = "IN_PROGRESS"
	statusCompleted  taskStatus = "COMPLETED"
)

func (s taskStatus) isValid() bool {
	switch s {
	case statusPending, statusInProgress, statusCompleted:
		return true
	}
	return false
}

type taskPriority string

const (
	priorityHigh   taskPriority = "HIGH"
	priorityMedium taskPriority = "MEDIUM"
	priorityLow    taskPriority = "LOW"
)

func (p taskPriority) isValid() bool {
	switch p {
	case priorityHigh, priorityMedium, priorityLow:
		return true
	}
	return false
}

type user struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash []byte    `json:"-"`
}

type task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      taskStatus   `json:"status"`
	Priority    taskPriority `json:"priority"`
	AuthorID    int64        `json:"author_id"`
	AssigneeID  *int64       `json:"assignee_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type comment struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	AuthorID  int64     `json:"author_id"`
	TaskID    int64     `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
}

// taskRequest is the proposed state submitted on task create and update.
type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	AssigneeID  *int64 `json:"assignee_id"`
}

type commentRequest struct {
	Text   string `json:"text"`
	TaskID int64  `json:"task_id"`
}

// taskFilter carries the criteria of GET /api/v1/tasks/filter.
// Pagination is mandatory; at least one of the other fields must be set.
type taskFilter struct {
	Page        *int   `json:"page"`
	Size        *int   `json:"size"`
	SearchQuery string `json:"search_query"`
	AuthorID    *int64 `json:"author_id"`
	AssigneeID  *int64 `json:"assignee_id"`
}
