package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConnections)
	db.SetMaxIdleConns(cfg.db.maxIdleConnections)
	db.SetConnMaxIdleTime(cfg.db.maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		return nil, err
	}

	return db, nil
}

type opCacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// opCache caches serialized read responses keyed by logical operation.
// Every successful mutation evicts the whole cache.
type opCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]opCacheEntry
}

func newOpCache(ttl time.Duration) *opCache {
	c := &opCache{
		ttl:     ttl,
		entries: make(map[string]opCacheEntry),
	}
	go func(c *opCache) {
		ticker := time.NewTicker(time.Minute)
		for {
			<-ticker.C
			func() {
				c.mu.Lock()
				defer c.mu.Unlock()
				for k, v := range c.entries {
					if time.Now().After(v.expiresAt) {
						delete(c.entries, k)
					}
				}
			}()
		}
	}(c)
	return c
}

func (c *opCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

func (c *opCache) set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = opCacheEntry{
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *opCache) evictAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]opCacheEntry)
}

type storage struct {
	db    *sql.DB
	cache *opCache
}

func newStorage(db *sql.DB, cacheTTL time.Duration) *storage {
	return &storage{
		db:    db,
		cache: newOpCache(cacheTTL),
	}
}

func (s *storage) getUserByEmail(email string) (*user, error) {
	query := `SELECT id, created_at, email, full_name, password_hash
			  FROM users
			  WHERE email = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, email)
	var u user
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.FullName, &u.PasswordHash)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *storage) getUserByID(id int64) (*user, error) {
	query := `SELECT id, created_at, email, full_name, password_hash
			  FROM users
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, id)
	var u user
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.FullName, &u.PasswordHash)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *storage) insertUser(u *user) error {
	query := `INSERT INTO users (email, full_name, password_hash)
			  VALUES ($1, $2, $3)
			  RETURNING id, created_at`

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, u.Email, u.FullName, u.PasswordHash)
	err := row.Scan(&u.ID, &u.CreatedAt)
	return err
}

func (s *storage) getUsers(page, size int) ([]user, error) {
	query := `SELECT id, created_at, email, full_name, password_hash
			  FROM users
			  ORDER BY id
			  LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, size, page*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []user{}
	for rows.Next() {
		var u user
		err := rows.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.FullName, &u.PasswordHash)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *storage) insertTask(t *task) error {
	query := `INSERT INTO tasks (title, description, status, priority, author_id, assignee_id)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id, created_at, updated_at`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, t.Title, t.Description, t.Status, t.Priority, t.AuthorID, t.AssigneeID)
	return row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (s *storage) getTaskByID(id int64) (*task, error) {
	query := `SELECT id, title, description, status, priority, author_id, assignee_id, created_at, updated_at
			  FROM tasks
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, id)
	var t task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.AuthorID, &t.AssigneeID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &t, nil
}

func (s *storage) updateTask(t *task) error {
	query := `UPDATE tasks
			  SET title = $1, description = $2, status = $3, priority = $4, assignee_id = $5, updated_at = now()
			  WHERE id = $6
			  RETURNING updated_at`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, t.Title, t.Description, t.Status, t.Priority, t.AssigneeID, t.ID)
	return row.Scan(&t.UpdatedAt)
}

func (s *storage) deleteTask(id int64) error {
	query := `DELETE FROM tasks
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

// getTasks pages through tasks matching the predicate. The predicate's
// bind values come first, then LIMIT and OFFSET.
func (s *storage) getTasks(p taskPredicate, page, size int) ([]task, error) {
	var args []any
	where := p.toSQL(&args)
	query := fmt.Sprintf(`SELECT id, title, description, status, priority, author_id, assignee_id, created_at, updated_at
			  FROM tasks
			  WHERE %s
			  ORDER BY id
			  LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, size, page*size)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tasks := []task{}
	for rows.Next() {
		var t task
		err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.AuthorID, &t.AssigneeID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *storage) insertComment(c *comment) error {
	query := `INSERT INTO comments (text, author_id, task_id)
			  VALUES ($1, $2, $3)
			  RETURNING id, created_at`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, c.Text, c.AuthorID, c.TaskID)
	return row.Scan(&c.ID, &c.CreatedAt)
}

func (s *storage) getCommentByID(id int64) (*comment, error) {
	query := `SELECT id, text, author_id, task_id, created_at
			  FROM comments
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, id)
	var c comment
	err := row.Scan(&c.ID, &c.Text, &c.AuthorID, &c.TaskID, &c.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &c, nil
}

func (s *storage) updateComment(c *comment) error {
	query := `UPDATE comments
			  SET text = $1
			  WHERE id = $2`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, c.Text, c.ID)
	return err
}

func (s *storage) deleteComment(id int64) error {
	query := `DELETE FROM comments
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

func (s *storage) getComments(column string, id int64, page, size int) ([]comment, error) {
	if column != "task_id" && column != "author_id" {
		return nil, fmt.Errorf("unsupported comment filter column %q", column)
	}
	query := strings.ReplaceAll(`SELECT id, text, author_id, task_id, created_at
			  FROM comments
			  WHERE {column} = $1
			  ORDER BY id
			  LIMIT $2 OFFSET $3`, "{column}", column)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, id, size, page*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	comments := []comment{}
	for rows.Next() {
		var c comment
		err := rows.Scan(&c.ID, &c.Text, &c.AuthorID, &c.TaskID, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// getTaskComments loads every comment of a task, oldest first. Used
// when a task is returned together with its discussion.
func (s *storage) getTaskComments(taskID int64) ([]comment, error) {
	query := `SELECT id, text, author_id, task_id, created_at
			  FROM comments
			  WHERE task_id = $1
			  ORDER BY id`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	comments := []comment{}
	for rows.Next() {
		var c comment
		err := rows.Scan(&c.ID, &c.Text, &c.AuthorID, &c.TaskID, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *storage) getCommentsByTaskID(taskID int64, page, size int) ([]comment, error) {
	return s.getComments("task_id", taskID, page, size)
}

func (s *storage) getCommentsByAuthorID(authorID int64, page, size int) ([]comment, error) {
	return s.getComments("author_id", authorID, page, size)
}
