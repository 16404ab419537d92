package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-type", "application/json")
	healthCheck := struct {
		Status      string `json:"status"`
		Environment string `json:"environment"`
		Version     string `json:"version"`
	}{
		Status:      "available",
		Environment: app.config.env,
		Version:     version,
	}
	data, err := json.Marshal(healthCheck)
	if err != nil {
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	w.Write(data)
}

func (app *application) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkCond(input.Name != "", "name", "must be provided")
	v.checkCond(len(input.Name) <= 255, "name", "must be atmost 255 characters")
	v.checkEmail(input.Email)
	v.checkPassword(input.Password)
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	existing, err := app.storage.getUserByEmail(input.Email)
	if err != nil {
		app.serverError(w, err)
		return
	}
	if existing != nil {
		writeError(w, errors.New("a user with this email already exists"), http.StatusConflict)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		app.serverError(w, err)
		return
	}
	u := &user{
		Email:        input.Email,
		FullName:     input.Name,
		PasswordHash: hash,
	}
	if err := app.storage.insertUser(u); err != nil {
		app.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (app *application) getUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	u, err := app.storage.getUserByID(id)
	if err != nil {
		app.serverError(w, err)
		return
	}
	if u == nil {
		writeError(w, fmt.Errorf("user with id %d %w", id, errEntityNotFound), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (app *application) getUsersHandler(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)
	users, err := app.storage.getUsers(page, size)
	if err != nil {
		app.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var input taskRequest
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkTaskRequest(&input)
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	author, err := app.authz.currentUser(getIdentityFromRequest(r))
	if err != nil {
		app.writeFailure(w, err)
		return
	}
	if err := app.checkAssigneeExists(input.AssigneeID); err != nil {
		app.writeFailure(w, err)
		return
	}
	t := &task{
		Title:       input.Title,
		Description: input.Description,
		Status:      taskStatus(input.Status),
		Priority:    taskPriority(input.Priority),
		AuthorID:    author.ID,
		AssigneeID:  input.AssigneeID,
	}
	if err := app.storage.insertTask(t); err != nil {
		app.serverError(w, err)
		return
	}
	app.storage.cache.evictAll()
	app.notifyAssignee(t, nil)
	writeJSON(w, http.StatusCreated, t)
}

func (app *application) getTasksHandler(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)
	cacheKey := fmt.Sprintf("tasks:all:%d:%d", page, size)
	if data, ok := app.storage.cache.get(cacheKey); ok {
		w.Header().Set("Content-type", "application/json")
		w.Write(data)
		return
	}
	tasks, err := app.storage.getTasks(taskPredicate{}, page, size)
	if err != nil {
		app.serverError(w, err)
		return
	}
	data, err := json.Marshal(map[string]any{"tasks": tasks})
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.storage.cache.set(cacheKey, data)
	w.Header().Set("Content-type", "application/json")
	w.Write(data)
}

func (app *application) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	cacheKey := fmt.Sprintf("tasks:id:%d", id)
	if data, ok := app.storage.cache.get(cacheKey); ok {
		w.Header().Set("Content-type", "application/json")
		w.Write(data)
		return
	}
	t, err := app.storage.getTaskByID(id)
	if err != nil {
		app.serverError(w, err)
		return
	}
	if t == nil {
		writeError(w, fmt.Errorf("task with id %d %w", id, errEntityNotFound), http.StatusNotFound)
		return
	}
	comments, err := app.storage.getTaskComments(id)
	if err != nil {
		app.serverError(w, err)
		return
	}
	data, err := json.Marshal(struct {
		task
		Comments []comment `json:"comments"`
	}{*t, comments})
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.storage.cache.set(cacheKey, data)
	w.Header().Set("Content-type", "application/json")
	w.Write(data)
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	var input taskRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkTaskRequest(&input)
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	ident := getIdentityFromRequest(r)
	if err := app.authz.authorizeUpdate(ident, entityTask, id, &input); err != nil {
		app.writeFailure(w, err)
		return
	}
	if err := app.checkAssigneeExists(input.AssigneeID); err != nil {
		app.writeFailure(w, err)
		return
	}
	t, err := app.storage.getTaskByID(id)
	if err != nil {
		app.serverError(w, err)
		return
	}
	if t == nil {
		writeError(w, fmt.Errorf("task with id %d %w", id, errEntityNotFound), http.StatusNotFound)
		return
	}
	prevAssignee := t.AssigneeID
	t.Title = input.Title
	t.Description = input.Description
	t.Status = taskStatus(input.Status)
	t.Priority = taskPriority(input.Priority)
	t.AssigneeID = input.AssigneeID
	if err := app.storage.updateTask(t); err != nil {
		app.serverError(w, err)
		return
	}
	app.storage.cache.evictAll()
	app.notifyAssignee(t, prevAssignee)
	writeJSON(w, http.StatusOK, t)
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	ident := getIdentityFromRequest(r)
	if err := app.authz.authorizeDelete(ident, entityTask, id); err != nil {
		app.writeFailure(w, err)
		return
	}
	if err := app.storage.deleteTask(id); err != nil {
		app.serverError(w, err)
		return
	}
	app.storage.cache.evictAll()
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) filterTasksHandler(w http.ResponseWriter, r *http.Request) {
	f, err := parseTaskFilter(r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if err := checkTaskFilter(f); err != nil {
		app.writeFailure(w, err)
		return
	}
	// The filter must reference existing users before it reaches the store.
	for _, id := range []*int64{f.AuthorID, f.AssigneeID} {
		if err := app.checkAssigneeExists(id); err != nil {
			app.writeFailure(w, err)
			return
		}
	}
	tasks, err := app.storage.getTasks(withFilter(f), *f.Page, *f.Size)
	if err != nil {
		app.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (app *application) getTasksByStatusHandler(w http.ResponseWriter, r *http.Request) {
	status := taskStatus(r.PathValue("status"))
	if !status.isValid() {
		app.writeFailure(w, fmt.Errorf("invalid status value %q: %w", status, errEntityNotFound))
		return
	}
	page, size := parsePagination(r)
	tasks, err := app.storage.getTasks(byStatus(status), page, size)
	if err != nil {
		app.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (app *application) getTasksByPriorityHandler(w http.ResponseWriter, r *http.Request) {
	priority := taskPriority(r.PathValue("priority"))
	if !priority.isValid() {
		app.writeFailure(w, fmt.Errorf("invalid priority value %q: %w", priority, errEntityNotFound))
		return
	}
	page, size := parsePagination(r)
	tasks, err := app.storage.getTasks(byPriority(priority), page, size)
	if err != nil {
		app.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (app *application) getTasksByStatusAndPriorityHandler(w http.ResponseWriter, r *http.Request) {
	status := taskStatus(r.PathValue("status"))
	priority := taskPriority(r.PathValue("priority"))
	if !status.isValid() {
		app.writeFailure(w, fmt.Errorf("invalid status value %q: %w", status, errEntityNotFound))
		return
	}
	if !priority.isValid() {
		app.writeFailure(w, fmt.Errorf("invalid priority value %q: %w", priority, errEntityNotFound))
		return
	}
	page, size := parsePagination(r)
	tasks, err := app.storage.getTasks(byStatus(status).and(byPriority(priority)), page, size)
	if err != nil {
		app.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (app *application) getTasksByAuthorHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "authorId")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if err := app.checkAssigneeExists(&id); err != nil {
		app.writeFailure(w, err)
		return
	}
	page, size := parsePagination(r)
	tasks, err := app.storage.getTasks(byAuthorID(&id), page, size)
	if err != nil {
		app.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (app *application) getTasksByAssigneeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "assigneeId")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if err := app.checkAssigneeExists(&id); err != nil {
		app.writeFailure(w, err)
		return
	}
	page, size := parsePagination(r)
	tasks, err := app.storage.getTasks(byAssigneeID(&id), page, size)
	if err != nil {
		app.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (app *application) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	var input commentRequest
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkCommentRequest(&input)
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	t, err := app.storage.getTaskByID(input.TaskID)
	if err != nil {
		app.serverError(w, err)
		return
	}
	if t == nil {
		writeError(w, fmt.Errorf("task with id %d %w", input.TaskID, errEntityNotFound), http.StatusNotFound)
		return
	}
	author, err := app.authz.currentUser(getIdentityFromRequest(r))
	if err != nil {
		app.writeFailure(w, err)
		return
	}
	c := &comment{
		Text:     input.Text,
		AuthorID: author.ID,
		TaskID:   input.TaskID,
	}
	if err := app.storage.insertComment(c); err != nil {
		app.serverError(w, err)
		return
	}
	app.storage.cache.evictAll()
	writeJSON(w, http.StatusCreated, c)
}

func (app *application) getCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	c, err := app.storage.getCommentByID(id)
	if err != nil {
		app.serverError(w, err)
		return
	}
	if c == nil {
		writeError(w, fmt.Errorf("comment with id %d %w", id, errEntityNotFound), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (app *application) getCommentsByTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "taskId")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	page, size := parsePagination(r)
	comments, err := app.storage.getCommentsByTaskID(id, page, size)
	if err != nil {
		app.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (app *application) getCommentsByAuthorHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "authorId")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	page, size := parsePagination(r)
	comments, err := app.storage.getCommentsByAuthorID(id, page, size)
	if err != nil {
		app.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (app *application) updateCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	var input commentRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkCommentRequest(&input)
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	ident := getIdentityFromRequest(r)
	if err := app.authz.authorizeUpdate(ident, entityComment, id, nil); err != nil {
		app.writeFailure(w, err)
		return
	}
	t, err := app.storage.getTaskByID(input.TaskID)
	if err != nil {
		app.serverError(w, err)
		return
	}
	if t == nil {
		writeError(w, fmt.Errorf("task with id %d %w", input.TaskID, errEntityNotFound), http.StatusNotFound)
		return
	}
	c, err := app.storage.getCommentByID(id)
	if err != nil {
		app.serverError(w, err)
		return
	}
	if c == nil {
		writeError(w, fmt.Errorf("comment with id %d %w", id, errEntityNotFound), http.StatusNotFound)
		return
	}
	c.Text = input.Text
	if err := app.storage.updateComment(c); err != nil {
		app.serverError(w, err)
		return
	}
	app.storage.cache.evictAll()
	writeJSON(w, http.StatusOK, c)
}

func (app *application) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	ident := getIdentityFromRequest(r)
	if err := app.authz.authorizeDelete(ident, entityComment, id); err != nil {
		app.writeFailure(w, err)
		return
	}
	if err := app.storage.deleteComment(id); err != nil {
		app.serverError(w, err)
		return
	}
	app.storage.cache.evictAll()
	w.WriteHeader(http.StatusNoContent)
}

// checkAssigneeExists verifies a referenced user id resolves to a
// persisted user. A nil id is fine, the task is simply unassigned.
func (app *application) checkAssigneeExists(id *int64) error {
	if id == nil {
		return nil
	}
	u, err := app.storage.getUserByID(*id)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user with id %d %w", *id, errEntityNotFound)
	}
	return nil
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return id, nil
}

func parsePagination(r *http.Request) (page, size int) {
	page, size = 0, 10
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p >= 0 {
		page = p
	}
	if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s > 0 {
		size = s
	}
	return page, size
}

func parseTaskFilter(r *http.Request) (taskFilter, error) {
	var f taskFilter
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("invalid page parameter")
		}
		f.Page = &p
	}
	if v := q.Get("size"); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("invalid size parameter")
		}
		f.Size = &s
	}
	f.SearchQuery = q.Get("search_query")
	if v := q.Get("author_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, errors.New("invalid author_id parameter")
		}
		f.AuthorID = &id
	}
	if v := q.Get("assignee_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, errors.New("invalid assignee_id parameter")
		}
		f.AssigneeID = &id
	}
	return f, nil
}

// writeFailure maps the authorization and validation error kinds to
// their status codes: 401 for a missing identity, 404 for an absent
// entity, 403 for a denial, 400 for a bad filter.
func (app *application) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errIdentityMissing):
		writeError(w, err, http.StatusUnauthorized)
	case errors.Is(err, errEntityNotFound):
		writeError(w, err, http.StatusNotFound)
	case errors.Is(err, errPermissionDenied):
		writeError(w, err, http.StatusForbidden)
	case errors.Is(err, errFilterInvalid):
		writeError(w, err, http.StatusBadRequest)
	default:
		app.serverError(w, err)
	}
}

func (app *application) serverError(w http.ResponseWriter, err error) {
	log.Println(err)
	writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Println(err)
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(data)
}

func composeJSONError(err error) string {
	jsonError := map[string]string{
		"error": err.Error(),
	}
	result, err := json.Marshal(jsonError)
	if err != nil {
		log.Println(err)
		return ""
	}
	return string(result)
}

func writeError(w http.ResponseWriter, err error, statusCode int) {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	fmt.Fprintln(w, composeJSONError(err))
}
