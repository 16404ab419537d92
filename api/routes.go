package main

import (
	"net/http"
)

func composeRoutes(app *application) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/healthcheck", app.healthCheckHandler)

	mux.HandleFunc("POST /auth", app.authenticateHandler)
	mux.HandleFunc("POST /api/v1/users", app.createUserHandler)
	mux.HandleFunc("GET /api/v1/users", app.requireAuth(app.getUsersHandler))
	mux.HandleFunc("GET /api/v1/users/{id}", app.requireAuth(app.getUserHandler))

	mux.HandleFunc("POST /api/v1/tasks", app.requireAuth(app.createTaskHandler))
	mux.HandleFunc("GET /api/v1/tasks", app.requireAuth(app.getTasksHandler))
	mux.HandleFunc("GET /api/v1/tasks/filter", app.requireAuth(app.filterTasksHandler))
	mux.HandleFunc("GET /api/v1/tasks/{id}", app.requireAuth(app.getTaskHandler))
	mux.HandleFunc("PUT /api/v1/tasks/{id}", app.requireAuth(app.updateTaskHandler))
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", app.requireAuth(app.deleteTaskHandler))
	mux.HandleFunc("GET /api/v1/tasks/status/{status}", app.requireAuth(app.getTasksByStatusHandler))
	mux.HandleFunc("GET /api/v1/tasks/priority/{priority}", app.requireAuth(app.getTasksByPriorityHandler))
	mux.HandleFunc("GET /api/v1/tasks/status/{status}/priority/{priority}", app.requireAuth(app.getTasksByStatusAndPriorityHandler))
	mux.HandleFunc("GET /api/v1/tasks/author/{authorId}", app.requireAuth(app.getTasksByAuthorHandler))
	mux.HandleFunc("GET /api/v1/tasks/assignee/{assigneeId}", app.requireAuth(app.getTasksByAssigneeHandler))

	mux.HandleFunc("POST /api/v1/comments", app.requireAuth(app.createCommentHandler))
	mux.HandleFunc("GET /api/v1/comments/{id}", app.requireAuth(app.getCommentHandler))
	mux.HandleFunc("PUT /api/v1/comments/{id}", app.requireAuth(app.updateCommentHandler))
	mux.HandleFunc("DELETE /api/v1/comments/{id}", app.requireAuth(app.deleteCommentHandler))
	mux.HandleFunc("GET /api/v1/comments/task/{taskId}", app.requireAuth(app.getCommentsByTaskHandler))
	mux.HandleFunc("GET /api/v1/comments/author/{authorId}", app.requireAuth(app.getCommentsByAuthorHandler))

	var handler http.Handler = mux
	if len(app.config.cors.trustedOrigins) != 0 {
		handler = app.enableCORS(handler)
	}
	if app.config.limiter.enabled {
		handler = app.rateLimit(handler)
	}
	return handler
}
