package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/workreport/backend/api/handler"
)

type Handlers struct {
	Auth   *apiHandler.AuthHandler
	Task   *apiHandler.TaskHandler
	Sla    *apiHandler.SlaHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)
	r.POST("/api/v1/auth/logout", handlers.Auth.Logout)

	// Task lifecycle
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))
	r.POST("/api/v1/tasks/{id}/status", authMiddleware(handlers.Task.ChangeStatus))
	r.POST("/api/v1/tasks/{id}/complete", authMiddleware(handlers.Task.CompleteTask))
	r.POST("/api/v1/tasks/{id}/reopen", authMiddleware(handlers.Task.ReopenTask))
	r.POST("/api/v1/tasks/bulk/status", authMiddleware(handlers.Task.BulkChangeStatus))
	r.GET("/api/v1/tasks/{id}/history", authMiddleware(handlers.Task.TaskHistory))

	// SLA timers and health
	r.GET("/api/v1/tasks/{id}/sla", authMiddleware(handlers.Task.TaskHealth))
	r.POST("/api/v1/tasks/{id}/timer/pause", authMiddleware(handlers.Task.PauseTimer))
	r.POST("/api/v1/tasks/{id}/timer/resume", authMiddleware(handlers.Task.ResumeTimer))
	r.GET("/api/v1/sla/urgent", authMiddleware(handlers.Sla.Urgent))
	r.GET("/api/v1/sla/stats", authMiddleware(handlers.Sla.Stats))
	r.GET("/api/v1/sla/settings", authMiddleware(handlers.Sla.GetSettings))
	r.PUT("/api/v1/sla/settings", authMiddleware(handlers.Sla.UpdateSettings))

	// Projects
	r.GET("/api/v1/projects", authMiddleware(handlers.Sla.ListProjects))
	r.POST("/api/v1/projects", authMiddleware(handlers.Sla.UpsertProject))

	return r
}
