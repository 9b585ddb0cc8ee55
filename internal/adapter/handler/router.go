package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Router holds all handlers
type Router struct {
	environment string
	auth        echo.MiddlewareFunc
	meeting     *Meeting
	pipeline    *Pipeline
	task        *Task
	health      *Health
}

// NewRouter creates a new router with all handlers.
// auth guards every /v1 route; health may be nil.
func NewRouter(environment string, auth echo.MiddlewareFunc, meeting *Meeting, pipeline *Pipeline, task *Task, health *Health) *Router {
	return &Router{
		environment: environment,
		auth:        auth,
		meeting:     meeting,
		pipeline:    pipeline,
		task:        task,
		health:      health,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	if rt.health != nil {
		e.GET("/health/detailed", rt.health.Detailed)
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1", rt.auth)

	rt.setupMeetingRoutes(v1)
	rt.setupTaskRoutes(v1)
}

// setupMeetingRoutes configures ingestion, query and pipeline routes
func (rt *Router) setupMeetingRoutes(g *echo.Group) {
	meetings := g.Group("/meetings")

	meetings.POST("", rt.meeting.Upload)
	meetings.GET("", rt.meeting.List)
	meetings.GET("/stats", rt.meeting.Stats)
	meetings.GET("/:id", rt.meeting.Get)
	meetings.DELETE("/:id", rt.meeting.Delete)
	meetings.GET("/:id/timeline", rt.meeting.Timeline)
	meetings.GET("/:id/summary", rt.meeting.Summary)

	meetings.GET("/:id/status", rt.pipeline.Status)
	meetings.POST("/:id/reprocess", rt.pipeline.Reprocess)
}

// setupTaskRoutes configures task editing routes
func (rt *Router) setupTaskRoutes(g *echo.Group) {
	tasks := g.Group("/tasks")

	tasks.GET("", rt.task.List)
	tasks.GET("/:id", rt.task.Get)
	tasks.PUT("/:id", rt.task.Update)
	tasks.PUT("/:id/status", rt.task.UpdateStatus)
	tasks.DELETE("/:id", rt.task.Delete)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.environment,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}
