package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Maneldor/la-publica-new-sub022/internal/app"
	"github.com/Maneldor/la-publica-new-sub022/internal/handlers"
	"github.com/Maneldor/la-publica-new-sub022/internal/middleware"
	"github.com/Maneldor/la-publica-new-sub022/internal/notifications"
	"github.com/Maneldor/la-publica-new-sub022/internal/services"
	"github.com/Maneldor/la-publica-new-sub022/pkg/mail"
)

// Services bundles the business layer so the router, jobs and tests can share
// a single wired instance.
type Services struct {
	Audit         *services.AuditService
	Notifications *services.NotificationService
	Workload      *services.WorkloadService
	Assignment    *services.AssignmentService
	Leads         *services.LeadService
	Tasks         *services.TaskService
	Requests      *services.RequestService
}

// BuildServices constructs the business layer against the given database.
func BuildServices(db *gorm.DB, cfg *app.Config, hub *notifications.Hub, mailer mail.Mailer) (*Services, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	notifier, err := services.NewNotificationService(db, hub, mailer)
	if err != nil {
		return nil, err
	}
	workload, err := services.NewWorkloadService(db, cfg.Assignment.DefaultCapacity)
	if err != nil {
		return nil, err
	}
	assignment, err := services.NewAssignmentService(db, workload, audit, notifier)
	if err != nil {
		return nil, err
	}
	leads, err := services.NewLeadService(db, audit)
	if err != nil {
		return nil, err
	}
	tasks, err := services.NewTaskService(db, audit)
	if err != nil {
		return nil, err
	}
	requests, err := services.NewRequestService(db, audit, notifier,
		services.WithRequestTTL(cfg.Requests.TTL))
	if err != nil {
		return nil, err
	}

	return &Services{
		Audit:         audit,
		Notifications: notifier,
		Workload:      workload,
		Assignment:    assignment,
		Leads:         leads,
		Tasks:         tasks,
		Requests:      requests,
	}, nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config, svcs *Services, hub *notifications.Hub) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svcs == nil {
		return nil, fmt.Errorf("services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.Actor())

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	api := r.Group("/api/v1")

	// Leads and assignment
	leadHandler, err := handlers.NewLeadHandler(svcs.Leads, svcs.Assignment)
	if err != nil {
		return nil, err
	}
	leads := api.Group("/leads")
	{
		leads.POST("", leadHandler.Create)
		leads.GET("", leadHandler.List)
		leads.POST("/assign-bulk", leadHandler.AssignBulk)
		leads.POST("/auto-assign", leadHandler.AutoAssign)
		leads.GET("/:id", leadHandler.Get)
		leads.PATCH("/:id", leadHandler.Update)
		leads.POST("/:id/assign", leadHandler.Assign)
		leads.POST("/:id/reassign", leadHandler.Reassign)
		leads.POST("/:id/unassign", leadHandler.Unassign)
	}

	// Tasks
	taskHandler, err := handlers.NewTaskHandler(svcs.Tasks)
	if err != nil {
		return nil, err
	}
	tasks := api.Group("/tasks")
	{
		tasks.POST("", taskHandler.Create)
		tasks.GET("", taskHandler.List)
		tasks.GET("/:id", taskHandler.Get)
		tasks.PATCH("/:id", taskHandler.Update)
	}

	// Workload
	workloadHandler, err := handlers.NewWorkloadHandler(svcs.Workload)
	if err != nil {
		return nil, err
	}
	api.GET("/workload", workloadHandler.Snapshot)
	api.GET("/workload/:manager_id", workloadHandler.ForManager)

	// Requests
	requestHandler, err := handlers.NewRequestHandler(svcs.Requests)
	if err != nil {
		return nil, err
	}
	api.POST("/connections/requests", requestHandler.CreateConnection)
	api.POST("/groups/:id/join-requests", requestHandler.CreateJoin)
	api.POST("/groups/:id/invitations", requestHandler.CreateInvitation)
	requests := api.Group("/requests")
	{
		requests.GET("", requestHandler.List)
		requests.GET("/:id", requestHandler.Get)
		requests.POST("/:id/approve", requestHandler.Approve)
		requests.POST("/:id/reject", requestHandler.Reject)
		requests.POST("/:id/cancel", requestHandler.Cancel)
	}

	// Notifications
	var streamHub *notifications.Hub
	if cfg.Features.Notifications.Enabled {
		streamHub = hub
	}
	notificationHandler, err := handlers.NewNotificationHandler(svcs.Notifications, streamHub)
	if err != nil {
		return nil, err
	}
	notif := api.Group("/notifications")
	{
		notif.GET("", notificationHandler.List)
		notif.GET("/ws", notificationHandler.Stream)
		notif.POST("/read-all", notificationHandler.MarkAllRead)
		notif.POST("/:id/read", notificationHandler.MarkRead)
	}

	// Audit
	auditHandler, err := handlers.NewAuditHandler(svcs.Audit)
	if err != nil {
		return nil, err
	}
	api.GET("/audit", auditHandler.List)

	// Metrics endpoint
	if cfg.Features.Metrics.Enabled {
		r.GET(cfg.Features.Metrics.Endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
