package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Maneldor/la-publica-new-sub022/internal/middleware"
	"github.com/Maneldor/la-publica-new-sub022/internal/models"
	"github.com/Maneldor/la-publica-new-sub022/internal/services"
	"github.com/Maneldor/la-publica-new-sub022/pkg/response"
)

// TaskHandler exposes task endpoints.
type TaskHandler struct {
	tasks *services.TaskService
}

type createTaskRequest struct {
	Title           string     `json:"title" validate:"required,min=2,max=255"`
	Description     string     `json:"description" validate:"omitempty,max=2048"`
	Priority        string     `json:"priority" validate:"omitempty,priority"`
	DueDate         *time.Time `json:"due_date"`
	EstimatedEffort float64    `json:"estimated_effort" validate:"gte=0"`
	LeadID          *string    `json:"lead_id"`
	CompanyID       *string    `json:"company_id"`
	AssignedToID    *string    `json:"assigned_to_id"`
}

type updateTaskRequest struct {
	Title           *string    `json:"title" validate:"omitempty,min=2,max=255"`
	Description     *string    `json:"description" validate:"omitempty,max=2048"`
	Priority        *string    `json:"priority" validate:"omitempty,priority"`
	Status          *string    `json:"status"`
	DueDate         *time.Time `json:"due_date"`
	ClearDueDate    bool       `json:"clear_due_date"`
	EstimatedEffort *float64   `json:"estimated_effort" validate:"omitempty,gte=0"`
	ActualEffort    *float64   `json:"actual_effort" validate:"omitempty,gte=0"`
}

// NewTaskHandler constructs a TaskHandler.
func NewTaskHandler(tasks *services.TaskService) (*TaskHandler, error) {
	if tasks == nil {
		return nil, errors.New("task handler: task service is required")
	}
	return &TaskHandler{tasks: tasks}, nil
}

// POST /api/v1/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var body createTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}

	task, err := h.tasks.Create(requestContext(c), services.CreateTaskInput{
		Title:           body.Title,
		Description:     body.Description,
		Priority:        models.LeadPriority(body.Priority),
		DueDate:         body.DueDate,
		EstimatedEffort: body.EstimatedEffort,
		LeadID:          body.LeadID,
		CompanyID:       body.CompanyID,
		AssignedToID:    body.AssignedToID,
	}, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

// GET /api/v1/tasks
func (h *TaskHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	tasks, total, err := h.tasks.List(requestContext(c), services.ListTasksInput{
		Status:       models.TaskStatus(c.Query("status")),
		Priority:     models.LeadPriority(c.Query("priority")),
		AssignedToID: c.Query("assigned_to"),
		LeadID:       c.Query("lead_id"),
		Page:         page,
		PageSize:     perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, tasks, &response.Meta{
		Page: page, PerPage: perPage, Total: int(total),
	})
}

// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// PATCH /api/v1/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var body updateTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}

	input := services.UpdateTaskInput{
		Title:           body.Title,
		Description:     body.Description,
		DueDate:         body.DueDate,
		ClearDueDate:    body.ClearDueDate,
		EstimatedEffort: body.EstimatedEffort,
		ActualEffort:    body.ActualEffort,
	}
	if body.Priority != nil {
		priority := models.LeadPriority(*body.Priority)
		input.Priority = &priority
	}
	if body.Status != nil {
		status := models.TaskStatus(*body.Status)
		input.Status = &status
	}

	task, err := h.tasks.Update(requestContext(c), c.Param("id"), input, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}
