package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Maneldor/la-publica-new-sub022/internal/middleware"
	"github.com/Maneldor/la-publica-new-sub022/internal/models"
	"github.com/Maneldor/la-publica-new-sub022/internal/services"
	apperrors "github.com/Maneldor/la-publica-new-sub022/pkg/errors"
	"github.com/Maneldor/la-publica-new-sub022/pkg/response"
)

// LeadHandler exposes the lead pipeline and assignment endpoints.
type LeadHandler struct {
	leads      *services.LeadService
	assignment *services.AssignmentService
}

type createLeadRequest struct {
	Name            string     `json:"name" validate:"required,min=2,max=255"`
	ContactName     string     `json:"contact_name" validate:"omitempty,max=255"`
	ContactEmail    string     `json:"contact_email" validate:"omitempty,email"`
	ContactPhone    string     `json:"contact_phone" validate:"omitempty,max=32"`
	Priority        string     `json:"priority" validate:"omitempty,priority"`
	DueDate         *time.Time `json:"due_date"`
	EstimatedValue  float64    `json:"estimated_value" validate:"gte=0"`
	EstimatedEffort float64    `json:"estimated_effort" validate:"gte=0"`
	CompanyID       *string    `json:"company_id"`
}

type updateLeadRequest struct {
	Name            *string    `json:"name" validate:"omitempty,min=2,max=255"`
	ContactName     *string    `json:"contact_name" validate:"omitempty,max=255"`
	ContactEmail    *string    `json:"contact_email" validate:"omitempty,email"`
	ContactPhone    *string    `json:"contact_phone" validate:"omitempty,max=32"`
	Priority        *string    `json:"priority" validate:"omitempty,priority"`
	Status          *string    `json:"status"`
	DueDate         *time.Time `json:"due_date"`
	ClearDueDate    bool       `json:"clear_due_date"`
	EstimatedValue  *float64   `json:"estimated_value" validate:"omitempty,gte=0"`
	EstimatedEffort *float64   `json:"estimated_effort" validate:"omitempty,gte=0"`
}

type assignLeadRequest struct {
	ManagerID string `json:"manager_id" validate:"required"`
}

type assignBulkRequest struct {
	LeadIDs   []string `json:"lead_ids" validate:"required,min=1"`
	ManagerID string   `json:"manager_id" validate:"required"`
}

// NewLeadHandler constructs a LeadHandler from prebuilt services.
func NewLeadHandler(leads *services.LeadService, assignment *services.AssignmentService) (*LeadHandler, error) {
	if leads == nil || assignment == nil {
		return nil, errors.New("lead handler: services are required")
	}
	return &LeadHandler{leads: leads, assignment: assignment}, nil
}

// POST /api/v1/leads
func (h *LeadHandler) Create(c *gin.Context) {
	var body createLeadRequest
	if !bindAndValidate(c, &body) {
		return
	}

	lead, err := h.leads.Create(requestContext(c), services.CreateLeadInput{
		Name:            body.Name,
		ContactName:     body.ContactName,
		ContactEmail:    body.ContactEmail,
		ContactPhone:    body.ContactPhone,
		Priority:        models.LeadPriority(body.Priority),
		DueDate:         body.DueDate,
		EstimatedValue:  body.EstimatedValue,
		EstimatedEffort: body.EstimatedEffort,
		CompanyID:       body.CompanyID,
	}, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, lead)
}

// GET /api/v1/leads
func (h *LeadHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	leads, total, err := h.leads.List(requestContext(c), services.ListLeadsInput{
		Status:       models.LeadStatus(c.Query("status")),
		Priority:     models.LeadPriority(c.Query("priority")),
		AssignedToID: c.Query("assigned_to"),
		Unassigned:   c.Query("unassigned") == "true",
		Search:       c.Query("search"),
		Page:         page,
		PageSize:     perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, leads, &response.Meta{
		Page: page, PerPage: perPage, Total: int(total),
	})
}

// GET /api/v1/leads/:id
func (h *LeadHandler) Get(c *gin.Context) {
	lead, err := h.leads.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, lead)
}

// PATCH /api/v1/leads/:id
func (h *LeadHandler) Update(c *gin.Context) {
	var body updateLeadRequest
	if !bindAndValidate(c, &body) {
		return
	}

	input := services.UpdateLeadInput{
		Name:            body.Name,
		ContactName:     body.ContactName,
		ContactEmail:    body.ContactEmail,
		ContactPhone:    body.ContactPhone,
		DueDate:         body.DueDate,
		ClearDueDate:    body.ClearDueDate,
		EstimatedValue:  body.EstimatedValue,
		EstimatedEffort: body.EstimatedEffort,
	}
	if body.Priority != nil {
		priority := models.LeadPriority(*body.Priority)
		input.Priority = &priority
	}
	if body.Status != nil {
		status := models.LeadStatus(*body.Status)
		input.Status = &status
	}

	lead, err := h.leads.Update(requestContext(c), c.Param("id"), input, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, lead)
}

// POST /api/v1/leads/:id/assign
func (h *LeadHandler) Assign(c *gin.Context) {
	var body assignLeadRequest
	if !bindAndValidate(c, &body) {
		return
	}

	lead, err := h.assignment.Assign(requestContext(c), c.Param("id"), body.ManagerID, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, lead)
}

// POST /api/v1/leads/:id/reassign
func (h *LeadHandler) Reassign(c *gin.Context) {
	var body assignLeadRequest
	if !bindAndValidate(c, &body) {
		return
	}

	lead, err := h.assignment.Reassign(requestContext(c), c.Param("id"), body.ManagerID, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, lead)
}

// POST /api/v1/leads/:id/unassign
func (h *LeadHandler) Unassign(c *gin.Context) {
	lead, err := h.assignment.Unassign(requestContext(c), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, lead)
}

// POST /api/v1/leads/assign-bulk
func (h *LeadHandler) AssignBulk(c *gin.Context) {
	var body assignBulkRequest
	if !bindAndValidate(c, &body) {
		return
	}

	leads, err := h.assignment.AssignMany(requestContext(c), body.LeadIDs, body.ManagerID, middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, leads)
}

// POST /api/v1/leads/auto-assign
func (h *LeadHandler) AutoAssign(c *gin.Context) {
	result, err := h.assignment.AutoAssign(requestContext(c), middleware.ActorID(c))
	if err != nil {
		if errors.Is(err, services.ErrNoEligibleManagers) {
			response.Error(c, apperrors.NewConflict("no eligible managers available"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
