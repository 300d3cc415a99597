package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Maneldor/la-publica-new-sub022/internal/middleware"
	"github.com/Maneldor/la-publica-new-sub022/internal/models"
	"github.com/Maneldor/la-publica-new-sub022/internal/services"
	apperrors "github.com/Maneldor/la-publica-new-sub022/pkg/errors"
	"github.com/Maneldor/la-publica-new-sub022/pkg/response"
)

// RequestHandler exposes the request lifecycle endpoints.
type RequestHandler struct {
	requests *services.RequestService
}

type createConnectionRequest struct {
	TargetID string `json:"target_id" validate:"required"`
	Message  string `json:"message" validate:"omitempty,max=1024"`
}

type createJoinRequest struct {
	Message string `json:"message" validate:"omitempty,max=1024"`
}

type createInvitationRequest struct {
	TargetID string `json:"target_id" validate:"required"`
	Message  string `json:"message" validate:"omitempty,max=1024"`
}

type reviewRequest struct {
	Note string `json:"note" validate:"omitempty,max=1024"`
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(requests *services.RequestService) (*RequestHandler, error) {
	if requests == nil {
		return nil, errors.New("request handler: request service is required")
	}
	return &RequestHandler{requests: requests}, nil
}

// POST /api/v1/connections/requests
func (h *RequestHandler) CreateConnection(c *gin.Context) {
	actor := middleware.ActorID(c)
	if actor == "" {
		response.Error(c, apperrors.NewValidation("actor id is required"))
		return
	}

	var body createConnectionRequest
	if !bindAndValidate(c, &body) {
		return
	}

	request, err := h.requests.CreateConnectionRequest(requestContext(c), actor, body.TargetID, body.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, request)
}

// POST /api/v1/groups/:id/join-requests
func (h *RequestHandler) CreateJoin(c *gin.Context) {
	actor := middleware.ActorID(c)
	if actor == "" {
		response.Error(c, apperrors.NewValidation("actor id is required"))
		return
	}

	var body createJoinRequest
	if !bindAndValidate(c, &body) {
		return
	}

	request, err := h.requests.CreateJoinRequest(requestContext(c), actor, c.Param("id"), body.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, request)
}

// POST /api/v1/groups/:id/invitations
func (h *RequestHandler) CreateInvitation(c *gin.Context) {
	actor := middleware.ActorID(c)
	if actor == "" {
		response.Error(c, apperrors.NewValidation("actor id is required"))
		return
	}

	var body createInvitationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	request, err := h.requests.CreateInvitation(requestContext(c), actor, c.Param("id"), body.TargetID, body.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, request)
}

// GET /api/v1/requests
func (h *RequestHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	requests, total, err := h.requests.List(requestContext(c), services.ListRequestsInput{
		UserID:   c.Query("user_id"),
		GroupID:  c.Query("group_id"),
		Kind:     models.RequestKind(c.Query("kind")),
		Status:   models.RequestStatus(c.Query("status")),
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, requests, &response.Meta{
		Page: page, PerPage: perPage, Total: int(total),
	})
}

// GET /api/v1/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.requests.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

// POST /api/v1/requests/:id/approve
func (h *RequestHandler) Approve(c *gin.Context) {
	h.resolve(c, services.ActionApprove)
}

// POST /api/v1/requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	h.resolve(c, services.ActionReject)
}

func (h *RequestHandler) resolve(c *gin.Context, action services.RequestAction) {
	actor := middleware.ActorID(c)
	if actor == "" {
		response.Error(c, apperrors.NewValidation("actor id is required"))
		return
	}

	var body reviewRequest
	if c.Request.ContentLength > 0 {
		if !bindAndValidate(c, &body) {
			return
		}
	}

	request, err := h.requests.Resolve(requestContext(c), c.Param("id"), action, actor, body.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

// POST /api/v1/requests/:id/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	actor := middleware.ActorID(c)
	if actor == "" {
		response.Error(c, apperrors.NewValidation("actor id is required"))
		return
	}

	request, err := h.requests.Cancel(requestContext(c), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}
