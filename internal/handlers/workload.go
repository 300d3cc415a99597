package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Maneldor/la-publica-new-sub022/internal/services"
	"github.com/Maneldor/la-publica-new-sub022/pkg/response"
)

// WorkloadHandler exposes derived manager load.
type WorkloadHandler struct {
	workload *services.WorkloadService
}

// NewWorkloadHandler constructs a WorkloadHandler.
func NewWorkloadHandler(workload *services.WorkloadService) (*WorkloadHandler, error) {
	if workload == nil {
		return nil, errors.New("workload handler: workload service is required")
	}
	return &WorkloadHandler{workload: workload}, nil
}

// GET /api/v1/workload
func (h *WorkloadHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.workload.Snapshot(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, snapshot)
}

// GET /api/v1/workload/:manager_id
func (h *WorkloadHandler) ForManager(c *gin.Context) {
	load, err := h.workload.ForManager(requestContext(c), c.Param("manager_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, load)
}
