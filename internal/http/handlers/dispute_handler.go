package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// DisputeHandler предоставляет HTTP слой для споров.
type DisputeHandler struct {
	svc *service.DisputeService
}

// NewDisputeHandler создаёт хэндлер.
func NewDisputeHandler(svc *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{svc: svc}
}

// Raise обрабатывает POST /contracts/:id/disputes.
func (h *DisputeHandler) Raise(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RaiseDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	milestoneID, err := uuid.Parse(req.MilestoneID)
	if err != nil {
		common.RespondBadRequest(c, "неверный формат milestone_id")
		return
	}

	result, err := h.svc.Raise(c.Request.Context(), userID, contractID, milestoneID, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Get обрабатывает GET /disputes/:id.
func (h *DisputeHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.svc.Get(c.Request.Context(), userID, role, disputeID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// ListMine обрабатывает GET /disputes.
func (h *DisputeHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.svc.ListMine(c.Request.Context(), userID, c.Query("status"), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, disputes)
}

// ListAll обрабатывает GET /admin/disputes.
func (h *DisputeHandler) ListAll(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	disputes, err := h.svc.ListAll(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, disputes)
}

// Progress обрабатывает POST /admin/disputes/:id/progress.
func (h *DisputeHandler) Progress(c *gin.Context) {
	adminID, disputeID, ok := h.adminContext(c)
	if !ok {
		return
	}

	dispute, err := h.svc.Progress(c.Request.Context(), adminID, disputeID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// Resolve обрабатывает POST /admin/disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	adminID, disputeID, ok := h.adminContext(c)
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.svc.Resolve(c.Request.Context(), adminID, disputeID, req.Winner, req.Details)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// Reject обрабатывает POST /admin/disputes/:id/reject.
func (h *DisputeHandler) Reject(c *gin.Context) {
	adminID, disputeID, ok := h.adminContext(c)
	if !ok {
		return
	}

	var req dto.RejectDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.svc.Reject(c.Request.Context(), adminID, disputeID, req.Details)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

func (h *DisputeHandler) adminContext(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	return adminID, disputeID, true
}
