package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// ContractHandler предоставляет HTTP слой для контрактов и вех.
type ContractHandler struct {
	svc *service.ContractService
}

// NewContractHandler создаёт хэндлер.
func NewContractHandler(svc *service.ContractService) *ContractHandler {
	return &ContractHandler{svc: svc}
}

// Create обрабатывает POST /contracts.
func (h *ContractHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		common.RespondBadRequest(c, "неверный формат vendor_id")
		return
	}

	milestones := make([]service.MilestoneInput, 0, len(req.Milestones))
	for _, m := range req.Milestones {
		milestones = append(milestones, service.MilestoneInput{Title: m.Title, Amount: m.Amount})
	}

	contract, err := h.svc.Create(c.Request.Context(), userID, service.CreateContractInput{
		VendorID:     vendorID,
		Title:        req.Title,
		Description:  req.Description,
		ContractType: req.ContractType,
		Budget:       req.Budget,
		Milestones:   milestones,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewContractResponse(contract, h.svc.Progress(contract)))
}

// List обрабатывает GET /contracts.
func (h *ContractHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	contracts, err := h.svc.List(c.Request.Context(), userID, c.Query("status"), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, contracts)
}

// Get обрабатывает GET /contracts/:id.
func (h *ContractHandler) Get(c *gin.Context) {
	userID, role, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	contract, err := h.svc.Get(c.Request.Context(), userID, role, contractID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.svc.Progress(contract)))
}

// SendInvite обрабатывает POST /contracts/:id/invite.
func (h *ContractHandler) SendInvite(c *gin.Context) {
	userID, _, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	contract, err := h.svc.SendInvite(c.Request.Context(), userID, contractID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.svc.Progress(contract)))
}

// RespondInvite обрабатывает POST /contracts/:id/invite/respond.
func (h *ContractHandler) RespondInvite(c *gin.Context) {
	userID, _, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	var req dto.InviteResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.svc.RespondInvite(c.Request.Context(), userID, contractID, req.Accept)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.svc.Progress(contract)))
}

// SubmitMilestone обрабатывает POST /contracts/:id/milestones/:milestoneId/submit.
func (h *ContractHandler) SubmitMilestone(c *gin.Context) {
	userID, _, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	milestoneID, err := common.ParseUUIDParam(c, "milestoneId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.svc.SubmitMilestone(c.Request.Context(), userID, contractID, milestoneID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.svc.Progress(contract)))
}

// ReviewMilestone обрабатывает POST /contracts/:id/milestones/:milestoneId/review.
func (h *ContractHandler) ReviewMilestone(c *gin.Context) {
	userID, _, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	milestoneID, err := common.ParseUUIDParam(c, "milestoneId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ReviewMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.svc.ReviewMilestone(c.Request.Context(), userID, contractID, milestoneID, req.Approve)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.svc.Progress(contract)))
}

// Cancel обрабатывает POST /contracts/:id/cancel.
func (h *ContractHandler) Cancel(c *gin.Context) {
	userID, _, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	contract, err := h.svc.Cancel(c.Request.Context(), userID, contractID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.svc.Progress(contract)))
}

// Progress обрабатывает GET /contracts/:id/progress.
func (h *ContractHandler) Progress(c *gin.Context) {
	userID, role, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	contract, err := h.svc.Get(c.Request.Context(), userID, role, contractID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, h.svc.Progress(contract))
}

func (h *ContractHandler) requestContext(c *gin.Context) (uuid.UUID, string, uuid.UUID, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return uuid.Nil, "", uuid.Nil, false
	}

	role, _ := common.CurrentUserRole(c)

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, "", uuid.Nil, false
	}

	return userID, role, contractID, true
}
