package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// PaymentHandler предоставляет HTTP слой для эскроу-платежей.
type PaymentHandler struct {
	svc      *service.PaymentService
	contract *service.ContractService
}

// NewPaymentHandler создаёт хэндлер.
func NewPaymentHandler(svc *service.PaymentService, contract *service.ContractService) *PaymentHandler {
	return &PaymentHandler{svc: svc, contract: contract}
}

// Fund обрабатывает POST /contracts/:id/fund.
func (h *PaymentHandler) Fund(c *gin.Context) {
	userID, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	var req dto.FundContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Fund(c.Request.Context(), userID, contractID, req.EscrowAmount)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// PaymentSuccess обрабатывает POST /payments/success.
func (h *PaymentHandler) PaymentSuccess(c *gin.Context) {
	var req dto.PaymentSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.svc.HandlePaymentSuccess(c.Request.Context(), req.PaymentIntentID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Activate обрабатывает POST /contracts/:id/activate.
func (h *PaymentHandler) Activate(c *gin.Context) {
	userID, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	contract, err := h.svc.Activate(c.Request.Context(), userID, contractID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.contract.Progress(contract)))
}

// Release обрабатывает POST /contracts/:id/milestones/:milestoneId/release.
func (h *PaymentHandler) Release(c *gin.Context) {
	userID, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	milestoneID, err := common.ParseUUIDParam(c, "milestoneId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.svc.Release(c.Request.Context(), userID, contractID, milestoneID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.contract.Progress(contract)))
}

// CancelWithRefund обрабатывает POST /contracts/:id/refund.
func (h *PaymentHandler) CancelWithRefund(c *gin.Context) {
	userID, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}

	contract, err := h.svc.CancelWithRefund(c.Request.Context(), userID, contractID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewContractResponse(contract, h.contract.Progress(contract)))
}

// GetPayment обрабатывает GET /contracts/:id/payment.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}
	role, _ := common.CurrentUserRole(c)

	payment, err := h.svc.GetByContract(c.Request.Context(), userID, role, contractID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListTransactions обрабатывает GET /contracts/:id/transactions.
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	userID, contractID, ok := h.requestContext(c)
	if !ok {
		return
	}
	role, _ := common.CurrentUserRole(c)

	transactions, err := h.svc.ListTransactions(c.Request.Context(), userID, role, contractID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// StartOnboarding обрабатывает POST /payments/onboarding.
func (h *PaymentHandler) StartOnboarding(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	url, err := h.svc.StartOnboarding(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OnboardingResponse{URL: url})
}

// CompleteOnboarding обрабатывает POST /payments/onboarding/complete.
func (h *PaymentHandler) CompleteOnboarding(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	customer, err := h.svc.CompleteOnboarding(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

func (h *PaymentHandler) requestContext(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	return userID, contractID, true
}
