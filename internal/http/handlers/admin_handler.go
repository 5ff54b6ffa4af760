package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// AdminHandler предоставляет HTTP слой для администраторов и модерации.
type AdminHandler struct {
	svc *service.AdminService
}

// NewAdminHandler создаёт хэндлер.
func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Login обрабатывает POST /admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Create обрабатывает POST /admin/admins.
func (h *AdminHandler) Create(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	admin, err := h.svc.Create(c.Request.Context(), role, service.CreateAdminInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, admin)
}

// List обрабатывает GET /admin/admins.
func (h *AdminHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	admins, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, admins)
}

// SetStatus обрабатывает POST /admin/admins/:id/status.
func (h *AdminHandler) SetStatus(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	adminID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AdminStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	admin, err := h.svc.SetStatus(c.Request.Context(), role, adminID, req.Status)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, admin)
}

// ListCustomers обрабатывает GET /admin/customers.
func (h *AdminHandler) ListCustomers(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	customers, err := h.svc.ListCustomers(c.Request.Context(), c.Query("status"), c.Query("role"), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, customers)
}

// ModerateCustomer обрабатывает POST /admin/customers/:id/moderate.
func (h *AdminHandler) ModerateCustomer(c *gin.Context) {
	customerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ModerateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	customer, err := h.svc.ModerateCustomer(c.Request.Context(), customerID, req.Block)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, customer)
}
