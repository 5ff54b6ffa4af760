package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// AuthHandler предоставляет HTTP слой для регистрации и входа пользователей.
type AuthHandler struct {
	auth         *service.AuthService
	verification *service.VerificationService
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth *service.AuthService, verification *service.VerificationService) *AuthHandler {
	return &AuthHandler{auth: auth, verification: verification}
}

func sessionMeta(c *gin.Context) service.SessionMeta {
	return service.SessionMeta{
		UserAgent: c.GetHeader("User-Agent"),
		IPAddress: c.ClientIP(),
	}
}

// Register обрабатывает POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	}, sessionMeta(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Login обрабатывает POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, sessionMeta(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Refresh обрабатывает POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, sessionMeta(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Logout обрабатывает POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "сессия завершена", nil)
}

// Me обрабатывает GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	customer, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// Deactivate обрабатывает POST /auth/deactivate.
func (h *AuthHandler) Deactivate(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	if err := h.auth.Deactivate(c.Request.Context(), userID); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "учётная запись деактивирована", nil)
}

// ConfirmEmail обрабатывает POST /auth/verify-email.
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.ConfirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.verification.ConfirmEmail(c.Request.Context(), userID, req.Code); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "email подтверждён", nil)
}

// ResendCode обрабатывает POST /auth/resend-code.
func (h *AuthHandler) ResendCode(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	customer, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.verification.SendEmailCode(c.Request.Context(), customer.ID, customer.Email); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "код отправлен", nil)
}

// RequestPasswordReset обрабатывает POST /auth/password-reset.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.verification.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		c.Error(err)
		return
	}

	// Ответ не раскрывает, существует ли пользователь.
	common.RespondSuccess(c, http.StatusOK, "если адрес зарегистрирован, код отправлен", nil)
}

// ConfirmPasswordReset обрабатывает POST /auth/password-reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req dto.PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.verification.ResetPassword(c.Request.Context(), req.Email, req.Code, req.Password); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "пароль обновлён", nil)
}
