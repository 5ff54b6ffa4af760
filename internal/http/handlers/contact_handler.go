package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/mail"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// ContactHandler пересылает обращения с формы обратной связи в поддержку.
type ContactHandler struct {
	mailer mail.Mailer
}

// NewContactHandler создаёт хэндлер.
func NewContactHandler(mailer mail.Mailer) *ContactHandler {
	return &ContactHandler{mailer: mailer}
}

// Send обрабатывает POST /contact.
func (h *ContactHandler) Send(c *gin.Context) {
	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateLength("сообщение", req.Message, 1, validation.MaxMessageLength); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.mailer.SendContactMessage(req.Name, req.Email, "Обращение с сайта", req.Message); err != nil {
		c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "сообщение отправлено", nil)
}
