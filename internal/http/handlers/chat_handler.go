package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// ChatHandler предоставляет HTTP слой для чатов споров.
type ChatHandler struct {
	svc *service.ChatService
}

// NewChatHandler создаёт хэндлер.
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// GetByDispute обрабатывает GET /disputes/:id/chat.
func (h *ChatHandler) GetByDispute(c *gin.Context) {
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

	chat, err := h.svc.GetByDispute(c.Request.Context(), userID, role, disputeID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

// ListMessages обрабатывает GET /chats/:id/messages.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, chatID, ok := h.requestContext(c)
	if !ok {
		return
	}
	role, _ := common.CurrentUserRole(c)

	limit, offset := common.GetPagination(c)
	messages, err := h.svc.ListMessages(c.Request.Context(), userID, role, chatID, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// Send обрабатывает POST /chats/:id/messages.
func (h *ChatHandler) Send(c *gin.Context) {
	userID, chatID, ok := h.requestContext(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	message, err := h.svc.Send(c.Request.Context(), userID, chatID, req.Content, req.Files)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// MarkRead обрабатывает POST /chats/:id/read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, chatID, ok := h.requestContext(c)
	if !ok {
		return
	}

	marked, err := h.svc.MarkRead(c.Request.Context(), userID, chatID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// UnreadCount обрабатывает GET /chats/:id/unread.
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID, chatID, ok := h.requestContext(c)
	if !ok {
		return
	}

	count, err := h.svc.UnreadCount(c.Request.Context(), userID, chatID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{Count: count})
}

func (h *ChatHandler) requestContext(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	chatID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	return userID, chatID, true
}
