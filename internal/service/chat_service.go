package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// ChatRepo описывает зависимости ChatService от слоя хранилища.
type ChatRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	GetByDisputeID(ctx context.Context, disputeID uuid.UUID) (*models.Chat, error)
	CreateMessage(ctx context.Context, message *models.ChatMessage) error
	ListMessages(ctx context.Context, chatID uuid.UUID, limit, offset int) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, chatID, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, chatID, userID uuid.UUID) (int, error)
}

// ChatService обслуживает переписку сторон внутри спора.
type ChatService struct {
	chats ChatRepo
	hub   Broadcaster
}

// NewChatService создаёт сервис чатов.
func NewChatService(chats ChatRepo, hub Broadcaster) *ChatService {
	return &ChatService{chats: chats, hub: hub}
}

// Send отправляет сообщение в чат спора. Сообщение обязано содержать текст
// или хотя бы один файл; вставка и обновление чата выполняются атомарно.
func (s *ChatService) Send(ctx context.Context, senderID, chatID uuid.UUID, content string, files []string) (*models.ChatMessage, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(senderID) {
		return nil, apperror.ErrForbidden
	}

	content = strings.TrimSpace(content)
	if err := validation.ValidateMessage(content, len(files)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	message := &models.ChatMessage{
		ChatID:   chat.ID,
		SenderID: senderID,
		Content:  content,
		Files:    files,
		ReadBy:   []uuid.UUID{senderID},
	}
	if err := s.chats.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	// Доставка по WebSocket остальным участникам, без гарантии.
	if s.hub != nil {
		for _, p := range chat.Participants {
			if p == senderID {
				continue
			}
			if err := s.hub.BroadcastToUser(p, "chat_message", message); err != nil && logger.Log != nil {
				logger.Log.Warnf("не удалось доставить сообщение чата по ws: %v", err)
			}
		}
	}

	return message, nil
}

// Get возвращает чат его участнику.
func (s *ChatService) Get(ctx context.Context, userID uuid.UUID, role string, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !isAdminRole(role) && !chat.HasParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return chat, nil
}

// GetByDispute возвращает чат, привязанный к спору.
func (s *ChatService) GetByDispute(ctx context.Context, userID uuid.UUID, role string, disputeID uuid.UUID) (*models.Chat, error) {
	chat, err := s.chats.GetByDisputeID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, apperror.ErrChatNotFound
		}
		return nil, err
	}
	if !isAdminRole(role) && !chat.HasParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return chat, nil
}

// ListMessages возвращает сообщения чата в порядке отправки.
func (s *ChatService) ListMessages(ctx context.Context, userID uuid.UUID, role string, chatID uuid.UUID, limit, offset int) ([]models.ChatMessage, error) {
	if _, err := s.Get(ctx, userID, role, chatID); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.chats.ListMessages(ctx, chatID, limit, offset)
}

// MarkRead отмечает все чужие непрочитанные сообщения чата прочитанными
// и возвращает их количество.
func (s *ChatService) MarkRead(ctx context.Context, userID, chatID uuid.UUID) (int64, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return 0, err
	}
	if !chat.HasParticipant(userID) {
		return 0, apperror.ErrForbidden
	}
	return s.chats.MarkRead(ctx, chat.ID, userID)
}

// UnreadCount возвращает число чужих непрочитанных сообщений для пользователя.
func (s *ChatService) UnreadCount(ctx context.Context, userID, chatID uuid.UUID) (int, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return 0, err
	}
	if !chat.HasParticipant(userID) {
		return 0, apperror.ErrForbidden
	}
	return s.chats.UnreadCount(ctx, chat.ID, userID)
}

func (s *ChatService) getChat(ctx context.Context, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, apperror.ErrChatNotFound
		}
		return nil, err
	}
	return chat, nil
}
