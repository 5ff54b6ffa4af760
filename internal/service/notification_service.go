package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/events"
	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/push"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

// NotificationRepo описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepo interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	UpsertDeviceToken(ctx context.Context, customerID uuid.UUID, token string) error
	GetDeviceToken(ctx context.Context, customerID uuid.UUID) (*models.DeviceToken, error)
	DeleteDeviceToken(ctx context.Context, customerID uuid.UUID) error
}

// Broadcaster доставляет событие пользователю по WebSocket.
type Broadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// NotificationService содержит бизнес-логику уведомлений: хранение,
// доставка по WebSocket и FCM, публикация доменных событий в Kafka.
// При настроенной Kafka доставка идёт через consumer (HandleEvent),
// без неё — напрямую в той же горутине, что и публикация.
type NotificationService struct {
	repo      NotificationRepo
	publisher events.Publisher
	hub       Broadcaster
	pusher    push.Sender
	direct    bool
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(repo NotificationRepo, publisher events.Publisher, hub Broadcaster, pusher push.Sender) *NotificationService {
	_, noKafka := publisher.(events.NoopPublisher)
	return &NotificationService{
		repo:      repo,
		publisher: publisher,
		hub:       hub,
		pusher:    pusher,
		direct:    noKafka,
	}
}

// PublishTransition рассылает событие перехода после коммита транзакции.
// Доставка строго best-effort: ошибки логируются и никогда не прерывают
// родительскую операцию.
func (s *NotificationService) PublishTransition(event events.Event, recipients ...uuid.UUID) {
	for _, userID := range recipients {
		event.Recipients = append(event.Recipients, userID.String())
	}

	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.publisher.Publish(event); err != nil && logger.Log != nil {
			logger.Log.WithField("event", event.Type).Errorf("не удалось опубликовать событие: %v", err)
		}

		// С Kafka получателям доставит consumer, иначе доставляем сами.
		if s.direct {
			for _, userID := range recipients {
				s.deliver(ctx, userID, event)
			}
		}
	})
}

// HandleEvent реализует events.Handler: доставляет событие, прочитанное
// из Kafka, всем перечисленным в нём получателям.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	for _, raw := range event.Recipients {
		userID, err := uuid.Parse(raw)
		if err != nil {
			if logger.Log != nil {
				logger.Log.WithField("recipient", raw).Errorf("событие с нечитаемым получателем: %v", err)
			}
			continue
		}
		s.deliver(ctx, userID, event)
	}
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, userID uuid.UUID, event events.Event) {
	if _, err := s.CreateNotification(ctx, userID, event.Type, event); err != nil && logger.Log != nil {
		logger.Log.WithField("user_id", userID).Errorf("не удалось сохранить уведомление: %v", err)
	}

	if s.hub != nil {
		if err := s.hub.BroadcastToUser(userID, event.Type, event); err != nil && logger.Log != nil {
			logger.Log.WithField("user_id", userID).Errorf("не удалось отправить по websocket: %v", err)
		}
	}

	if s.pusher != nil {
		token, err := s.repo.GetDeviceToken(ctx, userID)
		if err != nil {
			return
		}
		data := map[string]string{
			"type":        event.Type,
			"entity_id":   event.EntityID,
			"contract_id": event.ContractID,
		}
		if err := s.pusher.Send(ctx, token.FCMToken, pushTitle(event), pushBody(event), data); err != nil && logger.Log != nil {
			logger.Log.WithField("user_id", userID).Errorf("не удалось отправить push: %v", err)
		}
	}
}

// CreateNotification создаёт новое уведомление.
func (s *NotificationService) CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) (*models.Notification, error) {
	payload := map[string]interface{}{
		"event": event,
		"data":  data,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{
		UserID:  userID,
		Payload: payloadBytes,
		IsRead:  false,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	return notification, nil
}

// CreateNotificationForWS сохраняет уведомление, отправленное через хаб.
// Используется адаптером WebSocket хаба.
func (s *NotificationService) CreateNotificationForWS(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	_, err := s.CreateNotification(ctx, userID, event, data)
	return err
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if err == repository.ErrNotificationNotFound {
			return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
		}
		return err
	}
	return nil
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// UnreadCount возвращает количество непрочитанных уведомлений.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// RegisterDevice сохраняет FCM токен устройства пользователя.
func (s *NotificationService) RegisterDevice(ctx context.Context, customerID uuid.UUID, token string) error {
	if token == "" {
		return apperror.New(apperror.ErrCodeValidation, "fcm токен обязателен")
	}
	return s.repo.UpsertDeviceToken(ctx, customerID, token)
}

// UnregisterDevice удаляет FCM токен устройства.
func (s *NotificationService) UnregisterDevice(ctx context.Context, customerID uuid.UUID) error {
	return s.repo.DeleteDeviceToken(ctx, customerID)
}

func pushTitle(event events.Event) string {
	switch event.Type {
	case events.TypeContractTransition:
		return "Контракт обновлён"
	case events.TypeMilestoneTransition:
		return "Веха обновлена"
	case events.TypeDisputeTransition:
		return "Обновление по спору"
	case events.TypeKycTransition:
		return "Обновление верификации"
	case events.TypePaymentReleased:
		return "Выплата по вехе"
	default:
		return "Уведомление"
	}
}

func pushBody(event events.Event) string {
	if event.FromStatus != "" && event.ToStatus != "" {
		return fmt.Sprintf("Статус изменён: %s → %s", event.FromStatus, event.ToStatus)
	}
	return "Откройте приложение, чтобы посмотреть детали"
}
