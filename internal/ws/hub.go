package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	"github.com/ignatzorin/escrow-backend/internal/logger"
)

// NotificationSaver сохраняет уведомление, отправленное через хаб.
type NotificationSaver interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

// Envelope — формат исходящего сообщения WebSocket API: "type" содержит
// имя события (contract.transition, dispute.transition и т.д.), "data" —
// полезную нагрузку.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub хранит активные подключения по пользователям. Один пользователь
// может держать несколько соединений (вкладки, мобильное приложение) —
// событие доставляется в каждое.
type Hub struct {
	mu                sync.RWMutex
	clients           map[uuid.UUID]map[*Client]struct{}
	notificationSaver NotificationSaver
	ctx               context.Context
}

// NewHub создаёт новый хаб.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		ctx:     ctx,
	}
}

// SetNotificationSaver устанавливает сервис для сохранения уведомлений.
// Вызывается после создания хаба: сервис уведомлений сам зависит от хаба.
func (h *Hub) SetNotificationSaver(saver NotificationSaver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notificationSaver = saver
}

// Run блокирует до отмены контекста и закрывает все соединения при
// остановке приложения.
func (h *Hub) Run() {
	<-h.ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for client := range conns {
			close(client.send)
		}
	}
	h.clients = make(map[uuid.UUID]map[*Client]struct{})
}

// Register добавляет соединение пользователя.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

// Unregister удаляет соединение пользователя.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.userID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

// Online сообщает, есть ли у пользователя активные соединения.
func (h *Hub) Online(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// BroadcastToUser отправляет событие во все соединения пользователя и
// сохраняет уведомление в БД.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	raw, err := json.Marshal(Envelope{Type: event, Data: data})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	h.mu.RLock()
	saver := h.notificationSaver
	ctx := h.ctx
	h.mu.RUnlock()

	if saver != nil {
		// Запись в БД не должна блокировать отправку по сокету.
		goroutine.SafeGo(func() {
			if err := saver.CreateNotification(ctx, userID, event, data); err != nil && logger.Log != nil {
				logger.Log.WithField("user_id", userID).Errorf("ws: не удалось сохранить уведомление: %v", err)
			}
		})
	}

	h.send(userID, raw)
	return nil
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// Переполненный буфер означает мёртвое или безнадёжно
			// медленное соединение. Закрываем его вне лока.
			goroutine.SafeGo(client.Close)
		}
	}
}
