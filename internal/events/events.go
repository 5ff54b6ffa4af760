// Package events публикует доменные события в Kafka. События пишутся
// после коммита транзакции: они уведомляют внешних потребителей, но не
// участвуют в согласованности данных.
package events

import "time"

// Типы событий.
const (
	TypeContractTransition  = "contract.transition"
	TypeMilestoneTransition = "milestone.transition"
	TypeDisputeTransition   = "dispute.transition"
	TypeKycTransition       = "kyc.transition"
	TypePaymentReleased     = "payment.released"
)

// Event — событие перехода сущности между статусами. Recipients
// перечисляет пользователей, которым consumer доставит уведомление.
type Event struct {
	Type       string    `json:"type"`
	EntityID   string    `json:"entity_id"`
	ContractID string    `json:"contract_id,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	Recipients []string  `json:"recipients,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher публикует события.
type Publisher interface {
	Publish(event Event) error
	Close() error
}

// NoopPublisher используется, когда Kafka не настроена.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) error { return nil }
func (NoopPublisher) Close() error        { return nil }
