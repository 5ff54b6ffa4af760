package lifecycle

import "github.com/ignatzorin/escrow-backend/internal/models"

// disputeTransitions — граф статусов спора.
// rejected — терминальная альтернатива resolved, достижимая только из pending.
var disputeTransitions = transitions{
	models.DisputeStatusPending: set(
		models.DisputeStatusProcess,
		models.DisputeStatusRejected,
	),
	models.DisputeStatusProcess: set(
		models.DisputeStatusResolved,
	),
}

// CanDisputeTransition проверяет допустимость перехода статуса спора.
func CanDisputeTransition(from, to string) bool {
	return disputeTransitions.allowed(from, to)
}

// DisputeTransition возвращает ошибку, если переход статуса спора недопустим.
func DisputeTransition(from, to string) error {
	if !disputeTransitions.allowed(from, to) {
		return &TransitionError{Entity: "спора", From: from, To: to}
	}
	return nil
}
