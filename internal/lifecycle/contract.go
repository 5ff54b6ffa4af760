package lifecycle

import "github.com/ignatzorin/escrow-backend/internal/models"

// contractTransitions — граф статусов контракта.
// Споры намеренно достижимы почти из любого рабочего состояния: поднятие
// спора принудительно переводит контракт в disputed.
var contractTransitions = transitions{
	models.ContractStatusDraft: set(
		models.ContractStatusOnboarding,
		models.ContractStatusCancelled,
	),
	models.ContractStatusOnboarding: set(
		models.ContractStatusFundingPending,
		models.ContractStatusCancelled,
	),
	models.ContractStatusFundingPending: set(
		models.ContractStatusFundingProcessing,
		models.ContractStatusCancelled,
	),
	models.ContractStatusFundingProcessing: set(
		models.ContractStatusFundingOnHold,
		models.ContractStatusCancelled,
	),
	models.ContractStatusFundingOnHold: set(
		models.ContractStatusActive,
		models.ContractStatusCancelled,
		models.ContractStatusDisputed,
	),
	models.ContractStatusActive: set(
		models.ContractStatusInReview,
		models.ContractStatusCompleted,
		models.ContractStatusCancelled,
		models.ContractStatusDisputed,
	),
	models.ContractStatusInReview: set(
		models.ContractStatusActive,
		models.ContractStatusCompleted,
		models.ContractStatusDisputed,
	),
	models.ContractStatusDisputed: set(
		models.ContractStatusDisputedInProcess,
		models.ContractStatusActive,
	),
	models.ContractStatusDisputedInProcess: set(
		models.ContractStatusDisputedResolved,
		models.ContractStatusActive,
	),
	models.ContractStatusDisputedResolved: set(
		models.ContractStatusActive,
		models.ContractStatusCompleted,
	),
}

// CanContractTransition проверяет допустимость перехода статуса контракта.
func CanContractTransition(from, to string) bool {
	return contractTransitions.allowed(from, to)
}

// ContractTransition возвращает ошибку, если переход статуса контракта
// недопустим. Сообщение ошибки называет текущий и целевой статусы.
func ContractTransition(from, to string) error {
	if !contractTransitions.allowed(from, to) {
		return &TransitionError{Entity: "контракта", From: from, To: to}
	}
	return nil
}
