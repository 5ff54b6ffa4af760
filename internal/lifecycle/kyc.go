package lifecycle

import "github.com/ignatzorin/escrow-backend/internal/models"

// kycTransitions — граф статусов KYC.
var kycTransitions = transitions{
	models.KycStatusPending: set(
		models.KycStatusApproved,
		models.KycStatusRejected,
	),
	models.KycStatusApproved: set(
		models.KycStatusPending,
		models.KycStatusRevoked,
	),
	models.KycStatusRejected: set(
		models.KycStatusPending,
	),
	models.KycStatusRevoked: set(
		models.KycStatusPending,
	),
}

// CanKycTransition проверяет допустимость перехода статуса KYC.
func CanKycTransition(from, to string) bool {
	return kycTransitions.allowed(from, to)
}

// KycTransition возвращает ошибку, если переход статуса KYC недопустим.
func KycTransition(from, to string) error {
	if !kycTransitions.allowed(from, to) {
		return &TransitionError{Entity: "KYC", From: from, To: to}
	}
	return nil
}
