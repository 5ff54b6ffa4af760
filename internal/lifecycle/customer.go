package lifecycle

import "github.com/ignatzorin/escrow-backend/internal/models"

// customerTransitions — жизненный цикл пользователя.
// Онбординг в active доступен только из verified; user_inactive достижим
// из active и admin_inactive по инициативе самого пользователя.
var customerTransitions = transitions{
	models.CustomerStatusPendingVerification: set(
		models.CustomerStatusVerified,
	),
	models.CustomerStatusVerified: set(
		models.CustomerStatusActive,
	),
	models.CustomerStatusActive: set(
		models.CustomerStatusAdminInactive,
		models.CustomerStatusUserInactive,
	),
	models.CustomerStatusAdminInactive: set(
		models.CustomerStatusActive,
		models.CustomerStatusUserInactive,
	),
}

// CanCustomerTransition проверяет допустимость перехода статуса пользователя.
func CanCustomerTransition(from, to string) bool {
	return customerTransitions.allowed(from, to)
}

// CustomerTransition возвращает ошибку, если переход статуса пользователя недопустим.
func CustomerTransition(from, to string) error {
	if !customerTransitions.allowed(from, to) {
		return &TransitionError{Entity: "пользователя", From: from, To: to}
	}
	return nil
}
