package lifecycle

import "github.com/ignatzorin/escrow-backend/internal/models"

// milestoneTransitions — граф статусов вехи.
var milestoneTransitions = transitions{
	models.MilestoneStatusPending: set(
		models.MilestoneStatusWorking,
		models.MilestoneStatusDisputed,
	),
	models.MilestoneStatusWorking: set(
		models.MilestoneStatusReadyForReview,
		models.MilestoneStatusDisputed,
	),
	models.MilestoneStatusReadyForReview: set(
		models.MilestoneStatusApproved,
		models.MilestoneStatusChangeRequested,
		models.MilestoneStatusDisputed,
	),
	models.MilestoneStatusChangeRequested: set(
		models.MilestoneStatusReadyForReview,
		models.MilestoneStatusWorking,
		models.MilestoneStatusDisputed,
		// Решение спора в пользу заказчика возвращает веху в change_requested,
		// после чего заказчик может сразу принять доработку.
		models.MilestoneStatusApproved,
	),
	models.MilestoneStatusApproved: set(
		models.MilestoneStatusPaymentReleased,
		models.MilestoneStatusDisputed,
	),
	models.MilestoneStatusDisputed: set(
		models.MilestoneStatusDisputedInProcess,
		models.MilestoneStatusChangeRequested,
		models.MilestoneStatusApproved,
	),
	models.MilestoneStatusDisputedInProcess: set(
		models.MilestoneStatusDisputedResolved,
		models.MilestoneStatusChangeRequested,
		models.MilestoneStatusApproved,
	),
	models.MilestoneStatusDisputedResolved: set(
		models.MilestoneStatusChangeRequested,
		models.MilestoneStatusApproved,
	),
}

// MilestoneCompletion — фиксированный процент готовности вехи по статусу,
// используется виджетом прогресса.
var MilestoneCompletion = map[string]int{
	models.MilestoneStatusPending:           0,
	models.MilestoneStatusWorking:           25,
	models.MilestoneStatusReadyForReview:    70,
	models.MilestoneStatusChangeRequested:   50,
	models.MilestoneStatusApproved:          90,
	models.MilestoneStatusPaymentReleased:   100,
	models.MilestoneStatusDisputed:          50,
	models.MilestoneStatusDisputedInProcess: 50,
	models.MilestoneStatusDisputedResolved:  60,
}

// CanMilestoneTransition проверяет допустимость перехода статуса вехи.
func CanMilestoneTransition(from, to string) bool {
	return milestoneTransitions.allowed(from, to)
}

// MilestoneTransition возвращает ошибку, если переход статуса вехи недопустим.
func MilestoneTransition(from, to string) error {
	if !milestoneTransitions.allowed(from, to) {
		return &TransitionError{Entity: "вехи", From: from, To: to}
	}
	return nil
}
