package models

// CustomerRole роли пользователей платформы
const (
	CustomerRoleClient = "client"
	CustomerRoleVendor = "vendor"
)

// CustomerStatus статусы жизненного цикла пользователя
const (
	CustomerStatusPendingVerification = "pending_verification"
	CustomerStatusVerified            = "verified"
	CustomerStatusActive              = "active"
	CustomerStatusAdminInactive       = "admin_inactive"
	CustomerStatusUserInactive        = "user_inactive"
)

// AdminRole роли администраторов
const (
	AdminRoleSuperAdmin = "super_admin"
	AdminRoleAdmin      = "admin"
	AdminRoleModerator  = "moderator"
)

// AdminStatus статусы администраторов
const (
	AdminStatusActive   = "active"
	AdminStatusInactive = "inactive"
)

// ContractType типы контрактов (влияют на тарифную сетку комиссии)
const (
	ContractTypeServices = "services"
	ContractTypeProducts = "products"
)

// ContractStatus статусы контракта
const (
	ContractStatusDraft             = "draft"
	ContractStatusOnboarding        = "onboarding"
	ContractStatusFundingPending    = "funding_pending"
	ContractStatusFundingProcessing = "funding_processing"
	ContractStatusFundingOnHold     = "funding_onhold"
	ContractStatusActive            = "active"
	ContractStatusInReview          = "in_review"
	ContractStatusCompleted         = "completed"
	ContractStatusCancelled         = "cancelled"
	ContractStatusDisputed          = "disputed"
	ContractStatusDisputedInProcess = "disputed_in_process"
	ContractStatusDisputedResolved  = "disputed_resolved"
)

// MilestoneStatus статусы вехи внутри контракта
const (
	MilestoneStatusPending           = "pending"
	MilestoneStatusWorking           = "working"
	MilestoneStatusReadyForReview    = "ready_for_review"
	MilestoneStatusChangeRequested   = "change_requested"
	MilestoneStatusApproved          = "approved"
	MilestoneStatusPaymentReleased   = "payment_released"
	MilestoneStatusDisputed          = "disputed"
	MilestoneStatusDisputedInProcess = "disputed_in_process"
	MilestoneStatusDisputedResolved  = "disputed_resolved"
)

// PaymentStatus статусы платежа
const (
	PaymentStatusProcessing        = "processing"
	PaymentStatusFunded            = "funded"
	PaymentStatusOnHold            = "on_hold"
	PaymentStatusPartiallyReleased = "partially_released"
	PaymentStatusFullyReleased     = "fully_released"
	PaymentStatusFailed            = "failed"
	PaymentStatusRefunded          = "refunded"
	PaymentStatusDisputed          = "disputed"
)

// TransactionType типы записей журнала движений средств
const (
	TransactionTypeFee     = "fee"
	TransactionTypeFunding = "funding"
	TransactionTypeRelease = "release"
	TransactionTypeRefund  = "refund"
	TransactionTypePayout  = "payout"
)

// TransactionStatus статусы записей журнала
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// DisputeStatus статусы спора
const (
	DisputeStatusPending  = "pending"
	DisputeStatusProcess  = "process"
	DisputeStatusResolved = "resolved"
	DisputeStatusRejected = "rejected"
)

// DisputeWinner победители спора
const (
	DisputeWinnerClient = "client"
	DisputeWinnerVendor = "vendor"
)

// KycStatus статусы верификации KYC
const (
	KycStatusPending  = "pending"
	KycStatusApproved = "approved"
	KycStatusRejected = "rejected"
	KycStatusRevoked  = "revoked"
)

// VerificationType типы кодов подтверждения
const (
	VerificationTypeEmail         = "email"
	VerificationTypePasswordReset = "password_reset"
)

// ValidContractStatuses список валидных статусов контракта
var ValidContractStatuses = map[string]struct{}{
	ContractStatusDraft:             {},
	ContractStatusOnboarding:        {},
	ContractStatusFundingPending:    {},
	ContractStatusFundingProcessing: {},
	ContractStatusFundingOnHold:     {},
	ContractStatusActive:            {},
	ContractStatusInReview:          {},
	ContractStatusCompleted:         {},
	ContractStatusCancelled:         {},
	ContractStatusDisputed:          {},
	ContractStatusDisputedInProcess: {},
	ContractStatusDisputedResolved:  {},
}

// ValidMilestoneStatuses список валидных статусов вехи
var ValidMilestoneStatuses = map[string]struct{}{
	MilestoneStatusPending:           {},
	MilestoneStatusWorking:           {},
	MilestoneStatusReadyForReview:    {},
	MilestoneStatusChangeRequested:   {},
	MilestoneStatusApproved:          {},
	MilestoneStatusPaymentReleased:   {},
	MilestoneStatusDisputed:          {},
	MilestoneStatusDisputedInProcess: {},
	MilestoneStatusDisputedResolved:  {},
}

// ValidCustomerRoles список валидных ролей пользователя
var ValidCustomerRoles = map[string]struct{}{
	CustomerRoleClient: {},
	CustomerRoleVendor: {},
}

// ValidContractTypes список валидных типов контракта
var ValidContractTypes = map[string]struct{}{
	ContractTypeServices: {},
	ContractTypeProducts: {},
}
