package dto

// RegisterRequest — регистрация пользователя.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// LoginRequest — вход пользователя или администратора.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest — обновление пары токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ConfirmEmailRequest — подтверждение email кодом.
type ConfirmEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

// PasswordResetRequest — запрос кода восстановления пароля.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// PasswordResetConfirmRequest — установка нового пароля по коду.
type PasswordResetConfirmRequest struct {
	Email    string `json:"email" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MilestoneRequest — веха при создании контракта.
type MilestoneRequest struct {
	Title  string  `json:"title" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
}

// CreateContractRequest — создание контракта.
type CreateContractRequest struct {
	VendorID     string             `json:"vendor_id" binding:"required"`
	Title        string             `json:"title" binding:"required"`
	Description  string             `json:"description"`
	ContractType string             `json:"contract_type" binding:"required"`
	Budget       float64            `json:"budget" binding:"required"`
	Milestones   []MilestoneRequest `json:"milestones" binding:"required"`
}

// InviteResponseRequest — ответ исполнителя на приглашение.
type InviteResponseRequest struct {
	Accept bool `json:"accept"`
}

// ReviewMilestoneRequest — решение заказчика по вехе.
type ReviewMilestoneRequest struct {
	Approve bool `json:"approve"`
}

// FundContractRequest — финансирование контракта.
type FundContractRequest struct {
	EscrowAmount float64 `json:"escrow_amount" binding:"required"`
}

// PaymentSuccessRequest — подтверждение платежа клиентской стороной.
type PaymentSuccessRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// RaiseDisputeRequest — открытие спора по вехе.
type RaiseDisputeRequest struct {
	MilestoneID string `json:"milestone_id" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}

// ResolveDisputeRequest — решение администратора по спору.
type ResolveDisputeRequest struct {
	Winner  string `json:"winner" binding:"required"`
	Details string `json:"details"`
}

// RejectDisputeRequest — отклонение спора администратором.
type RejectDisputeRequest struct {
	Details string `json:"details"`
}

// SendMessageRequest — сообщение в чате спора.
type SendMessageRequest struct {
	Content string   `json:"content"`
	Files   []string `json:"files"`
}

// KycStatusRequest — решение администратора по верификации.
type KycStatusRequest struct {
	CustomerID string  `json:"customer_id" binding:"required"`
	Status     string  `json:"status" binding:"required"`
	Reason     *string `json:"reason"`
}

// CreateAdminRequest — создание администратора суперадмином.
type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// AdminStatusRequest — смена статуса администратора.
type AdminStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ModerateCustomerRequest — блокировка или разблокировка пользователя.
type ModerateCustomerRequest struct {
	Block bool `json:"block"`
}

// PresignUploadRequest — запрос ссылки на загрузку файла.
type PresignUploadRequest struct {
	Folder      string `json:"folder" binding:"required"`
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// ContactRequest — сообщение с формы обратной связи.
type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// RegisterDeviceRequest — регистрация FCM токена устройства.
type RegisterDeviceRequest struct {
	Token string `json:"token" binding:"required"`
}
