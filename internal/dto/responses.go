package dto

import (
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse — стандартный формат успешного ответа с сообщением.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ContractResponse — контракт с проекциями прогресса.
type ContractResponse struct {
	*models.Contract
	Progress service.ContractProgress `json:"progress"`
}

// NewContractResponse собирает ответ по контракту.
func NewContractResponse(contract *models.Contract, progress service.ContractProgress) *ContractResponse {
	return &ContractResponse{Contract: contract, Progress: progress}
}

// OnboardingResponse — ссылка на онбординг Stripe Connect.
type OnboardingResponse struct {
	URL string `json:"url"`
}

// PresignUploadResponse — ссылки на загрузку файла в хранилище.
type PresignUploadResponse struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
}

// UnreadCountResponse — количество непрочитанного.
type UnreadCountResponse struct {
	Count int `json:"count"`
}
