package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrow-backend/internal/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/storage"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Маскирует внутренние ошибки и возвращает понятные сообщения клиенту.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		statusCode, message := mapError(err)
		c.JSON(statusCode, gin.H{"error": message})
	}
}

// mapError переводит ошибку в HTTP статус и сообщение для клиента.
func mapError(err error) (int, string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus, appErr.Message
	}

	var transitionErr *lifecycle.TransitionError
	if errors.As(err, &transitionErr) {
		return http.StatusBadRequest, transitionErr.Error()
	}

	switch {
	case errors.Is(err, repository.ErrCustomerNotFound):
		return http.StatusNotFound, "пользователь не найден"
	case errors.Is(err, repository.ErrAdminNotFound):
		return http.StatusNotFound, "администратор не найден"
	case errors.Is(err, repository.ErrContractNotFound):
		return http.StatusNotFound, "контракт не найден"
	case errors.Is(err, repository.ErrMilestoneNotFound):
		return http.StatusNotFound, "веха не найдена"
	case errors.Is(err, repository.ErrPaymentNotFound):
		return http.StatusNotFound, "платёж не найден"
	case errors.Is(err, repository.ErrDisputeNotFound):
		return http.StatusNotFound, "спор не найден"
	case errors.Is(err, repository.ErrChatNotFound):
		return http.StatusNotFound, "чат не найден"
	case errors.Is(err, repository.ErrKycNotFound):
		return http.StatusNotFound, "запись KYC не найдена"
	case errors.Is(err, repository.ErrEmailTaken):
		return http.StatusConflict, "email уже занят"
	case errors.Is(err, repository.ErrDisputeAlreadyOpen):
		return http.StatusConflict, "по вехе уже открыт спор"
	case errors.Is(err, repository.ErrVersionConflict):
		return http.StatusConflict, "контракт был изменён параллельно, повторите запрос"
	case errors.Is(err, storage.ErrUnsupportedFileType):
		return http.StatusBadRequest, "недопустимый тип файла"
	case errors.Is(err, storage.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "размер файла превышает лимит"
	}

	return http.StatusInternalServerError, "внутренняя ошибка сервера"
}
