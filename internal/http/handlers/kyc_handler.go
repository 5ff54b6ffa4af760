package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// KycHandler предоставляет HTTP слой для верификации личности.
type KycHandler struct {
	svc *service.KycService
}

// NewKycHandler создаёт хэндлер.
func NewKycHandler(svc *service.KycService) *KycHandler {
	return &KycHandler{svc: svc}
}

// Get обрабатывает GET /kyc.
func (h *KycHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	kyc, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, kyc)
}

// UploadDocument обрабатывает POST /kyc/documents (multipart/form-data).
func (h *KycHandler) UploadDocument(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	docType := c.PostForm("doc_type")
	if docType == "" {
		common.RespondBadRequest(c, "поле doc_type обязательно")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "файл обязателен")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}
	defer file.Close()

	kyc, err := h.svc.UploadDocument(c.Request.Context(), userID, docType, fileHeader.Filename, file)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, kyc)
}

// History обрабатывает GET /kyc/history.
func (h *KycHandler) History(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	history, err := h.svc.History(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// ListByStatus обрабатывает GET /admin/kyc.
func (h *KycHandler) ListByStatus(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	records, err := h.svc.ListByStatus(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// SetStatus обрабатывает POST /admin/kyc/status.
func (h *KycHandler) SetStatus(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.KycStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		common.RespondBadRequest(c, "неверный формат customer_id")
		return
	}

	kyc, err := h.svc.AdminSetStatus(c.Request.Context(), adminID, customerID, req.Status, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, kyc)
}
