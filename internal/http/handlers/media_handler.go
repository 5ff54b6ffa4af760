package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/storage"
)

// MediaHandler выдаёт подписанные ссылки на загрузку файлов в хранилище.
type MediaHandler struct {
	storage *storage.S3Storage
}

// NewMediaHandler создаёт хэндлер.
func NewMediaHandler(s *storage.S3Storage) *MediaHandler {
	return &MediaHandler{storage: s}
}

// PresignUpload обрабатывает POST /media/presign.
func (h *MediaHandler) PresignUpload(c *gin.Context) {
	var req dto.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	uploadURL, publicURL, err := h.storage.PresignUpload(c.Request.Context(), req.Folder, req.FileName, req.ContentType)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.PresignUploadResponse{
		UploadURL: uploadURL,
		PublicURL: publicURL,
	})
}
