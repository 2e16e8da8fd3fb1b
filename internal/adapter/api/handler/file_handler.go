package handler

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/infrastructure/storage"
	"pingline/pkg/errors"
	"pingline/pkg/logger"
	"pingline/pkg/response"
)

type FileHandler struct {
	storageClient *storage.CloudStorageClient
	maxFileSize   int64
}

var fileHandler *FileHandler

func NewFileHandler(storageClient *storage.CloudStorageClient) *FileHandler {
	return &FileHandler{
		storageClient: storageClient,
		maxFileSize:   5 * 1024 * 1024,
	}
}

func SetupFileHandler(storageClient *storage.CloudStorageClient) {
	fileHandler = NewFileHandler(storageClient)
}

func GetFileHandler() *FileHandler {
	return fileHandler
}

// UploadImage stores an image in the bucket and returns its public URL. The
// client sends that URL in a message; message documents never hold raw bytes.
func (h *FileHandler) UploadImage(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("Missing or invalid file", err))
	}

	if file.Size > h.maxFileSize {
		logger.Warn("Rejected upload of %d bytes (max %d)", file.Size, h.maxFileSize)
		return response.Error(c, errors.BadRequest("File size exceeds maximum allowed (5MB)", nil))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to open uploaded file", err))
	}
	defer src.Close()

	url, err := h.storageClient.UploadImage(c.Request().Context(), src, file.Header.Get("Content-Type"))
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to store image", err))
	}

	return response.Created(c, map[string]string{"url": url})
}
