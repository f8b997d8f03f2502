package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phillip/lets-hang-go/utils"
)

const maxImageSize = 10 << 20

type ImageUploader interface {
	Upload(ctx context.Context, file io.Reader, folder string) (string, error)
}

type ImageStore interface {
	ImageUploader
	ImageDeleter
}

// ---------------- UPLOAD ----------------
func UploadImage(images ImageUploader) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			badRequest(c, "image file is required")
			return
		}
		if fileHeader.Size > maxImageSize {
			badRequest(c, "image must be 10MB or smaller")
			return
		}
		if ct := fileHeader.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
			badRequest(c, "only image files are allowed")
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			badRequest(c, "could not read image")
			return
		}
		defer file.Close()

		url, err := images.Upload(c.Request.Context(), file, utils.EventsFolder)
		if err != nil {
			if errors.Is(err, utils.ErrImagesDisabled) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Image uploads are not configured"})
				return
			}
			zap.L().Error("[Uploads] cloudinary upload failed", zap.String("filename", fileHeader.Filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Image upload failed"})
			return
		}

		ok(c, http.StatusOK, gin.H{"url": url})
	}
}
