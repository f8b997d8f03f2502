package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/middleware"
	"github.com/phillip/lets-hang-go/utils"
)

const (
	readTimeout  = 5 * time.Second
	listTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// respondError renders err as {success:false, message} with the status of
// its error class. Unclassified errors become 500 with fallback as message.
func respondError(c *gin.Context, err error, fallback string) {
	be := errutil.From(err, fallback)
	status := be.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		zap.L().Error("[HTTP] "+fallback,
			zap.String("path", c.FullPath()),
			zap.String("user_id", c.GetString(middleware.CtxUserID)),
			zap.Error(err),
		)
	}

	body := gin.H{"success": false, "message": be.Message}
	if len(be.Details) > 0 {
		body["details"] = be.Details
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
}

// ok merges payload into a success envelope.
func ok(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// notModified sets ETag and Last-Modified and reports whether the client
// copy is still fresh, in which case a 304 has already been written.
func notModified(c *gin.Context, id primitive.ObjectID, updatedAt time.Time, extra ...int) bool {
	etag := utils.GenerateETag(id, updatedAt, extra...)
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	c.Header("ETag", etag)
	c.Header("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	return false
}
