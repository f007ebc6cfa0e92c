package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/errs"
	"github.com/ntalhaozcandev/basic-ecom-backend/internal/util"
)

// Response is the standard success envelope
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Errors    interface{} `json:"errors,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func respondError(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{
		Success:   false,
		Message:   message,
		Errors:    details,
		Timestamp: time.Now().UTC(),
	})
}

// respondFromError maps service errors onto HTTP statuses. Internal errors
// are logged with their cause but never leak it to the client.
func respondFromError(c *gin.Context, err error) {
	var details interface{}
	if code := errs.CodeOf(err); code != "" {
		details = gin.H{"code": code}
	}

	switch errs.KindOf(err) {
	case errs.KindValidation:
		respondError(c, http.StatusBadRequest, err.Error(), details)
	case errs.KindForbidden:
		respondError(c, http.StatusForbidden, err.Error(), details)
	case errs.KindNotFound:
		respondError(c, http.StatusNotFound, err.Error(), details)
	case errs.KindConflict:
		respondError(c, http.StatusConflict, err.Error(), details)
	case errs.KindGateway:
		respondError(c, http.StatusBadRequest, err.Error(), details)
	default:
		util.GetLogger().Error("Internal error", zap.Error(err),
			zap.String("path", c.FullPath()))
		respondError(c, http.StatusInternalServerError, "internal server error", nil)
	}
}
