package internal

import (
	"errors"
	"net/http"

	"captioner/internal/captions"

	"github.com/gin-gonic/gin"
)

const (
	MsgMissingFile     = "No file uploaded."
	MsgUnauthenticated = "Please log in to access this resource"
	MsgQuotaExhausted  = "API credits are exhausted. Please check back later."
	MsgAnalysisEmpty   = "Failed to analyze image"
	MsgGenerateFailed  = "Failed to generate caption"
)

func AbortWithJSON(c *gin.Context, code int, err error) {
	c.Abort()
	c.Error(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

func AbortWithInternalError(c *gin.Context, err error) {
	AbortWithJSON(c, http.StatusInternalServerError, err)
}

// AbortWithCaptionError maps a failed generation to its status and public
// message. Provider and storage details only reach the log.
func AbortWithCaptionError(c *gin.Context, err error) {
	kind := captions.KindOf(err)
	status, msg := describe(kind)

	if kind == captions.KindInvalidInput {
		var e *captions.Error
		if errors.As(err, &e) && e.Err != nil {
			msg = e.Err.Error()
		}
	}

	c.Abort()
	c.Error(err)
	c.JSON(status, ErrorResponse{Error: msg, Code: kind})
}

func describe(kind captions.Kind) (int, string) {
	switch kind {
	case captions.KindMissingFile:
		return http.StatusBadRequest, MsgMissingFile
	case captions.KindInvalidInput:
		return http.StatusBadRequest, "Invalid request"
	case captions.KindUnauthenticated:
		return http.StatusUnauthorized, MsgUnauthenticated
	case captions.KindQuotaExhausted:
		return http.StatusServiceUnavailable, MsgQuotaExhausted
	case captions.KindAnalysisEmpty:
		return http.StatusInternalServerError, MsgAnalysisEmpty
	}
	return http.StatusInternalServerError, MsgGenerateFailed
}
