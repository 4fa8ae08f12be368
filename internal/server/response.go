package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imyousuf/bizgraph/internal/parser"
)

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// respondParseError maps an ingestion failure onto an HTTP status.
func respondParseError(c *gin.Context, err error) {
	status, code := statusFor(err)
	respondError(c, status, code, err)
}

func statusFor(err error) (int, string) {
	switch kind := parser.KindOf(err); {
	case errors.Is(kind, parser.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(kind, parser.ErrMalformedJSON):
		return http.StatusUnprocessableEntity, "malformed_json"
	case errors.Is(kind, parser.ErrUnrecognizedJSONStructure):
		return http.StatusUnprocessableEntity, "unrecognized_json_structure"
	case errors.Is(kind, parser.ErrCorruptDocument):
		return http.StatusUnprocessableEntity, "corrupt_document"
	case errors.Is(kind, parser.ErrReadFailure):
		return http.StatusBadRequest, "read_failure"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
