// Package middleware holds the gin middleware stack: request logging,
// CORS, JWT auth, and Redis-backed rate limiting.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the wire contract every response (success or failure)
// is wrapped in.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody is the {code, message} pair carried by a failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination details for list endpoints.
type Meta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int64 `json:"totalPages"`
}

// NewMeta computes TotalPages by ceiling division.
func NewMeta(page, pageSize int, totalCount int64) *Meta {
	var totalPages int64
	if pageSize > 0 {
		totalPages = (totalCount + int64(pageSize) - 1) / int64(pageSize)
	}
	return &Meta{Page: page, PageSize: pageSize, TotalCount: totalCount, TotalPages: totalPages}
}

// RespondOK writes a successful envelope.
func RespondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// RespondList writes a successful paginated envelope.
func RespondList(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: meta})
}

// RespondError writes a failure envelope and aborts the chain.
func RespondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{Success: false, Error: &ErrorBody{Code: code, Message: message}})
	c.Abort()
}

// Error code constants from the external interface contract (spec.md §7).
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeAuthn         = "AUTHENTICATION_ERROR"
	CodeAuthz         = "AUTHORIZATION_ERROR"
	CodeNotFound      = "NOT_FOUND_ERROR"
	CodeConflict      = "CONFLICT_ERROR"
	CodeRateLimited   = "RATE_LIMIT_ERROR"
	CodeInternalError = "INTERNAL_ERROR"
)
