// Package httpx holds the gin middleware and the single JSON envelope every endpoint
// answers with.
package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/cozy-cafe/internal/apperr"
)

// Envelope is the response body of every endpoint.
// swagger:model Envelope
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Total   *int   `json:"total,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func OKMessage(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: msg, Data: data})
}

// List answers a collection together with its size.
func List(c *gin.Context, data any, n int) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Total: &n})
}

func Created(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: msg, Data: data})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Envelope{Error: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Envelope{Error: msg})
}

// Fail maps an error of the apperr taxonomy to its status code. Anything unclassified
// is a 500 with a generic message; the cause goes to the request log.
func Fail(c *gin.Context, err error) {
	var ise *apperr.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		c.JSON(http.StatusConflict, Envelope{Error: ise.Error(), Details: ise.Shortfalls})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, Envelope{Error: err.Error()})
	case errors.Is(err, apperr.ErrInvalidArgument), errors.Is(err, apperr.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, Envelope{Error: err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, Envelope{Error: "internal storage error"})
	}
}
