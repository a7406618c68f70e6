package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"solana-presale/internal/presale"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps a presale failure to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, presale.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, presale.ErrSaleNotActive),
		errors.Is(err, presale.ErrSaleNotEnded),
		errors.Is(err, presale.ErrAlreadyClaimed),
		errors.Is(err, presale.ErrAlreadyBuilt),
		errors.Is(err, presale.ErrZeroAllocation),
		errors.Is(err, presale.ErrNothingToSweep):
		return http.StatusConflict
	case errors.Is(err, presale.ErrZeroAmount),
		errors.Is(err, presale.ErrInvalidAddress),
		errors.Is(err, presale.ErrOverflow):
		return http.StatusBadRequest
	case errors.Is(err, presale.ErrExchangeFailed),
		errors.Is(err, presale.ErrTransferFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     msg,
		Reason:    presale.Reason(err),
		RequestID: requestIDFrom(c),
	})
}

func abortBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:     err.Error(),
		Reason:    "invalid_request",
		RequestID: requestIDFrom(c),
	})
}
