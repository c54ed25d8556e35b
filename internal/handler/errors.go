package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bankrec-engine/internal/domain"
	"bankrec-engine/pkg/logger"
	"bankrec-engine/pkg/response"
)

// respondError maps service errors onto the response envelope
func respondError(c *gin.Context, err error, message string) {
	var (
		empty      *domain.EmptyResultError
		rejected   *domain.FormatRejectedError
		container  *domain.ContainerError
		invalid    *domain.ValidationError
		transition *domain.InvalidTransitionError
		tooLarge   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &empty):
		response.Error(c, http.StatusBadRequest, "EMPTY_RESULT", empty.Error(), empty.Errors)
	case errors.As(err, &rejected):
		response.Error(c, http.StatusBadRequest, "FORMAT_REJECTED", rejected.Error(), "")
	case errors.As(err, &container):
		response.Error(c, http.StatusBadRequest, "INVALID_FILE", container.Error(), "")
	case errors.As(err, &invalid):
		response.ValidationError(c, invalid.Error())
	case errors.As(err, &tooLarge):
		response.RequestTooLarge(c, err.Error())
	case errors.Is(err, domain.ErrRuleSetMismatch):
		response.Error(c, http.StatusBadRequest, "RULE_SET_MISMATCH", message, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.As(err, &transition):
		response.Conflict(c, message, transition.Error())
	case errors.Is(err, domain.ErrConcurrentUpdate):
		response.Conflict(c, message, err.Error())
	default:
		logger.GetLogger().WithError(err).WithField("path", c.Request.URL.Path).Error(message)
		response.InternalError(c, message, err.Error())
	}
}

// badForm keeps oversized bodies distinguishable from a missing form field
func badForm(err error, field string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return &domain.ValidationError{Field: field, Reason: err.Error()}
}
