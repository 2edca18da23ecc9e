// Package handler implements the HTTP endpoints of the bonus ledger API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/erp/bonusledger/internal/domain/shared"
	"github.com/erp/bonusledger/internal/infrastructure/logger"
	"github.com/erp/bonusledger/internal/interfaces/http/dto"
	"github.com/erp/bonusledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return c.GetString(middleware.ContextKeyRequestID)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// ErrorWithCode sends an error response, deriving the status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeBadRequest, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details ...dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", getRequestID(c), details))
}

// HandleError converts an error from the application layer to an HTTP response.
// Domain errors keep their message; anything else is logged and answered with
// a generic 500 so internals never reach the client.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	if domainErr, ok := shared.AsDomainError(err); ok {
		code := dto.NormalizeErrorCode(domainErr.Code)
		if code == dto.ErrCodeInternal {
			logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
		}
		h.ErrorWithCode(c, code, domainErr.Message)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		logger.FromContext(c.Request.Context()).Warn("request aborted before completion", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeServiceUnavailable, "Request could not be completed in time")
		return
	}

	logger.FromContext(c.Request.Context()).Error("unexpected error", zap.Error(err))
	h.ErrorWithCode(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

// BindJSON decodes the request body into req and writes the error response
// itself when decoding or validation fails.
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var validationErrs validator.ValidationErrors
	var maxBytesErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &validationErrs):
		middleware.HandleValidationError(c, err)
	case errors.As(err, &maxBytesErr):
		h.ErrorWithCode(c, dto.ErrCodeRequestTooBig, "Request body exceeds maximum allowed size")
	case errors.As(err, &typeErr):
		h.ValidationError(c, dto.ValidationDetail{Field: typeErr.Field, Message: "Invalid value type"})
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
	default:
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body could not be decoded: "+err.Error())
	}
	return false
}

// ParseUUIDParam reads a UUID path parameter, answering 400 when malformed
func (h *BaseHandler) ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidID, "Invalid "+name+" format, expected a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// HandleBindQueryError answers a failed query binding
func (h *BaseHandler) HandleBindQueryError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		middleware.HandleValidationError(c, err)
		return
	}
	h.BadRequest(c, "Invalid query parameters")
}
