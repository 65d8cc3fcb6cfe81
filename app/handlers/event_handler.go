// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/shopmorph/Kaleido/app/dto"
	businessflow "github.com/shopmorph/Kaleido/business_flow"
	"github.com/shopmorph/Kaleido/utils"
)

// EventHandlerInterface defines the contract for event handlers
type EventHandlerInterface interface {
	RecordEvent(c fiber.Ctx) error
}

// EventHandler handles attribution event ingestion
type EventHandler struct {
	eventFlow businessflow.EventFlow
	validator *validator.Validate
}

func (h *EventHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *EventHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventFlow businessflow.EventFlow) *EventHandler {
	return &EventHandler{
		eventFlow: eventFlow,
		validator: validator.New(),
	}
}

// RecordEvent ingests one attribution event from the storefront
func (h *EventHandler) RecordEvent(c fiber.Ctx) error {
	var req dto.RecordEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get client information
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.eventFlow.RecordEvent(h.createRequestContext(c, "/api/v1/events"), &req, metadata)
	if err != nil {
		// Handle specific business errors
		if businessflow.IsUnknownTest(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Unknown test", "UNKNOWN_TEST", nil)
		}
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid event", "INVALID_EVENT", err.Error())
		}

		log.Println("Event ingestion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Event ingestion failed", "EVENT_INGESTION_FAILED", nil)
	}

	if result.Duplicate {
		return h.SuccessResponse(c, fiber.StatusOK, "Duplicate event ignored", result)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Event recorded", result)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *EventHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 10*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *EventHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
