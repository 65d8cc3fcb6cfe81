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

// AssignmentHandlerInterface defines the contract for assignment handlers
type AssignmentHandlerInterface interface {
	GetAssignment(c fiber.Ctx) error
}

// AssignmentHandler handles assignment-related HTTP requests
type AssignmentHandler struct {
	assignmentFlow businessflow.AssignmentFlow
	validator      *validator.Validate
}

func (h *AssignmentHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AssignmentHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignmentFlow businessflow.AssignmentFlow) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentFlow: assignmentFlow,
		validator:      validator.New(),
	}
}

// GetAssignment resolves the case a session sees for a product
func (h *AssignmentHandler) GetAssignment(c fiber.Ctx) error {
	req := dto.AssignmentRequest{
		ProductID: c.Query("product_id"),
		SessionID: c.Query("session_id"),
		Force:     c.Query("force"),
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

	result, err := h.assignmentFlow.GetAssignment(h.createRequestContext(c, "/api/v1/assignment"), &req, metadata)
	if err != nil {
		log.Println("Assignment lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Assignment lookup failed", "ASSIGNMENT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Assignment resolved", result)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *AssignmentHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 10*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *AssignmentHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel) // Store cancel function for cleanup

	return ctx
}
