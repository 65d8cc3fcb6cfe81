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
	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/utils"
)

// RotationHandlerInterface defines the contract for rotation handlers
type RotationHandlerInterface interface {
	RunRotation(c fiber.Ctx) error
	PauseTest(c fiber.Ctx) error
	ResumeTest(c fiber.Ctx) error
}

// RotationHandler handles operator-facing rotation endpoints
type RotationHandler struct {
	rotationFlow businessflow.RotationFlow
	validator    *validator.Validate
}

func (h *RotationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *RotationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewRotationHandler creates a new rotation handler
func NewRotationHandler(rotationFlow businessflow.RotationFlow) *RotationHandler {
	return &RotationHandler{
		rotationFlow: rotationFlow,
		validator:    validator.New(),
	}
}

// RunRotation triggers one rotation pass over all due tests
func (h *RotationHandler) RunRotation(c fiber.Ctx) error {
	summary, err := h.rotationFlow.RotateDueTests(h.createRequestContext(c, "/api/v1/rotation/run"), models.RotationTriggerManual)
	if err != nil {
		log.Println("Manual rotation run failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Rotation run failed", "ROTATION_RUN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Rotation run completed", summary)
}

// PauseTest transitions an active test to paused
func (h *RotationHandler) PauseTest(c fiber.Ctx) error {
	var req dto.TestStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	if err := h.rotationFlow.PauseTest(h.createRequestContext(c, "/api/v1/rotation/pause"), req.TestID); err != nil {
		if businessflow.IsUnknownTest(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Test not found", "TEST_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidStatusTransition(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Test is not active", "TEST_NOT_ACTIVE", nil)
		}

		log.Println("Pause test failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Pause failed", "PAUSE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Test paused", fiber.Map{"test_id": req.TestID})
}

// ResumeTest transitions a paused test back to active
func (h *RotationHandler) ResumeTest(c fiber.Ctx) error {
	var req dto.TestStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	if err := h.rotationFlow.ResumeTest(h.createRequestContext(c, "/api/v1/rotation/resume"), req.TestID); err != nil {
		if businessflow.IsUnknownTest(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Test not found", "TEST_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidStatusTransition(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Test is not paused", "TEST_NOT_PAUSED", nil)
		}

		log.Println("Resume test failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Resume failed", "RESUME_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Test resumed", fiber.Map{"test_id": req.TestID})
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *RotationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *RotationHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
