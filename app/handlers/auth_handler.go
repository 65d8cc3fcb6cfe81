// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/shopmorph/Kaleido/app/dto"
	"github.com/shopmorph/Kaleido/app/services"
	"github.com/shopmorph/Kaleido/config"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandlerInterface defines the contract for auth handlers
type AuthHandlerInterface interface {
	IssueOperatorToken(c fiber.Ctx) error
}

// AuthHandler exchanges the shared operator secret for JWTs
type AuthHandler struct {
	tokenService services.TokenService
	securityCfg  config.SecurityConfig
	validator    *validator.Validate
}

func (h *AuthHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AuthHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(tokenService services.TokenService, securityCfg config.SecurityConfig) *AuthHandler {
	return &AuthHandler{
		tokenService: tokenService,
		securityCfg:  securityCfg,
		validator:    validator.New(),
	}
}

// IssueOperatorToken verifies the operator secret and returns a short-lived JWT
func (h *AuthHandler) IssueOperatorToken(c fiber.Ctx) error {
	var req dto.OperatorTokenRequest
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

	if h.securityCfg.OperatorSecretHash == "" {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Operator access is not configured", "OPERATOR_ACCESS_DISABLED", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.securityCfg.OperatorSecretHash), []byte(req.Secret)); err != nil {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid operator secret", "INVALID_SECRET", nil)
	}

	token, err := h.tokenService.GenerateOperatorToken(req.OperatorID)
	if err != nil {
		log.Println("Operator token generation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Token generation failed", "TOKEN_GENERATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Token issued", dto.OperatorTokenResponse{Token: token})
}
