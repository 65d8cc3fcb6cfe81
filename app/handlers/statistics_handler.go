// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/shopmorph/Kaleido/app/dto"
	businessflow "github.com/shopmorph/Kaleido/business_flow"
	"github.com/shopmorph/Kaleido/utils"
)

// StatisticsHandlerInterface defines the contract for statistics handlers
type StatisticsHandlerInterface interface {
	GetStatistics(c fiber.Ctx) error
	ExportStatistics(c fiber.Ctx) error
}

// StatisticsHandler handles rollup query and export endpoints
type StatisticsHandler struct {
	statisticsFlow businessflow.StatisticsFlow
	validator      *validator.Validate
}

func (h *StatisticsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *StatisticsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewStatisticsHandler creates a new statistics handler
func NewStatisticsHandler(statisticsFlow businessflow.StatisticsFlow) *StatisticsHandler {
	return &StatisticsHandler{
		statisticsFlow: statisticsFlow,
		validator:      validator.New(),
	}
}

// parseStatisticsRequest reads tenant and date range query parameters
func (h *StatisticsHandler) parseStatisticsRequest(c fiber.Ctx) (*dto.StatisticsRequest, string) {
	tenantIDStr := c.Query("tenant_id")
	tenantID, err := strconv.ParseUint(tenantIDStr, 10, 32)
	if err != nil || tenantID == 0 {
		return nil, "tenant_id must be a positive integer"
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return nil, "from must be a date in YYYY-MM-DD format"
	}

	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return nil, "to must be a date in YYYY-MM-DD format"
	}

	if to.Before(from) {
		return nil, "to must not be before from"
	}

	return &dto.StatisticsRequest{
		TenantID: uint(tenantID),
		From:     from,
		To:       to,
	}, ""
}

// GetStatistics returns daily rollup rows for a tenant and date range
func (h *StatisticsHandler) GetStatistics(c fiber.Ctx) error {
	req, msg := h.parseStatisticsRequest(c)
	if msg != "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msg)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.statisticsFlow.ListStatistics(h.createRequestContext(c, "/api/v1/statistics"), req, metadata)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", err.Error())
		}
		if businessflow.IsUnknownTenant(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
		}

		log.Println("Statistics query failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Statistics query failed", "STATISTICS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Statistics retrieved", result)
}

// ExportStatistics returns daily rollup rows as an Excel workbook
func (h *StatisticsHandler) ExportStatistics(c fiber.Ctx) error {
	req, msg := h.parseStatisticsRequest(c)
	if msg != "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msg)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	content, err := h.statisticsFlow.ExportRange(h.createRequestContext(c, "/api/v1/statistics/export"), req, metadata)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", err.Error())
		}
		if businessflow.IsUnknownTenant(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
		}

		log.Println("Statistics export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Statistics export failed", "EXPORT_FAILED", nil)
	}

	filename := "daily-statistics-" + req.From.Format("2006-01-02") + "-" + req.To.Format("2006-01-02") + ".xlsx"
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename=\""+filename+"\"")

	return c.Status(fiber.StatusOK).Send(content)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *StatisticsHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *StatisticsHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
