package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"

	"cryptotopup/internal/errors"
	"cryptotopup/internal/model"
	"cryptotopup/internal/service"
)

// TopupHandler handles top-up endpoints.
type TopupHandler struct {
	topups    service.TopupService
	sanitizer *bluemonday.Policy
}

// NewTopupHandler creates a new top-up handler.
func NewTopupHandler(topups service.TopupService) *TopupHandler {
	return &TopupHandler{topups: topups, sanitizer: bluemonday.StrictPolicy()}
}

// CreateTopupRequest represents a top-up request.
type CreateTopupRequest struct {
	AmountMinor int64  `json:"amount_minor" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=255"`
}

// TopupStatusResponse represents the last known state of a top-up.
type TopupStatusResponse struct {
	PaymentID   uint       `json:"payment_id"`
	OrderID     string     `json:"order_id"`
	DisplayID   string     `json:"display_id"`
	InvoiceID   string     `json:"invoice_id,omitempty"`
	AmountMinor int64      `json:"amount_minor"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	StatusView  string     `json:"status_view"`
	IsPaid      bool       `json:"is_paid"`
	PaymentURL  string     `json:"payment_url,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	Checked     bool       `json:"checked"`
}

// CreateTopup godoc
// @Summary Create a crypto top-up invoice
// @Tags topups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTopupRequest true "Top-up data"
// @Success 201 {object} service.TopupResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /api/topups [post]
func (h *TopupHandler) CreateTopup(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req CreateTopupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	description := strings.TrimSpace(h.sanitizer.Sanitize(req.Description))
	result, err := h.topups.CreateTopup(c.Request().Context(), userID, req.AmountMinor, description)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

// GetTopup godoc
// @Summary Check a top-up
// @Description Polls the gateway and returns the last known state. Gateway outages are not errors.
// @Tags topups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} TopupStatusResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/topups/{id} [get]
func (h *TopupHandler) GetTopup(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid payment id",
			Code:  "INVALID_ID",
		})
	}

	ctx := c.Request().Context()
	payment, err := h.topups.GetPayment(ctx, uint(id))
	if err != nil {
		return mapError(err)
	}
	// other users' payments are reported as missing
	if payment.UserID != userID {
		return mapError(errors.ErrPaymentNotFound)
	}

	result, err := h.topups.CheckStatus(ctx, payment.ID)
	if err != nil {
		slog.ErrorContext(ctx, "top-up status check failed", "payment_id", payment.ID, "error", err)
		return c.JSON(http.StatusOK, toStatusResponse(payment, false))
	}
	return c.JSON(http.StatusOK, toStatusResponse(result.Payment, result.Remote != nil))
}

func toStatusResponse(p *model.CryptoPayment, checked bool) TopupStatusResponse {
	resp := TopupStatusResponse{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		DisplayID:   p.DisplayID(),
		AmountMinor: p.AmountMinor,
		Currency:    p.Currency,
		Status:      p.Status,
		StatusView:  p.StatusView(),
		IsPaid:      p.IsPaid,
		PaidAt:      p.PaidAt,
		Checked:     checked,
	}
	if p.InvoiceID != nil {
		resp.InvoiceID = *p.InvoiceID
	}
	if p.PaymentURL != nil {
		resp.PaymentURL = *p.PaymentURL
	}
	return resp
}
