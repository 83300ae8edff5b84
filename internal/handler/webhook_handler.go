package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"cryptotopup/internal/errors"
	"cryptotopup/internal/service"
)

const callbackKeyHeader = "X-Shkeeper-Api-Key"

// CallbackVerifier checks the shared secret presented by the gateway.
type CallbackVerifier interface {
	VerifyCallback(presented string) bool
}

// WebhookHandler receives gateway callbacks.
type WebhookHandler struct {
	topups   service.TopupService
	verifier CallbackVerifier
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(topups service.TopupService, verifier CallbackVerifier) *WebhookHandler {
	return &WebhookHandler{topups: topups, verifier: verifier}
}

// WebhookResponse acknowledges a callback.
type WebhookResponse struct {
	Status string `json:"status"`
}

// HandleShkeeper godoc
// @Summary SHKeeper payment callback
// @Description Answers 200 for every authenticated callback so the gateway stops retrying.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Shkeeper-Api-Key header string true "Callback key"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /webhooks/shkeeper [post]
func (h *WebhookHandler) HandleShkeeper(c echo.Context) error {
	ctx := c.Request().Context()

	if !h.verifier.VerifyCallback(c.Request().Header.Get(callbackKeyHeader)) {
		slog.WarnContext(ctx, "shkeeper callback rejected", "remote_ip", c.RealIP())
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "invalid callback key",
			Code:  "UNAUTHORIZED",
		})
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "unreadable body",
			Code:  "INVALID_REQUEST",
		})
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "body must be a JSON object",
			Code:  "INVALID_REQUEST",
		})
	}

	if _, err := h.topups.HandleCallback(ctx, payload); err != nil {
		if stderrors.Is(err, errors.ErrPaymentNotFound) {
			return c.JSON(http.StatusOK, WebhookResponse{Status: "not_found"})
		}
		slog.ErrorContext(ctx, "shkeeper callback failed", "error", err)
		return c.JSON(http.StatusOK, WebhookResponse{Status: "error"})
	}
	return c.JSON(http.StatusOK, WebhookResponse{Status: "ok"})
}
