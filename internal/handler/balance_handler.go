package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"cryptotopup/internal/service"
)

// BalanceHandler handles balance endpoints.
type BalanceHandler struct {
	users service.UserService
}

// NewBalanceHandler creates a new balance handler.
func NewBalanceHandler(users service.UserService) *BalanceHandler {
	return &BalanceHandler{users: users}
}

// BalanceResponse represents a user balance response.
type BalanceResponse struct {
	UserID            uint  `json:"user_id"`
	BalanceMinor      int64 `json:"balance_minor"`
	HasMadeFirstTopup bool  `json:"has_made_first_topup"`
}

// GetBalance godoc
// @Summary Get the caller's balance
// @Tags balance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalanceResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/me/balance [get]
func (h *BalanceHandler) GetBalance(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetUser(c.Request().Context(), userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, BalanceResponse{
		UserID:            user.ID,
		BalanceMinor:      user.BalanceMinor,
		HasMadeFirstTopup: user.HasMadeFirstTopup,
	})
}
