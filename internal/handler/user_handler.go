package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/newsroom-tools/codex-api/internal/models"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
	"github.com/newsroom-tools/codex-api/pkg/response"
)

type userManager interface {
	ListUsers(ctx context.Context, page, pageSize int) ([]models.User, *models.Pagination, error)
	SetActive(ctx context.Context, callerID, userID string, active bool) error
}

// UserHandler exposes the admin account management endpoints.
type UserHandler struct {
	users userManager
}

// NewUserHandler creates a new handler.
func NewUserHandler(users userManager) *UserHandler {
	return &UserHandler{users: users}
}

// List godoc
// @Summary List user accounts
// @Description Returns a page of user accounts (admin only)
// @Tags Admin
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	users, pagination, err := h.users.ListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, pagination)
}

// SetActive godoc
// @Summary Enable or disable an account
// @Description Toggles the account's active flag; deactivation revokes sessions (admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body map[string]bool true "Active flag"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/users/{id}/active [patch]
func (h *UserHandler) SetActive(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "active flag required"))
		return
	}

	if err := h.users.SetActive(c.Request.Context(), claims.UserID, c.Param("id"), *payload.Active); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
