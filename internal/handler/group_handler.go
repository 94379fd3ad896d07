package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/newsroom-tools/codex-api/internal/dto"
	"github.com/newsroom-tools/codex-api/internal/models"
	"github.com/newsroom-tools/codex-api/internal/service"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
	"github.com/newsroom-tools/codex-api/pkg/response"
)

type groupManager interface {
	CreateGroup(ctx context.Context, ownerID, parentItemID, name, description string) (*models.CodexItem, error)
	AddItemToGroup(ctx context.Context, ownerID, itemID, groupID string, partNumber int) error
	RemoveItemFromGroup(ctx context.Context, ownerID, itemID string) error
	DeleteGroup(ctx context.Context, ownerID, groupID string) error
	UpdateGroupInfo(ctx context.Context, ownerID, groupID string, patch dto.UpdateGroupRequest) (*models.CodexItem, error)
}

type groupViewer interface {
	ListTopLevel(ctx context.Context, ownerID string, filter models.ItemFilter) ([]models.CodexItem, error)
	GetGroupItems(ctx context.Context, ownerID, groupID string) ([]models.CodexItem, error)
	GetGroupStats(ctx context.Context, ownerID, groupID string) (*models.GroupStats, error)
	SuggestNextPartNumber(ctx context.Context, ownerID, groupID string) (int, error)
	GetGroupView(ctx context.Context, ownerID, groupID string) (*dto.GroupView, error)
}

type groupExporter interface {
	ExportGroup(ctx context.Context, ownerID, groupID string, format service.ExportFormat) (*service.ExportResult, error)
}

// GroupHandler manages workspace and group HTTP endpoints.
type GroupHandler struct {
	manager  groupManager
	views    groupViewer
	exporter groupExporter
}

// NewGroupHandler constructs the handler.
func NewGroupHandler(manager groupManager, views groupViewer, exporter groupExporter) *GroupHandler {
	return &GroupHandler{manager: manager, views: views, exporter: exporter}
}

// Workspace godoc
// @Summary List the top-level workspace view
// @Description Group parents and ungrouped items; children stay hidden behind their group
// @Tags Groups
// @Produce json
// @Param kind query string false "Kind filter"
// @Param tag query string false "Tag filter"
// @Param search query string false "Title search"
// @Success 200 {object} response.Envelope
// @Router /codex/workspace [get]
func (h *GroupHandler) Workspace(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.ItemFilter{
		Tag:    strings.TrimSpace(c.Query("tag")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if kind := c.Query("kind"); kind != "" {
		filter.Kind = models.ItemKind(strings.ToLower(kind))
		if !filter.Kind.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown item kind"))
			return
		}
	}
	items, err := h.views.ListTopLevel(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create a group from an existing item
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body dto.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /codex/groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid group payload"))
		return
	}
	parent, err := h.manager.CreateGroup(c.Request.Context(), claims.UserID, req.ParentItemID, req.Name, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, parent, nil)
}

// Get godoc
// @Summary Get a group with ordered children and stats
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /codex/groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, err := h.views.GetGroupView(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Update godoc
// @Summary Update group name or description
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body dto.UpdateGroupRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /codex/groups/{id} [patch]
func (h *GroupHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var patch dto.UpdateGroupRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid patch payload"))
		return
	}
	parent, err := h.manager.UpdateGroupInfo(c.Request.Context(), claims.UserID, c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, parent, nil)
}

// Delete godoc
// @Summary Dissolve a group
// @Description Children are detached back to the top level, then the parent item is deleted
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /codex/groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.manager.DeleteGroup(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListItems godoc
// @Summary List a group's children in display order
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /codex/groups/{id}/items [get]
func (h *GroupHandler) ListItems(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.views.GetGroupItems(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Stats godoc
// @Summary Get group aggregates
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /codex/groups/{id}/stats [get]
func (h *GroupHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.views.GetGroupStats(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// NextPart godoc
// @Summary Suggest the next part number
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /codex/groups/{id}/next-part [get]
func (h *GroupHandler) NextPart(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	next, err := h.views.SuggestNextPartNumber(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NextPartResponse{NextPartNumber: next}, nil)
}

// AddItem godoc
// @Summary Attach an item to a group
// @Description When partNumber is omitted the next free slot is assigned
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body dto.AddGroupItemRequest true "Attach payload"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /codex/groups/{id}/items [post]
func (h *GroupHandler) AddItem(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AddGroupItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid attach payload"))
		return
	}
	groupID := c.Param("id")

	partNumber := 0
	if req.PartNumber != nil {
		partNumber = *req.PartNumber
	} else {
		next, err := h.views.SuggestNextPartNumber(c.Request.Context(), claims.UserID, groupID)
		if err != nil {
			response.Error(c, err)
			return
		}
		partNumber = next
	}

	if err := h.manager.AddItemToGroup(c.Request.Context(), claims.UserID, req.ItemID, groupID, partNumber); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveItem godoc
// @Summary Detach an item from its group
// @Tags Groups
// @Produce json
// @Param itemId path string true "Item ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /codex/items/{itemId}/group [delete]
func (h *GroupHandler) RemoveItem(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.manager.RemoveItemFromGroup(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a group manifest
// @Tags Groups
// @Produce octet-stream
// @Param id path string true "Group ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /codex/groups/{id}/export [get]
func (h *GroupHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exporter.ExportGroup(c.Request.Context(), claims.UserID, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.MimeType, result.Data)
}
