package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/newsroom-tools/codex-api/internal/dto"
	"github.com/newsroom-tools/codex-api/internal/models"
	"github.com/newsroom-tools/codex-api/internal/service"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
	"github.com/newsroom-tools/codex-api/pkg/response"
)

type itemService interface {
	Create(ctx context.Context, ownerID string, req dto.CreateItemRequest) (*models.CodexItem, error)
	Upload(ctx context.Context, ownerID string, meta dto.UploadItemRequest, upload service.ItemUpload) (*models.CodexItem, error)
	List(ctx context.Context, ownerID string, filter dto.ItemFilter) ([]models.CodexItem, error)
	Get(ctx context.Context, ownerID, id string) (*models.CodexItem, error)
	Update(ctx context.Context, ownerID, id string, patch dto.UpdateItemRequest) (*models.CodexItem, error)
	Delete(ctx context.Context, ownerID, id string) error
	GetDownloadURL(ctx context.Context, ownerID, id string) (string, error)
	Download(ctx context.Context, ownerID, id, token string) (*service.ItemDownload, error)
}

// ItemHandler manages codex item HTTP endpoints.
type ItemHandler struct {
	service itemService
}

// NewItemHandler constructs the handler.
func NewItemHandler(service itemService) *ItemHandler {
	return &ItemHandler{service: service}
}

// Create godoc
// @Summary Create a link or note item
// @Tags Items
// @Accept json
// @Produce json
// @Param payload body dto.CreateItemRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /codex/items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid item payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, item, nil)
}

// Upload godoc
// @Summary Upload a file-backed item
// @Tags Items
// @Accept multipart/form-data
// @Produce json
// @Param kind formData string true "Item kind"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param tags formData string false "Comma separated tags"
// @Param file formData file true "Content"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /codex/items/upload [post]
func (h *ItemHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UploadItemRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid upload payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}
	upload := service.ItemUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  reader,
	}
	item, err := h.service.Upload(c.Request.Context(), claims.UserID, req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, item, nil)
}

// List godoc
// @Summary List items
// @Tags Items
// @Produce json
// @Param kind query string false "Kind filter"
// @Param tag query string false "Tag filter"
// @Param search query string false "Title search"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Envelope
// @Router /codex/items [get]
func (h *ItemHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := dto.ItemFilter{
		Tag:    strings.TrimSpace(c.Query("tag")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "offset must be a non-negative integer"))
			return
		}
		filter.Offset = offset
	}
	if kind := c.Query("kind"); kind != "" {
		filter.Kind = models.ItemKind(strings.ToLower(kind))
		if !filter.Kind.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown item kind"))
			return
		}
	}
	items, err := h.service.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get item metadata
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /codex/items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if item.FilePath == nil {
		response.JSON(c, http.StatusOK, item, nil)
		return
	}
	downloadURL, err := h.service.GetDownloadURL(c.Request.Context(), claims.UserID, item.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ItemDownloadResponse{
		CodexItem:   *item,
		DownloadURL: downloadURL,
	}, nil)
}

// Update godoc
// @Summary Update item metadata
// @Tags Items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.UpdateItemRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /codex/items/{id} [patch]
func (h *ItemHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var patch dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid patch payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete an item
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /codex/items/{id} [delete]
func (h *ItemHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download item content via signed token
// @Tags Items
// @Produce octet-stream
// @Param id path string true "Item ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /codex/items/{id}/download [get]
func (h *ItemHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.Download(c.Request.Context(), claims.UserID, c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}
