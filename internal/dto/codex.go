package dto

import "github.com/newsroom-tools/codex-api/internal/models"

// CreateItemRequest creates a link or note item from a JSON payload.
type CreateItemRequest struct {
	Kind        models.ItemKind `json:"kind"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	URL         *string         `json:"url"`
}

// UploadItemRequest contains metadata submitted alongside a file upload.
type UploadItemRequest struct {
	Kind        models.ItemKind `form:"kind" json:"kind"`
	Title       string          `form:"title" json:"title"`
	Description string          `form:"description" json:"description"`
	Tags        string          `form:"tags" json:"tags"`
}

// UpdateItemRequest patches free-form item metadata.
type UpdateItemRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

// ItemFilter captures item listing query parameters. Limit and Offset page
// the flat archive listing; zero values fall back to the configured page size.
type ItemFilter struct {
	Kind   models.ItemKind
	Tag    string
	Search string
	Limit  int
	Offset int
}

// ItemDownloadResponse enriches item metadata with a signed download URL.
type ItemDownloadResponse struct {
	models.CodexItem
	DownloadURL string `json:"downloadUrl"`
}

// CreateGroupRequest promotes an existing item into a group parent.
type CreateGroupRequest struct {
	ParentItemID string `json:"parentItemId" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
}

// UpdateGroupRequest patches the parent's display metadata.
type UpdateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// AddGroupItemRequest attaches an item to a group. When PartNumber is nil the
// handler asks the view service for the next suggested slot.
type AddGroupItemRequest struct {
	ItemID     string `json:"itemId" binding:"required"`
	PartNumber *int   `json:"partNumber"`
}

// GroupView bundles a parent with its ordered children and aggregates.
type GroupView struct {
	Parent   models.CodexItem   `json:"parent"`
	Children []models.CodexItem `json:"children"`
	Stats    models.GroupStats  `json:"stats"`
}

// NextPartResponse carries the suggested part number for the next addition.
type NextPartResponse struct {
	NextPartNumber int `json:"nextPartNumber"`
}
