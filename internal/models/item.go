package models

import (
	"time"

	"github.com/lib/pq"
)

// ItemKind classifies a codex item.
type ItemKind string

const (
	ItemKindDocument ItemKind = "document"
	ItemKindAudio    ItemKind = "audio"
	ItemKindVideo    ItemKind = "video"
	ItemKindLink     ItemKind = "link"
	ItemKindNote     ItemKind = "note"
)

// Valid reports whether the kind is one of the known values.
func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindDocument, ItemKindAudio, ItemKindVideo, ItemKindLink, ItemKindNote:
		return true
	default:
		return false
	}
}

// Groupable reports whether items of this kind may join or anchor a group.
// Documents and notes always stay flat.
func (k ItemKind) Groupable() bool {
	switch k {
	case ItemKindAudio, ItemKindVideo, ItemKindLink:
		return true
	default:
		return false
	}
}

// CodexItem is one archived unit in a user's workspace.
//
// A group is not a stored entity: it is the set of items sharing a group_id,
// keyed by the id of the parent item. Only the parent carries group_name and
// group_description; children carry part_number for ordering.
type CodexItem struct {
	ID               string         `db:"id" json:"id"`
	OwnerID          string         `db:"owner_id" json:"ownerId"`
	Kind             ItemKind       `db:"kind" json:"kind"`
	Title            string         `db:"title" json:"title"`
	Description      string         `db:"description" json:"description,omitempty"`
	Tags             pq.StringArray `db:"tags" json:"tags,omitempty"`
	URL              *string        `db:"url" json:"url,omitempty"`
	FilePath         *string        `db:"file_path" json:"-"`
	MimeType         *string        `db:"mime_type" json:"mimeType,omitempty"`
	SizeBytes        *int64         `db:"size_bytes" json:"sizeBytes,omitempty"`
	GroupID          *string        `db:"group_id" json:"groupId,omitempty"`
	IsGroupParent    bool           `db:"is_group_parent" json:"isGroupParent"`
	GroupName        *string        `db:"group_name" json:"groupName,omitempty"`
	GroupDescription *string        `db:"group_description" json:"groupDescription,omitempty"`
	PartNumber       *int           `db:"part_number" json:"partNumber,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt"`
}

// Grouped reports whether the item currently belongs to any group.
func (i *CodexItem) Grouped() bool {
	return i.GroupID != nil && *i.GroupID != ""
}

// ItemFilter narrows item listing queries by metadata fields.
type ItemFilter struct {
	Kind   ItemKind
	Tag    string
	Search string
	Limit  int
	Offset int
}

// GroupStats aggregates a group's children. The parent item is excluded from
// both the count and the total size.
type GroupStats struct {
	ItemCount int   `db:"item_count" json:"itemCount"`
	TotalSize int64 `db:"total_size" json:"totalSize"`
}
