package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/newsroom-tools/codex-api/internal/models"
)

const itemColumns = `id, owner_id, kind, title, description, tags, url, file_path, mime_type, size_bytes,
       group_id, is_group_parent, group_name, group_description, part_number, created_at, updated_at`

// ItemRepository handles codex item persistence.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository constructs the repository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Insert stores a new codex item.
func (r *ItemRepository) Insert(ctx context.Context, item *models.CodexItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}
	const query = `INSERT INTO codex_items
	(id, owner_id, kind, title, description, tags, url, file_path, mime_type, size_bytes,
	 group_id, is_group_parent, group_name, group_description, part_number, created_at, updated_at)
	VALUES (:id, :owner_id, :kind, :title, :description, :tags, :url, :file_path, :mime_type, :size_bytes,
	 :group_id, :is_group_parent, :group_name, :group_description, :part_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("insert codex item: %w", err)
	}
	return nil
}

// GetByID retrieves one item row.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.CodexItem, error) {
	query := `SELECT ` + itemColumns + ` FROM codex_items WHERE id = $1`
	var item models.CodexItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByOwner returns a page of the owner's items applying optional filters,
// newest first.
func (r *ItemRepository) ListByOwner(ctx context.Context, ownerID string, filter models.ItemFilter) ([]models.CodexItem, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + itemColumns + ` FROM codex_items`)
	conditions, args := itemFilterClauses(ownerID, filter)

	builder.WriteString(" WHERE ")
	builder.WriteString(strings.Join(conditions, " AND "))
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var records []models.CodexItem
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list codex items: %w", err)
	}
	return records, nil
}

// ListTopLevel returns every row shown at the top of the workspace: group
// parents and ungrouped items, parents first, newest first within each
// class. The workspace view is defined over the owner's full collection, so
// unlike ListByOwner no paging cap applies.
func (r *ItemRepository) ListTopLevel(ctx context.Context, ownerID string, filter models.ItemFilter) ([]models.CodexItem, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + itemColumns + ` FROM codex_items`)
	conditions, args := itemFilterClauses(ownerID, filter)
	conditions = append(conditions, "(is_group_parent OR group_id IS NULL)")

	builder.WriteString(" WHERE ")
	builder.WriteString(strings.Join(conditions, " AND "))
	builder.WriteString(" ORDER BY is_group_parent DESC, created_at DESC")

	var records []models.CodexItem
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list top-level items: %w", err)
	}
	return records, nil
}

func itemFilterClauses(ownerID string, filter models.ItemFilter) ([]string, []interface{}) {
	args := []interface{}{ownerID}
	conditions := []string{"owner_id = $1"}

	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	return conditions, args
}

// ListByGroup returns every item referencing the group, the parent included,
// ordered by part number then creation time.
func (r *ItemRepository) ListByGroup(ctx context.Context, groupID, ownerID string) ([]models.CodexItem, error) {
	query := `SELECT ` + itemColumns + ` FROM codex_items
	WHERE group_id = $1 AND owner_id = $2
	ORDER BY COALESCE(part_number, 0) ASC, created_at ASC`
	var records []models.CodexItem
	if err := r.db.SelectContext(ctx, &records, query, groupID, ownerID); err != nil {
		return nil, fmt.Errorf("list group items: %w", err)
	}
	return records, nil
}

// Aggregate computes child count and total size for a group. The GROUP BY
// means a group with no children yields no row at all; that case is returned
// as (nil, nil) and callers must recompute from the child listing.
func (r *ItemRepository) Aggregate(ctx context.Context, groupID, ownerID string) (*models.GroupStats, error) {
	const query = `SELECT COUNT(*) AS item_count, COALESCE(SUM(size_bytes), 0) AS total_size
	FROM codex_items
	WHERE group_id = $1 AND owner_id = $2 AND NOT is_group_parent
	GROUP BY group_id`
	var stats models.GroupStats
	if err := r.db.GetContext(ctx, &stats, query, groupID, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("aggregate group: %w", err)
	}
	return &stats, nil
}

// UpdateMeta patches free-form metadata fields on an item.
func (r *ItemRepository) UpdateMeta(ctx context.Context, id string, title, description *string, tags *[]string) error {
	sets := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}

	if title != nil {
		args = append(args, *title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if description != nil {
		args = append(args, *description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if tags != nil {
		args = append(args, pq.StringArray(*tags))
		sets = append(sets, fmt.Sprintf("tags = $%d", len(args)))
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE codex_items SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return r.exec(ctx, query, args...)
}

// PromoteToParent marks the item as a group parent keyed by its own id.
func (r *ItemRepository) PromoteToParent(ctx context.Context, id, name, description string) error {
	const query = `UPDATE codex_items
	SET is_group_parent = TRUE, group_id = id, group_name = $2, group_description = $3, updated_at = $4
	WHERE id = $1`
	return r.exec(ctx, query, id, name, description, time.Now().UTC())
}

// UpdateGroupInfo patches the display metadata on a group parent.
func (r *ItemRepository) UpdateGroupInfo(ctx context.Context, parentID string, name, description *string) error {
	sets := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}

	if name != nil {
		args = append(args, *name)
		sets = append(sets, fmt.Sprintf("group_name = $%d", len(args)))
	}
	if description != nil {
		args = append(args, *description)
		sets = append(sets, fmt.Sprintf("group_description = $%d", len(args)))
	}

	args = append(args, parentID)
	query := fmt.Sprintf("UPDATE codex_items SET %s WHERE id = $%d AND is_group_parent", strings.Join(sets, ", "), len(args))
	return r.exec(ctx, query, args...)
}

// AssignToGroup attaches an item to a group at the given part number.
func (r *ItemRepository) AssignToGroup(ctx context.Context, id, groupID string, partNumber int) error {
	const query = `UPDATE codex_items
	SET group_id = $2, part_number = $3, updated_at = $4
	WHERE id = $1`
	return r.exec(ctx, query, id, groupID, partNumber, time.Now().UTC())
}

// ClearGroup detaches a single item from its group. Clearing an already
// detached item still succeeds: the row matches and is rewritten as-is.
func (r *ItemRepository) ClearGroup(ctx context.Context, id string) error {
	const query = `UPDATE codex_items
	SET group_id = NULL, part_number = NULL, updated_at = $2
	WHERE id = $1`
	return r.exec(ctx, query, id, time.Now().UTC())
}

// DetachChildren clears group membership on every child, leaving the parent
// row untouched. Safe to re-run: already detached children no longer match.
func (r *ItemRepository) DetachChildren(ctx context.Context, groupID, parentID string) error {
	const query = `UPDATE codex_items
	SET group_id = NULL, part_number = NULL, updated_at = $3
	WHERE group_id = $1 AND id <> $2`
	if _, err := r.db.ExecContext(ctx, query, groupID, parentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("detach group children: %w", err)
	}
	return nil
}

// Delete removes an item row permanently.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM codex_items WHERE id = $1`
	return r.exec(ctx, query, id)
}

func (r *ItemRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec codex item update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
