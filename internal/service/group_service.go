package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newsroom-tools/codex-api/internal/dto"
	"github.com/newsroom-tools/codex-api/internal/models"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
)

type groupItemStore interface {
	GetByID(ctx context.Context, id string) (*models.CodexItem, error)
	PromoteToParent(ctx context.Context, id, name, description string) error
	UpdateGroupInfo(ctx context.Context, parentID string, name, description *string) error
	AssignToGroup(ctx context.Context, id, groupID string, partNumber int) error
	ClearGroup(ctx context.Context, id string) error
	DetachChildren(ctx context.Context, groupID, parentID string) error
	Delete(ctx context.Context, id string) error
}

// GroupService owns group membership mutations: creating a group, attaching
// and detaching items, dissolving a group, and renaming it. All reads of the
// resulting structure go through GroupViewService.
type GroupService struct {
	repo   groupItemStore
	cache  *CacheService
	logger *zap.Logger
}

// NewGroupService constructs the service.
func NewGroupService(repo groupItemStore, cache *CacheService, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, cache: cache, logger: logger}
}

// CreateGroup promotes an existing item into a group parent. The group is
// keyed by the parent's own id; the parent carries the display metadata.
func (s *GroupService) CreateGroup(ctx context.Context, ownerID, parentItemID, name, description string) (*models.CodexItem, error) {
	if strings.TrimSpace(name) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group name is required")
	}

	item, err := s.ownedItem(ctx, parentItemID, ownerID)
	if err != nil {
		return nil, err
	}
	if !item.Kind.Groupable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidKind, fmt.Sprintf("%s items cannot be grouped", item.Kind))
	}
	if item.IsGroupParent {
		return nil, appErrors.Clone(appErrors.ErrAlreadyGrouped, "item already anchors a group")
	}
	if item.Grouped() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyGrouped, "item belongs to a group; detach it first")
	}

	if err := s.repo.PromoteToParent(ctx, item.ID, name, description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	s.invalidateViews(ctx, ownerID)

	item.IsGroupParent = true
	item.GroupID = &item.ID
	item.GroupName = &name
	item.GroupDescription = &description
	return item, nil
}

// AddItemToGroup attaches an item as a child of the group at the given part
// number. Part numbers need not be unique; display order falls back to
// creation time for ties. Moving an item between groups is remove-then-add.
func (s *GroupService) AddItemToGroup(ctx context.Context, ownerID, itemID, groupID string, partNumber int) error {
	if partNumber < 1 {
		return appErrors.Clone(appErrors.ErrValidation, "part number must be at least 1")
	}

	parent, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if !parent.IsGroupParent {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}

	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}

	if parent.OwnerID != ownerID || item.OwnerID != ownerID {
		return appErrors.ErrCrossOwner
	}
	if item.ID == parent.ID {
		return appErrors.Clone(appErrors.ErrAlreadyGrouped, "group parent cannot join its own group")
	}
	if !item.Kind.Groupable() {
		return appErrors.Clone(appErrors.ErrInvalidKind, fmt.Sprintf("%s items cannot be grouped", item.Kind))
	}
	if item.IsGroupParent {
		return appErrors.Clone(appErrors.ErrAlreadyGrouped, "item anchors another group")
	}
	if item.Grouped() && *item.GroupID != groupID {
		return appErrors.Clone(appErrors.ErrAlreadyGrouped, "item belongs to another group; detach it first")
	}

	if err := s.repo.AssignToGroup(ctx, item.ID, groupID, partNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach item")
	}
	s.invalidateViews(ctx, ownerID)
	return nil
}

// RemoveItemFromGroup detaches an item from whatever group it belongs to.
// Detaching an ungrouped item is a no-op, not an error. Parents cannot leave
// their own group; dissolving requires DeleteGroup.
func (s *GroupService) RemoveItemFromGroup(ctx context.Context, ownerID, itemID string) error {
	item, err := s.ownedItem(ctx, itemID, ownerID)
	if err != nil {
		return err
	}
	if item.IsGroupParent {
		return appErrors.Clone(appErrors.ErrConflict, "group parent cannot be detached; delete the group instead")
	}
	if !item.Grouped() {
		return nil
	}

	if err := s.repo.ClearGroup(ctx, item.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach item")
	}
	s.invalidateViews(ctx, ownerID)
	return nil
}

// DeleteGroup dissolves the group: children are detached first, then the
// parent item is deleted. The ordering matters against a non-transactional
// store: detaching first means a failed parent delete leaves no child with a
// dangling group reference, and the whole operation is safe to retry.
func (s *GroupService) DeleteGroup(ctx context.Context, ownerID, groupID string) error {
	parent, err := s.ownedItem(ctx, groupID, ownerID)
	if err != nil {
		return err
	}
	if !parent.IsGroupParent {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}

	if err := s.repo.DetachChildren(ctx, groupID, parent.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach group children")
	}

	if err := s.repo.Delete(ctx, parent.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Parent vanished after the detach; the group is already gone.
			s.invalidateViews(ctx, ownerID)
			return nil
		}
		s.logger.Error("group parent deletion failed after detach",
			zap.String("group_id", groupID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrPartialDelete.Code, appErrors.ErrPartialDelete.Status,
			"children detached but parent deletion failed; retry the group deletion")
	}
	s.invalidateViews(ctx, ownerID)
	return nil
}

// UpdateGroupInfo patches the parent's group name and description.
func (s *GroupService) UpdateGroupInfo(ctx context.Context, ownerID, groupID string, patch dto.UpdateGroupRequest) (*models.CodexItem, error) {
	if patch.Name == nil && patch.Description == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group name cannot be empty")
	}

	parent, err := s.ownedItem(ctx, groupID, ownerID)
	if err != nil {
		return nil, err
	}
	if !parent.IsGroupParent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}

	if err := s.repo.UpdateGroupInfo(ctx, parent.ID, patch.Name, patch.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}
	s.invalidateViews(ctx, ownerID)

	if patch.Name != nil {
		parent.GroupName = patch.Name
	}
	if patch.Description != nil {
		parent.GroupDescription = patch.Description
	}
	return parent, nil
}

// ownedItem loads an item and verifies ownership. Items owned by someone else
// report the same not-found as missing ones.
func (s *GroupService) ownedItem(ctx context.Context, id, ownerID string) (*models.CodexItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	if item.OwnerID != ownerID {
		return nil, appErrors.ErrNotFound
	}
	return item, nil
}

func (s *GroupService) invalidateViews(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, viewCachePattern(ownerID)); err != nil {
		s.logger.Warn("failed to invalidate view cache", zap.String("owner_id", ownerID), zap.Error(err))
	}
}
