package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/newsroom-tools/codex-api/internal/dto"
	"github.com/newsroom-tools/codex-api/internal/models"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
)

type viewItemStore interface {
	GetByID(ctx context.Context, id string) (*models.CodexItem, error)
	ListTopLevel(ctx context.Context, ownerID string, filter models.ItemFilter) ([]models.CodexItem, error)
	ListByGroup(ctx context.Context, groupID, ownerID string) ([]models.CodexItem, error)
	Aggregate(ctx context.Context, groupID, ownerID string) (*models.GroupStats, error)
}

// GroupViewService produces read views over the item collection: the
// top-level workspace listing, per-group child listings, and group
// aggregates. It never mutates state; mutations go through GroupService and
// the next read reflects them.
type GroupViewService struct {
	repo     viewItemStore
	cache    *CacheService
	statsTTL time.Duration
	viewTTL  time.Duration
	logger   *zap.Logger
}

// NewGroupViewService constructs the service. statsTTL bounds cached group
// aggregates, viewTTL the cached top-level view.
func NewGroupViewService(repo viewItemStore, cache *CacheService, statsTTL, viewTTL time.Duration, logger *zap.Logger) *GroupViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if statsTTL <= 0 {
		statsTTL = 5 * time.Minute
	}
	if viewTTL <= 0 {
		viewTTL = time.Minute
	}
	return &GroupViewService{repo: repo, cache: cache, statsTTL: statsTTL, viewTTL: viewTTL, logger: logger}
}

// PartitionTopLevel filters a flat item list down to the rows shown at the
// top of the workspace: group parents and ungrouped items, never a group's
// children. Parents sort before standalone items; within each class, newest
// first. The ordering is a fixed contract the dashboard relies on.
func PartitionTopLevel(items []models.CodexItem) []models.CodexItem {
	top := make([]models.CodexItem, 0, len(items))
	for _, item := range items {
		if item.IsGroupParent || !item.Grouped() {
			top = append(top, item)
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].IsGroupParent != top[j].IsGroupParent {
			return top[i].IsGroupParent
		}
		return top[i].CreatedAt.After(top[j].CreatedAt)
	})
	return top
}

// sortChildren orders group children by part number ascending, falling back
// to creation time for equal or missing part numbers.
func sortChildren(children []models.CodexItem) {
	sort.SliceStable(children, func(i, j int) bool {
		pi, pj := effectivePart(&children[i]), effectivePart(&children[j])
		if pi != pj {
			return pi < pj
		}
		return children[i].CreatedAt.Before(children[j].CreatedAt)
	})
}

func effectivePart(item *models.CodexItem) int {
	if item.PartNumber == nil {
		return 0
	}
	return *item.PartNumber
}

// ListTopLevel returns the owner's workspace view, computed over the full
// item collection rather than a page of it.
func (s *GroupViewService) ListTopLevel(ctx context.Context, ownerID string, filter models.ItemFilter) ([]models.CodexItem, error) {
	cacheable := filter == (models.ItemFilter{})
	key := topLevelCacheKey(ownerID)
	if cacheable && s.cache != nil {
		var cached []models.CodexItem
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	items, err := s.repo.ListTopLevel(ctx, ownerID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list items")
	}
	top := PartitionTopLevel(items)

	if cacheable && s.cache != nil {
		if err := s.cache.Set(ctx, key, top, s.viewTTL); err != nil {
			s.logger.Warn("failed to cache top-level view", zap.Error(err))
		}
	}
	return top, nil
}

// GetGroupItems returns the group's children, the parent excluded, ordered by
// part number then creation time. A dissolved or unknown group yields an
// empty list rather than an error: the group has simply stopped resolving.
func (s *GroupViewService) GetGroupItems(ctx context.Context, ownerID, groupID string) ([]models.CodexItem, error) {
	rows, err := s.repo.ListByGroup(ctx, groupID, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group items")
	}
	children := make([]models.CodexItem, 0, len(rows))
	for _, row := range rows {
		if row.IsGroupParent {
			continue
		}
		children = append(children, row)
	}
	sortChildren(children)
	return children, nil
}

// GetGroupStats returns child count and total size for the group. When the
// aggregate query yields no row the stats are recomputed from the child
// listing; reporting zero for a group that visibly has children is worse
// than the extra read.
func (s *GroupViewService) GetGroupStats(ctx context.Context, ownerID, groupID string) (*models.GroupStats, error) {
	key := groupStatsCacheKey(ownerID, groupID)
	if s.cache != nil {
		var cached models.GroupStats
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	stats, err := s.repo.Aggregate(ctx, groupID, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate group")
	}
	if stats == nil {
		children, err := s.GetGroupItems(ctx, ownerID, groupID)
		if err != nil {
			return nil, err
		}
		computed := computeStats(children)
		stats = &computed
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.statsTTL); err != nil {
			s.logger.Warn("failed to cache group stats", zap.Error(err))
		}
	}
	return stats, nil
}

// SuggestNextPartNumber proposes the slot for the group's next child:
// max(part_number) + 1, or 1 for a group with no children yet.
func (s *GroupViewService) SuggestNextPartNumber(ctx context.Context, ownerID, groupID string) (int, error) {
	children, err := s.GetGroupItems(ctx, ownerID, groupID)
	if err != nil {
		return 0, err
	}
	max := 0
	for i := range children {
		if part := effectivePart(&children[i]); part > max {
			max = part
		}
	}
	return max + 1, nil
}

// GetGroupView resolves the parent and bundles it with ordered children and
// aggregates. Unlike GetGroupItems this is parent-centric, so an unknown
// group is an error here.
func (s *GroupViewService) GetGroupView(ctx context.Context, ownerID, groupID string) (*dto.GroupView, error) {
	parent, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if parent.OwnerID != ownerID || !parent.IsGroupParent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}

	children, err := s.GetGroupItems(ctx, ownerID, groupID)
	if err != nil {
		return nil, err
	}
	stats, err := s.GetGroupStats(ctx, ownerID, groupID)
	if err != nil {
		return nil, err
	}
	return &dto.GroupView{Parent: *parent, Children: children, Stats: *stats}, nil
}

func computeStats(children []models.CodexItem) models.GroupStats {
	stats := models.GroupStats{ItemCount: len(children)}
	for _, child := range children {
		if child.SizeBytes != nil {
			stats.TotalSize += *child.SizeBytes
		}
	}
	return stats
}

func topLevelCacheKey(ownerID string) string {
	return fmt.Sprintf("codex:view:%s:toplevel", ownerID)
}

func groupStatsCacheKey(ownerID, groupID string) string {
	return fmt.Sprintf("codex:view:%s:group:%s:stats", ownerID, groupID)
}

func viewCachePattern(ownerID string) string {
	return fmt.Sprintf("codex:view:%s:*", ownerID)
}
