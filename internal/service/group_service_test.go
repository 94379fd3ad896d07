package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newsroom-tools/codex-api/internal/dto"
	"github.com/newsroom-tools/codex-api/internal/models"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
)

type groupStoreStub struct {
	items       map[string]*models.CodexItem
	detachCalls int
	deleteErr   error
	detachErr   error
}

func newGroupStoreStub(items ...*models.CodexItem) *groupStoreStub {
	stub := &groupStoreStub{items: make(map[string]*models.CodexItem)}
	for _, item := range items {
		stub.items[item.ID] = item
	}
	return stub
}

func (s *groupStoreStub) GetByID(ctx context.Context, id string) (*models.CodexItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *item
	return &copy, nil
}

func (s *groupStoreStub) PromoteToParent(ctx context.Context, id, name, description string) error {
	item, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.IsGroupParent = true
	item.GroupID = &item.ID
	item.GroupName = &name
	item.GroupDescription = &description
	return nil
}

func (s *groupStoreStub) UpdateGroupInfo(ctx context.Context, parentID string, name, description *string) error {
	item, ok := s.items[parentID]
	if !ok || !item.IsGroupParent {
		return sql.ErrNoRows
	}
	if name != nil {
		item.GroupName = name
	}
	if description != nil {
		item.GroupDescription = description
	}
	return nil
}

func (s *groupStoreStub) AssignToGroup(ctx context.Context, id, groupID string, partNumber int) error {
	item, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.GroupID = &groupID
	item.PartNumber = &partNumber
	return nil
}

func (s *groupStoreStub) ClearGroup(ctx context.Context, id string) error {
	item, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.GroupID = nil
	item.PartNumber = nil
	return nil
}

func (s *groupStoreStub) DetachChildren(ctx context.Context, groupID, parentID string) error {
	if s.detachErr != nil {
		return s.detachErr
	}
	s.detachCalls++
	for _, item := range s.items {
		if item.ID == parentID {
			continue
		}
		if item.GroupID != nil && *item.GroupID == groupID {
			item.GroupID = nil
			item.PartNumber = nil
		}
	}
	return nil
}

func (s *groupStoreStub) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	return nil
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func audioItem(id, ownerID string) *models.CodexItem {
	return &models.CodexItem{
		ID:        id,
		OwnerID:   ownerID,
		Kind:      models.ItemKindAudio,
		Title:     "Episode " + id,
		CreatedAt: time.Now().UTC(),
	}
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestCreateGroupPromotesItem(t *testing.T) {
	store := newGroupStoreStub(audioItem("item-1", "owner-1"))
	svc := NewGroupService(store, nil, nil)

	parent, err := svc.CreateGroup(context.Background(), "owner-1", "item-1", "Interview Series", "raw cuts")
	require.NoError(t, err)
	require.True(t, parent.IsGroupParent)
	require.NotNil(t, parent.GroupID)
	require.Equal(t, "item-1", *parent.GroupID)
	require.Equal(t, "Interview Series", *parent.GroupName)

	stored := store.items["item-1"]
	require.True(t, stored.IsGroupParent)
	require.Equal(t, "item-1", *stored.GroupID)
}

func TestCreateGroupRequiresName(t *testing.T) {
	store := newGroupStoreStub(audioItem("item-1", "owner-1"))
	svc := NewGroupService(store, nil, nil)

	_, err := svc.CreateGroup(context.Background(), "owner-1", "item-1", "   ", "")
	require.Equal(t, "VALIDATION_ERROR", errCode(t, err))
}

func TestCreateGroupRejectsNonGroupableKinds(t *testing.T) {
	for _, kind := range []models.ItemKind{models.ItemKindDocument, models.ItemKindNote} {
		item := audioItem("item-1", "owner-1")
		item.Kind = kind
		store := newGroupStoreStub(item)
		svc := NewGroupService(store, nil, nil)

		_, err := svc.CreateGroup(context.Background(), "owner-1", "item-1", "Series", "")
		require.Equal(t, "INVALID_KIND", errCode(t, err))
	}
}

func TestCreateGroupRejectsGroupedItems(t *testing.T) {
	parent := audioItem("parent-1", "owner-1")
	parent.IsGroupParent = true
	parent.GroupID = strPtr("parent-1")

	child := audioItem("child-1", "owner-1")
	child.GroupID = strPtr("parent-1")
	child.PartNumber = intPtr(1)

	store := newGroupStoreStub(parent, child)
	svc := NewGroupService(store, nil, nil)

	_, err := svc.CreateGroup(context.Background(), "owner-1", "parent-1", "Series", "")
	require.Equal(t, "ALREADY_GROUPED", errCode(t, err))

	_, err = svc.CreateGroup(context.Background(), "owner-1", "child-1", "Series", "")
	require.Equal(t, "ALREADY_GROUPED", errCode(t, err))
}

func TestCreateGroupHidesForeignItems(t *testing.T) {
	store := newGroupStoreStub(audioItem("item-1", "owner-2"))
	svc := NewGroupService(store, nil, nil)

	_, err := svc.CreateGroup(context.Background(), "owner-1", "item-1", "Series", "")
	require.Equal(t, "NOT_FOUND", errCode(t, err))
}

func newGroupFixture() (*groupStoreStub, *GroupService) {
	parent := audioItem("group-1", "owner-1")
	parent.IsGroupParent = true
	parent.GroupID = strPtr("group-1")
	parent.GroupName = strPtr("Series")

	store := newGroupStoreStub(parent, audioItem("item-1", "owner-1"))
	return store, NewGroupService(store, nil, nil)
}

func TestAddItemToGroupAssignsMembership(t *testing.T) {
	store, svc := newGroupFixture()

	err := svc.AddItemToGroup(context.Background(), "owner-1", "item-1", "group-1", 2)
	require.NoError(t, err)

	item := store.items["item-1"]
	require.Equal(t, "group-1", *item.GroupID)
	require.Equal(t, 2, *item.PartNumber)
}

func TestAddItemToGroupValidatesPartNumber(t *testing.T) {
	_, svc := newGroupFixture()

	err := svc.AddItemToGroup(context.Background(), "owner-1", "item-1", "group-1", 0)
	require.Equal(t, "VALIDATION_ERROR", errCode(t, err))
}

func TestAddItemToGroupCrossOwner(t *testing.T) {
	store, svc := newGroupFixture()
	store.items["foreign-1"] = audioItem("foreign-1", "owner-2")

	err := svc.AddItemToGroup(context.Background(), "owner-1", "foreign-1", "group-1", 1)
	require.Equal(t, "CROSS_OWNER", errCode(t, err))
}

func TestAddItemToGroupRejectsOtherGroupMembers(t *testing.T) {
	store, svc := newGroupFixture()

	other := audioItem("group-2", "owner-1")
	other.IsGroupParent = true
	other.GroupID = strPtr("group-2")
	store.items["group-2"] = other

	member := audioItem("item-2", "owner-1")
	member.GroupID = strPtr("group-2")
	member.PartNumber = intPtr(1)
	store.items["item-2"] = member

	err := svc.AddItemToGroup(context.Background(), "owner-1", "item-2", "group-1", 1)
	require.Equal(t, "ALREADY_GROUPED", errCode(t, err))

	// The other parent cannot join either.
	err = svc.AddItemToGroup(context.Background(), "owner-1", "group-2", "group-1", 1)
	require.Equal(t, "ALREADY_GROUPED", errCode(t, err))
}

func TestAddItemToGroupRejectsUngroupableKind(t *testing.T) {
	store, svc := newGroupFixture()
	doc := audioItem("doc-1", "owner-1")
	doc.Kind = models.ItemKindDocument
	store.items["doc-1"] = doc

	err := svc.AddItemToGroup(context.Background(), "owner-1", "doc-1", "group-1", 1)
	require.Equal(t, "INVALID_KIND", errCode(t, err))
}

func TestAddItemToGroupUnknownGroup(t *testing.T) {
	_, svc := newGroupFixture()

	err := svc.AddItemToGroup(context.Background(), "owner-1", "item-1", "missing", 1)
	require.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestRemoveItemFromGroupDetaches(t *testing.T) {
	store, svc := newGroupFixture()
	item := store.items["item-1"]
	item.GroupID = strPtr("group-1")
	item.PartNumber = intPtr(3)

	require.NoError(t, svc.RemoveItemFromGroup(context.Background(), "owner-1", "item-1"))
	require.Nil(t, store.items["item-1"].GroupID)
	require.Nil(t, store.items["item-1"].PartNumber)
}

func TestRemoveItemFromGroupIsIdempotent(t *testing.T) {
	_, svc := newGroupFixture()

	require.NoError(t, svc.RemoveItemFromGroup(context.Background(), "owner-1", "item-1"))
	require.NoError(t, svc.RemoveItemFromGroup(context.Background(), "owner-1", "item-1"))
}

func TestRemoveItemFromGroupRejectsParent(t *testing.T) {
	_, svc := newGroupFixture()

	err := svc.RemoveItemFromGroup(context.Background(), "owner-1", "group-1")
	require.Equal(t, "CONFLICT", errCode(t, err))
}

func TestDeleteGroupDetachesChildrenThenParent(t *testing.T) {
	store, svc := newGroupFixture()
	item := store.items["item-1"]
	item.GroupID = strPtr("group-1")
	item.PartNumber = intPtr(1)

	require.NoError(t, svc.DeleteGroup(context.Background(), "owner-1", "group-1"))

	_, exists := store.items["group-1"]
	require.False(t, exists)
	require.Nil(t, store.items["item-1"].GroupID)
	require.Equal(t, 1, store.detachCalls)
}

func TestDeleteGroupPartialFailureIsRetryable(t *testing.T) {
	store, svc := newGroupFixture()
	item := store.items["item-1"]
	item.GroupID = strPtr("group-1")
	item.PartNumber = intPtr(1)

	store.deleteErr = sql.ErrConnDone
	err := svc.DeleteGroup(context.Background(), "owner-1", "group-1")
	require.Equal(t, "PARTIAL_DELETE", errCode(t, err))

	// Children already detached; the parent survives as an orphaned anchor.
	require.Nil(t, store.items["item-1"].GroupID)
	_, exists := store.items["group-1"]
	require.True(t, exists)

	// A retry completes the dissolution.
	store.deleteErr = nil
	require.NoError(t, svc.DeleteGroup(context.Background(), "owner-1", "group-1"))
	_, exists = store.items["group-1"]
	require.False(t, exists)
}

func TestDeleteGroupRejectsNonParent(t *testing.T) {
	_, svc := newGroupFixture()

	err := svc.DeleteGroup(context.Background(), "owner-1", "item-1")
	require.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestUpdateGroupInfoPatchesParent(t *testing.T) {
	store, svc := newGroupFixture()

	parent, err := svc.UpdateGroupInfo(context.Background(), "owner-1", "group-1", dto.UpdateGroupRequest{
		Name: strPtr("Renamed"),
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed", *parent.GroupName)
	require.Equal(t, "Renamed", *store.items["group-1"].GroupName)
}

func TestUpdateGroupInfoValidation(t *testing.T) {
	_, svc := newGroupFixture()

	_, err := svc.UpdateGroupInfo(context.Background(), "owner-1", "group-1", dto.UpdateGroupRequest{})
	require.Equal(t, "VALIDATION_ERROR", errCode(t, err))

	_, err = svc.UpdateGroupInfo(context.Background(), "owner-1", "group-1", dto.UpdateGroupRequest{Name: strPtr("  ")})
	require.Equal(t, "VALIDATION_ERROR", errCode(t, err))
}
