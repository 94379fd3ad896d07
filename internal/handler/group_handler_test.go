package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/newsroom-tools/codex-api/internal/dto"
	"github.com/newsroom-tools/codex-api/internal/middleware"
	"github.com/newsroom-tools/codex-api/internal/models"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
)

type fakeGroupManager struct {
	created    *models.CodexItem
	createErr  error
	addErr     error
	lastAdd    struct {
		itemID     string
		groupID    string
		partNumber int
	}
	removeCalls int
	deleteErr   error
}

func (f *fakeGroupManager) CreateGroup(ctx context.Context, ownerID, parentItemID, name, description string) (*models.CodexItem, error) {
	return f.created, f.createErr
}

func (f *fakeGroupManager) AddItemToGroup(ctx context.Context, ownerID, itemID, groupID string, partNumber int) error {
	f.lastAdd.itemID = itemID
	f.lastAdd.groupID = groupID
	f.lastAdd.partNumber = partNumber
	return f.addErr
}

func (f *fakeGroupManager) RemoveItemFromGroup(ctx context.Context, ownerID, itemID string) error {
	f.removeCalls++
	return nil
}

func (f *fakeGroupManager) DeleteGroup(ctx context.Context, ownerID, groupID string) error {
	return f.deleteErr
}

func (f *fakeGroupManager) UpdateGroupInfo(ctx context.Context, ownerID, groupID string, patch dto.UpdateGroupRequest) (*models.CodexItem, error) {
	return f.created, nil
}

type fakeGroupViewer struct {
	topLevel []models.CodexItem
	view     *dto.GroupView
	viewErr  error
	nextPart int
}

func (f *fakeGroupViewer) ListTopLevel(ctx context.Context, ownerID string, filter models.ItemFilter) ([]models.CodexItem, error) {
	return f.topLevel, nil
}

func (f *fakeGroupViewer) GetGroupItems(ctx context.Context, ownerID, groupID string) ([]models.CodexItem, error) {
	if f.view == nil {
		return nil, nil
	}
	return f.view.Children, nil
}

func (f *fakeGroupViewer) GetGroupStats(ctx context.Context, ownerID, groupID string) (*models.GroupStats, error) {
	if f.view == nil {
		return &models.GroupStats{}, nil
	}
	return &f.view.Stats, nil
}

func (f *fakeGroupViewer) SuggestNextPartNumber(ctx context.Context, ownerID, groupID string) (int, error) {
	return f.nextPart, nil
}

func (f *fakeGroupViewer) GetGroupView(ctx context.Context, ownerID, groupID string) (*dto.GroupView, error) {
	return f.view, f.viewErr
}

func authedContext(t *testing.T, rec *httptest.ResponseRecorder) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(rec)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "owner-1", Role: models.RoleJournalist})
	return c
}

func TestGroupHandlerCreate(t *testing.T) {
	name := "Series"
	manager := &fakeGroupManager{created: &models.CodexItem{ID: "g1", IsGroupParent: true, GroupName: &name}}
	handler := NewGroupHandler(manager, &fakeGroupViewer{}, nil)

	body, _ := json.Marshal(dto.CreateGroupRequest{ParentItemID: "item-1", Name: "Series"})
	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/codex/groups", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestGroupHandlerCreateRequiresName(t *testing.T) {
	handler := NewGroupHandler(&fakeGroupManager{}, &fakeGroupViewer{}, nil)

	body, _ := json.Marshal(map[string]string{"parentItemId": "item-1"})
	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/codex/groups", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupHandlerAddItemUsesSuggestedPart(t *testing.T) {
	manager := &fakeGroupManager{}
	handler := NewGroupHandler(manager, &fakeGroupViewer{nextPart: 4}, nil)

	body, _ := json.Marshal(dto.AddGroupItemRequest{ItemID: "item-9"})
	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/codex/groups/g1/items", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "g1"}}

	handler.AddItem(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "item-9", manager.lastAdd.itemID)
	assert.Equal(t, "g1", manager.lastAdd.groupID)
	assert.Equal(t, 4, manager.lastAdd.partNumber)
}

func TestGroupHandlerAddItemExplicitPart(t *testing.T) {
	manager := &fakeGroupManager{}
	handler := NewGroupHandler(manager, &fakeGroupViewer{nextPart: 4}, nil)

	part := 2
	body, _ := json.Marshal(dto.AddGroupItemRequest{ItemID: "item-9", PartNumber: &part})
	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/codex/groups/g1/items", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "g1"}}

	handler.AddItem(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, manager.lastAdd.partNumber)
}

func TestGroupHandlerAddItemConflictStatus(t *testing.T) {
	manager := &fakeGroupManager{addErr: appErrors.ErrAlreadyGrouped}
	handler := NewGroupHandler(manager, &fakeGroupViewer{nextPart: 1}, nil)

	body, _ := json.Marshal(dto.AddGroupItemRequest{ItemID: "item-9"})
	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/codex/groups/g1/items", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "g1"}}

	handler.AddItem(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGroupHandlerGetNotFound(t *testing.T) {
	handler := NewGroupHandler(&fakeGroupManager{}, &fakeGroupViewer{viewErr: appErrors.ErrNotFound}, nil)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/codex/groups/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroupHandlerWorkspaceRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewGroupHandler(&fakeGroupManager{}, &fakeGroupViewer{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/codex/workspace", nil)

	handler.Workspace(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGroupHandlerWorkspaceRejectsUnknownKind(t *testing.T) {
	handler := NewGroupHandler(&fakeGroupManager{}, &fakeGroupViewer{}, nil)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/codex/workspace?kind=podcast", nil)

	handler.Workspace(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupHandlerRemoveItem(t *testing.T) {
	manager := &fakeGroupManager{}
	handler := NewGroupHandler(manager, &fakeGroupViewer{}, nil)

	rec := httptest.NewRecorder()
	c := authedContext(t, rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/codex/items/item-1/group", nil)
	c.Params = gin.Params{{Key: "id", Value: "item-1"}}

	handler.RemoveItem(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, manager.removeCalls)
}
