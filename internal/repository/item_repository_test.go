package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/newsroom-tools/codex-api/internal/models"
)

func newItemRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func itemRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "kind", "title", "description", "tags", "url", "file_path", "mime_type", "size_bytes",
		"group_id", "is_group_parent", "group_name", "group_description", "part_number", "created_at", "updated_at",
	})
}

func TestItemRepositoryInsertAndGet(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO codex_items")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	item := &models.CodexItem{
		OwnerID: "owner-1",
		Kind:    models.ItemKindAudio,
		Title:   "Episode",
		Tags:    pq.StringArray{"politics"},
	}
	require.NoError(t, repo.Insert(context.Background(), item))
	require.NotEmpty(t, item.ID)
	require.False(t, item.CreatedAt.IsZero())

	rows := itemRows().AddRow(
		item.ID, item.OwnerID, item.Kind, item.Title, "", "{politics}", nil, nil, nil, nil,
		nil, false, nil, nil, nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, kind")).
		WithArgs(item.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, item.ID, found.ID)
	require.Equal(t, models.ItemKindAudio, found.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryListByOwnerFilters(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	rows := itemRows().AddRow(
		"item-1", "owner-1", "audio", "Episode", "", "{politics}", nil, nil, nil, nil,
		nil, false, nil, nil, nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, kind")).
		WithArgs("owner-1", models.ItemKindAudio, "politics", "%budget%").
		WillReturnRows(rows)

	items, err := repo.ListByOwner(context.Background(), "owner-1", models.ItemFilter{
		Kind:   models.ItemKindAudio,
		Tag:    "politics",
		Search: "budget",
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "item-1", items[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryListByOwnerCapsPageSize(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT 200 OFFSET 0")).
		WithArgs("owner-1").
		WillReturnRows(itemRows())

	_, err := repo.ListByOwner(context.Background(), "owner-1", models.ItemFilter{Limit: 9999})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryListTopLevelHasNoPageCap(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	rows := itemRows().
		AddRow("g1", "owner-1", "audio", "Series", "", "{}", nil, nil, nil, nil,
			"g1", true, "Series", nil, nil, time.Now(), time.Now()).
		AddRow("s1", "owner-1", "note", "Loose note", "", "{}", nil, nil, nil, nil,
			nil, false, nil, nil, nil, time.Now(), time.Now())

	// The query must end at the ORDER BY: no LIMIT or OFFSET may truncate
	// the workspace view for owners with large collections.
	query := regexp.QuoteMeta("WHERE owner_id = $1 AND (is_group_parent OR group_id IS NULL) ORDER BY is_group_parent DESC, created_at DESC") + "$"
	mock.ExpectQuery(query).
		WithArgs("owner-1").
		WillReturnRows(rows)

	items, err := repo.ListTopLevel(context.Background(), "owner-1", models.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryListByGroup(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	rows := itemRows().
		AddRow("g1", "owner-1", "audio", "Series", "", "{}", nil, nil, nil, nil,
			"g1", true, "Series", nil, nil, time.Now(), time.Now()).
		AddRow("c1", "owner-1", "audio", "Part One", "", "{}", nil, nil, nil, nil,
			"g1", false, nil, nil, 1, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, kind")).
		WithArgs("g1", "owner-1").
		WillReturnRows(rows)

	items, err := repo.ListByGroup(context.Background(), "g1", "owner-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryAggregate(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS item_count")).
		WithArgs("g1", "owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"item_count", "total_size"}).AddRow(2, 4096))

	stats, err := repo.Aggregate(context.Background(), "g1", "owner-1")
	require.NoError(t, err)
	require.Equal(t, 2, stats.ItemCount)
	require.Equal(t, int64(4096), stats.TotalSize)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryAggregateEmptyGroup(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS item_count")).
		WithArgs("g1", "owner-1").
		WillReturnError(sql.ErrNoRows)

	stats, err := repo.Aggregate(context.Background(), "g1", "owner-1")
	require.NoError(t, err)
	require.Nil(t, stats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryPromoteToParent(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE codex_items")).
		WithArgs("item-1", "Series", "raw cuts", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.PromoteToParent(context.Background(), "item-1", "Series", "raw cuts"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryAssignToGroupMissingRow(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE codex_items")).
		WithArgs("missing", "g1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AssignToGroup(context.Background(), "missing", "g1", 1)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestItemRepositoryDetachChildrenIdempotent(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE codex_items")).
		WithArgs("g1", "g1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Zero affected rows is fine: every child was already detached.
	require.NoError(t, repo.DetachChildren(context.Background(), "g1", "g1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newItemRepoMock(t)
	defer cleanup()

	repo := NewItemRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM codex_items")).
		WithArgs("item-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "item-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM codex_items")).
		WithArgs("item-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "item-2"), sql.ErrNoRows)
}
