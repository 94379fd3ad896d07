package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newsroom-tools/codex-api/internal/dto"
	"github.com/newsroom-tools/codex-api/internal/models"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
)

type viewProviderStub struct {
	view *dto.GroupView
	err  error
}

func (s *viewProviderStub) GetGroupView(ctx context.Context, ownerID, groupID string) (*dto.GroupView, error) {
	return s.view, s.err
}

func manifestFixture() *dto.GroupView {
	size := int64(2048)
	return &dto.GroupView{
		Parent: models.CodexItem{
			ID: "g1", OwnerID: "owner-1", Kind: models.ItemKindAudio,
			IsGroupParent: true, GroupName: strPtr("Morning Show"),
		},
		Children: []models.CodexItem{
			{ID: "c1", Title: "Part One", Kind: models.ItemKindAudio, PartNumber: intPtr(1), SizeBytes: &size, CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
			{ID: "c2", Title: "Part Two", Kind: models.ItemKindAudio, PartNumber: intPtr(2), CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		},
		Stats: models.GroupStats{ItemCount: 2, TotalSize: 2048},
	}
}

func TestExportGroupCSV(t *testing.T) {
	svc := NewExportService(&viewProviderStub{view: manifestFixture()}, nil, nil, nil)

	result, err := svc.ExportGroup(context.Background(), "owner-1", "g1", ExportFormatCSV)
	require.NoError(t, err)
	require.Equal(t, "text/csv", result.MimeType)
	require.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Data)
	require.Contains(t, body, "Part,Title,Kind,Size (bytes),Added")
	require.Contains(t, body, "Part One")
	require.Contains(t, body, "2048")
}

func TestExportGroupPDF(t *testing.T) {
	svc := NewExportService(&viewProviderStub{view: manifestFixture()}, nil, nil, nil)

	result, err := svc.ExportGroup(context.Background(), "owner-1", "g1", ExportFormatPDF)
	require.NoError(t, err)
	require.Equal(t, "application/pdf", result.MimeType)
	require.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	require.NotEmpty(t, result.Data)
}

func TestExportGroupUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&viewProviderStub{view: manifestFixture()}, nil, nil, nil)

	_, err := svc.ExportGroup(context.Background(), "owner-1", "g1", ExportFormat("xml"))
	require.Equal(t, "VALIDATION_ERROR", errCode(t, err))
}

func TestExportGroupPropagatesLookupErrors(t *testing.T) {
	svc := NewExportService(&viewProviderStub{err: appErrors.ErrNotFound}, nil, nil, nil)

	_, err := svc.ExportGroup(context.Background(), "owner-1", "missing", ExportFormatCSV)
	require.Equal(t, "NOT_FOUND", errCode(t, err))
}
