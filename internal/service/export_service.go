package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newsroom-tools/codex-api/internal/dto"
	"github.com/newsroom-tools/codex-api/internal/models"
	appErrors "github.com/newsroom-tools/codex-api/pkg/errors"
	"github.com/newsroom-tools/codex-api/pkg/export"
)

// ExportFormat enumerates supported manifest formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type groupViewProvider interface {
	GetGroupView(ctx context.Context, ownerID, groupID string) (*dto.GroupView, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult captures a rendered group manifest ready for download.
type ExportResult struct {
	Filename string
	MimeType string
	Data     []byte
}

// ExportService renders group manifests as CSV or PDF documents.
type ExportService struct {
	views  groupViewProvider
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(views groupViewProvider, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{views: views, csv: csv, pdf: pdf, logger: logger}
}

// ExportGroup renders the group's ordered manifest in the requested format.
func (s *ExportService) ExportGroup(ctx context.Context, ownerID, groupID string, format ExportFormat) (*ExportResult, error) {
	view, err := s.views.GetGroupView(ctx, ownerID, groupID)
	if err != nil {
		return nil, err
	}

	dataset, title := buildManifestDataset(view)

	var payload []byte
	var mimeType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		mimeType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		mimeType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render manifest")
	}

	return &ExportResult{
		Filename: manifestFilename(view.Parent, format),
		MimeType: mimeType,
		Data:     payload,
	}, nil
}

func buildManifestDataset(view *dto.GroupView) (export.Dataset, string) {
	headers := []string{"Part", "Title", "Kind", "Size (bytes)", "Added"}
	rows := make([]map[string]string, 0, len(view.Children))
	for _, child := range view.Children {
		part := ""
		if child.PartNumber != nil {
			part = fmt.Sprintf("%d", *child.PartNumber)
		}
		size := ""
		if child.SizeBytes != nil {
			size = fmt.Sprintf("%d", *child.SizeBytes)
		}
		rows = append(rows, map[string]string{
			"Part":         part,
			"Title":        child.Title,
			"Kind":         string(child.Kind),
			"Size (bytes)": size,
			"Added":        child.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	title := "Group Manifest"
	if view.Parent.GroupName != nil && *view.Parent.GroupName != "" {
		title = *view.Parent.GroupName
	}
	return export.Dataset{Headers: headers, Rows: rows}, title
}

func manifestFilename(parent models.CodexItem, format ExportFormat) string {
	base := "group"
	if parent.GroupName != nil && *parent.GroupName != "" {
		base = sanitize(*parent.GroupName)
	}
	if base == "" {
		base = "group"
	}
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_manifest_%s.%s", base, timestamp, strings.ToLower(string(format)))
}
