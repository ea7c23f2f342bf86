package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-observations/internal/models"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
	"github.com/noah-isme/sma-observations/pkg/export"
)

const exportTimeLayout = "2006-01-02 15:04"

var exportHeaders = []string{"Student", "Observation", "Favorite", "Status", "Created", "Completed"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type observationLister interface {
	List(ctx context.Context, filter models.ObservationFilter) (*ObservationPage, bool, error)
}

// ExportResult is a rendered document ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
	Rows        int
}

// ExportService renders the filtered observation list as CSV or PDF.
type ExportService struct {
	observations observationLister
	csv          csvRenderer
	pdf          pdfRenderer
	logger       *zap.Logger
	now          func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers use the defaults.
func NewExportService(observations observationLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{observations: observations, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Export renders every observation matching filter, newest first.
func (s *ExportService) Export(ctx context.Context, filter models.Filter, format export.Format) (*ExportResult, error) {
	page, _, err := s.observations.List(ctx, models.ObservationFilter{Filter: filter, SortBy: "createdAt", SortOrder: "desc"})
	if err != nil {
		return nil, err
	}
	dataset := buildObservationDataset(page.Items)

	var content []byte
	switch format {
	case export.FormatCSV:
		content, err = s.csv.Render(dataset)
	case export.FormatPDF:
		content, err = s.pdf.Render(dataset, fmt.Sprintf("Student observations (%s)", filter))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("observations exported", zap.String("filter", string(filter)), zap.String("format", string(format)), zap.Int("rows", len(page.Items)))
	return &ExportResult{
		Filename:    fmt.Sprintf("observations-%s-%s.%s", filter, s.now().UTC().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Content:     content,
		Rows:        len(page.Items),
	}, nil
}

func buildObservationDataset(items []models.Observation) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, o := range items {
		favorite, status, completed := "no", "active", ""
		if o.IsFavorite {
			favorite = "yes"
		}
		if o.IsCompleted {
			status = "completed"
		}
		if o.CompletedAt != nil {
			completed = o.CompletedAt.UTC().Format(exportTimeLayout)
		}
		rows = append(rows, map[string]string{
			"Student":     o.StudentName,
			"Observation": o.Observation,
			"Favorite":    favorite,
			"Status":      status,
			"Created":     o.CreatedAt.UTC().Format(exportTimeLayout),
			"Completed":   completed,
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows, Widths: []float64{2, 6, 1, 1.3, 1.7, 1.7}}
}
