package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aquagest/apiserver/internal/apperr"
	"github.com/aquagest/apiserver/internal/metrics"
	"github.com/aquagest/apiserver/internal/report"
	"github.com/aquagest/apiserver/internal/storage"
	"github.com/aquagest/apiserver/types"
)

const archiveTimeout = 10 * time.Second

// Archive stores generated report documents.
type Archive interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]storage.Object, error)
}

const archivePrefix = "reportes/"

// ReportService queries, projects and labels report data.
type ReportService struct {
	repos   Repositories
	events  Publisher
	archive Archive
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewReportService builds the service. archive and m may be nil.
func NewReportService(repos Repositories, events Publisher, archive Archive, m *metrics.Metrics) *ReportService {
	return &ReportService{
		repos:   repos,
		events:  events,
		archive: archive,
		metrics: m,
		now:     time.Now,
	}
}

// Generate builds the report for reportType. Unknown types produce the
// generic document with no records.
func (s *ReportService) Generate(ctx context.Context, reportType string) (types.ReportDocument, error) {
	records, err := s.records(ctx, reportType)
	if err != nil {
		return types.ReportDocument{}, apperr.Storage("Error interno del servidor", err)
	}

	doc := report.Build(reportType, records, s.now())

	s.events.Publish(ctx, types.EventReportGenerated, map[string]any{
		"tipo":      reportType,
		"registros": doc.TotalRecords,
	})
	if s.metrics != nil {
		s.metrics.IncReport(metricLabel(reportType))
	}
	s.store(ctx, reportType, doc)
	return doc, nil
}

func (s *ReportService) records(ctx context.Context, reportType string) ([]types.ReportRecord, error) {
	kind, ok := report.ParseKind(reportType)
	if !ok {
		return nil, nil
	}

	switch kind {
	case report.KindUsers:
		users, err := s.repos.Users.List(ctx)
		if err != nil {
			return nil, err
		}
		return report.UserRecords(users), nil
	case report.KindRequests:
		requests, err := s.repos.Requests.List(ctx)
		if err != nil {
			return nil, err
		}
		return report.RequestRecords(requests), nil
	case report.KindPoints:
		points, err := s.repos.SupplyPoints.List(ctx)
		if err != nil {
			return nil, err
		}
		return report.PointRecords(points), nil
	}
	return nil, nil
}

// store archives doc when an archive is configured. Failures are logged.
func (s *ReportService) store(ctx context.Context, reportType string, doc types.ReportDocument) {
	if s.archive == nil {
		return
	}

	data, err := json.Marshal(doc)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode report for archive")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	key := ArchiveKey(reportType, doc.GeneratedAt)
	if err := s.archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to archive report")
		return
	}
	log.Debug().Str("key", key).Msg("report archived")
}

// ArchiveKey is the object key a report generated at t is stored under.
func ArchiveKey(reportType string, t time.Time) string {
	return fmt.Sprintf("%s%s/%s.json", archivePrefix, metricLabel(reportType), t.UTC().Format("20060102T150405.000Z"))
}

// Archived lists previously archived reports, optionally narrowed to one
// report type.
func (s *ReportService) Archived(ctx context.Context, reportType string) ([]storage.Object, error) {
	if s.archive == nil {
		return nil, apperr.NotFound("Archivo de reportes no configurado")
	}

	prefix := archivePrefix
	if strings.TrimSpace(reportType) != "" {
		prefix += metricLabel(reportType) + "/"
	}
	objects, err := s.archive.List(ctx, prefix)
	if err != nil {
		return nil, apperr.Storage("failed to list archived reports", err)
	}
	if objects == nil {
		objects = []storage.Object{}
	}
	return objects, nil
}

// ArchivedDocument opens the archived JSON report stored under key, as
// listed by Archived. The caller closes the reader.
func (s *ReportService) ArchivedDocument(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.archive == nil {
		return nil, apperr.NotFound("Archivo de reportes no configurado")
	}

	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if !strings.HasPrefix(key, archivePrefix) || !strings.HasSuffix(key, ".json") || strings.Contains(key, "..") {
		return nil, apperr.Validation("Clave de reporte archivado inválida")
	}

	rc, err := s.archive.Get(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, apperr.NotFound("Reporte archivado no encontrado")
	}
	if err != nil {
		return nil, apperr.Storage("failed to read archived report", err)
	}
	return rc, nil
}

func metricLabel(reportType string) string {
	if kind, ok := report.ParseKind(reportType); ok {
		return string(kind)
	}
	return "generico"
}
