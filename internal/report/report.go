// Package report builds labeled report documents from projected records and
// renders them as JSON, XLSX or PDF.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/aquagest/apiserver/types"
)

// System identifies the producing application in every document.
const System = "AquaGest v1.0"

// Kind is a recognized report type.
type Kind string

const (
	KindRequests Kind = "solicitudes"
	KindUsers    Kind = "usuarios"
	KindPoints   Kind = "puntos"
)

type descriptor struct {
	title       string
	description string
	columns     []string
}

var descriptors = map[Kind]descriptor{
	KindRequests: {
		title:       "📋 Reporte de Solicitudes",
		description: "Listado completo de solicitudes de agua",
		columns:     []string{"id", "codigo", "tipo", "fecha", "usuario_id"},
	},
	KindUsers: {
		title:       "👥 Reporte de Usuarios",
		description: "Listado de usuarios del sistema",
		columns:     []string{"id", "nombre", "email", "tipo", "telefono"},
	},
	KindPoints: {
		title:       "📍 Reporte de Puntos de Suministro",
		description: "Listado de puntos de distribución",
		columns:     []string{"id", "codigo", "direccion", "estado", "capacidad"},
	},
}

const fallbackTitle = "📄 Reporte"

var aliases = map[string]Kind{
	"solicitudes": KindRequests,
	"requests":    KindRequests,
	"usuarios":    KindUsers,
	"users":       KindUsers,
	"puntos":      KindPoints,
	"points":      KindPoints,
}

// ParseKind resolves a report type name, accepting the English aliases.
func ParseKind(name string) (Kind, bool) {
	kind, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return kind, ok
}

// Build labels records for reportType. Unrecognized types get a generic
// title and an empty description; records are kept as given.
func Build(reportType string, records []types.ReportRecord, now time.Time) types.ReportDocument {
	if records == nil {
		records = []types.ReportRecord{}
	}

	doc := types.ReportDocument{
		Type:         fallbackTitle,
		Records:      records,
		GeneratedAt:  now,
		TotalRecords: len(records),
		System:       System,
	}

	kind, ok := ParseKind(reportType)
	if !ok {
		doc.Columns = inferColumns(records)
		return doc
	}

	d := descriptors[kind]
	doc.Type = d.title
	doc.Description = d.description
	doc.Columns = append([]string(nil), d.columns...)
	return doc
}

// inferColumns returns the sorted union of record keys.
func inferColumns(records []types.ReportRecord) []string {
	seen := make(map[string]struct{})
	for _, record := range records {
		for key := range record {
			seen[key] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}
