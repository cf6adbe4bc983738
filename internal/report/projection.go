package report

import (
	"github.com/aquagest/apiserver/types"
)

const (
	noPhone         = "No proporcionado"
	requestDateForm = "2006-01-02 15:04"
)

// UserRecords projects users for the usuarios report.
func UserRecords(users []types.User) []types.ReportRecord {
	out := make([]types.ReportRecord, 0, len(users))
	for _, u := range users {
		phone := noPhone
		if u.Phone != nil && *u.Phone != "" {
			phone = *u.Phone
		}
		out = append(out, types.ReportRecord{
			"id":       u.ID,
			"nombre":   u.FullName(),
			"email":    u.Email,
			"tipo":     string(u.Role),
			"telefono": phone,
		})
	}
	return out
}

// RequestRecords projects requests for the solicitudes report.
func RequestRecords(requests []types.Request) []types.ReportRecord {
	out := make([]types.ReportRecord, 0, len(requests))
	for _, r := range requests {
		fecha := ""
		if !r.CreatedAt.IsZero() {
			fecha = r.CreatedAt.Format(requestDateForm)
		}
		out = append(out, types.ReportRecord{
			"id":         r.ID,
			"codigo":     r.Code,
			"tipo":       r.Type,
			"fecha":      fecha,
			"usuario_id": r.RequesterID,
		})
	}
	return out
}

// PointRecords projects supply points for the puntos report.
func PointRecords(points []types.SupplyPoint) []types.ReportRecord {
	out := make([]types.ReportRecord, 0, len(points))
	for _, p := range points {
		out = append(out, types.ReportRecord{
			"id":        p.ID,
			"codigo":    p.Code,
			"direccion": p.Address,
			"estado":    p.Status,
			"capacidad": p.Capacity.InexactFloat64(),
		})
	}
	return out
}
