package session

import (
	"context"

	"github.com/iliyamo/pos-gateway/internal/format"
	"github.com/iliyamo/pos-gateway/internal/model"
)

// ReportRow is a session report line with its rendered duration.
type ReportRow struct {
	model.SessionReportRow
	Duration string `json:"duration"`
}

// Report lists every session with totals across the list.
type Report struct {
	Rows        []ReportRow `json:"sessions"`
	ActiveCount int         `json:"active_sessions"`
	TotalSales  float64     `json:"total_sales"`
	TotalOrders int         `json:"total_orders"`
}

// RowDuration renders "Ongoing" for a session without an end time and
// "{h}h {m}m" otherwise.
func RowDuration(row model.SessionReportRow) string {
	if row.EndTime == nil || row.EndTime.IsZero() {
		return "Ongoing"
	}
	if row.StartTime == nil {
		return format.HoursMinutes(0)
	}
	return format.HoursMinutes(row.EndTime.Sub(row.StartTime.Time))
}

func BuildReport(rows []model.SessionReportRow) Report {
	rep := Report{Rows: make([]ReportRow, 0, len(rows))}
	for _, row := range rows {
		rep.Rows = append(rep.Rows, ReportRow{SessionReportRow: row, Duration: RowDuration(row)})
		if row.Status == model.SessionActive {
			rep.ActiveCount++
		}
		rep.TotalSales += row.TotalSales
		rep.TotalOrders += row.TotalOrders
	}
	return rep
}

// Report fetches the session report from the backend.
func (r *Registry) Report(ctx context.Context) (Report, error) {
	rows, err := r.api.SessionReport(ctx)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(rows), nil
}
