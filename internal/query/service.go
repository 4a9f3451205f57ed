package query

import (
	"context"
	"database/sql"
	"fmt"
)

// QueryService provides read-only access to the persisted alert history
// and intervention audit trail.
type QueryService struct {
	db *sql.DB
}

func NewQueryService(db *sql.DB) *QueryService {
	return &QueryService{db: db}
}

// RecentAlerts returns the newest alert-history rows, most recent first.
// An empty alertType matches everything.
func (qs *QueryService) RecentAlerts(ctx context.Context, alertType string, limit int) ([]AlertResponse, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	q := `
		SELECT tick, event_kind, alert_type, priority, bitmap,
		       ml_class, ml_confidence, cascade_pattern, breaker_mode,
		       match_valid, match_price, created_at
		FROM nanotrade.alert_history
		WHERE ($1 = '' OR alert_type = $1)
		ORDER BY tick DESC
		LIMIT $2`

	rows, err := qs.db.QueryContext(ctx, q, alertType, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []AlertResponse
	for rows.Next() {
		var a AlertResponse
		if err := rows.Scan(
			&a.Tick, &a.EventKind, &a.AlertType, &a.Priority, &a.Bitmap,
			&a.MLClass, &a.MLConfidence, &a.CascadePattern, &a.BreakerMode,
			&a.MatchValid, &a.MatchPrice, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// RecentInterventions returns the newest audit records, most recent first.
func (qs *QueryService) RecentInterventions(ctx context.Context, limit int) ([]InterventionResponse, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT id, tick, mode, class, confidence, duration, source, created_at
		FROM nanotrade.interventions
		ORDER BY tick DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query interventions: %w", err)
	}
	defer rows.Close()

	var interventions []InterventionResponse
	for rows.Next() {
		var iv InterventionResponse
		if err := rows.Scan(
			&iv.ID, &iv.Tick, &iv.Mode, &iv.Class,
			&iv.Confidence, &iv.Duration, &iv.Source, &iv.CreatedAt,
		); err != nil {
			return nil, err
		}
		interventions = append(interventions, iv)
	}
	return interventions, rows.Err()
}

// Summary aggregates alert and intervention counts over all history.
func (qs *QueryService) Summary(ctx context.Context) (*SummaryResponse, error) {
	summary := &SummaryResponse{
		AlertCounts:        make(map[string]int64),
		InterventionCounts: make(map[string]int64),
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT alert_type, COUNT(*), MAX(tick)
		FROM nanotrade.alert_history
		GROUP BY alert_type`)
	if err != nil {
		return nil, fmt.Errorf("alert summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var alertType string
		var count, maxTick int64
		if err := rows.Scan(&alertType, &count, &maxTick); err != nil {
			return nil, err
		}
		summary.AlertCounts[alertType] = count
		if maxTick > summary.LastAlertTick {
			summary.LastAlertTick = maxTick
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ivRows, err := qs.db.QueryContext(ctx, `
		SELECT mode, COUNT(*)
		FROM nanotrade.interventions
		GROUP BY mode`)
	if err != nil {
		return nil, fmt.Errorf("intervention summary: %w", err)
	}
	defer ivRows.Close()

	for ivRows.Next() {
		var mode string
		var count int64
		if err := ivRows.Scan(&mode, &count); err != nil {
			return nil, err
		}
		summary.InterventionCounts[mode] = count
	}
	return summary, ivRows.Err()
}
