package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AlertRow is one persisted alert-active tick. The engine emits at most
// one row per tick, so the tick number is the primary key and redelivered
// batches are deduplicated with ON CONFLICT DO NOTHING.
type AlertRow struct {
	Tick           uint64
	EventKind      string
	AlertType      string
	Priority       uint8
	Bitmap         uint8
	MLClass        string
	MLConfidence   uint8
	CascadePattern string
	BreakerMode    string
	MatchValid     bool
	MatchPrice     uint8
}

// InterventionRow is one circuit-breaker activation audit record.
type InterventionRow struct {
	ID         uuid.UUID
	Tick       uint64
	Mode       string
	Class      string
	Confidence uint8
	Duration   uint16
	Source     string
}

// HistoryWriter writes alert and intervention batches to Postgres.
// All writes go through the caller's transaction so a batch commits
// atomically or not at all.
type HistoryWriter struct {
	db *sql.DB
}

func NewHistoryWriter(db *sql.DB) *HistoryWriter {
	return &HistoryWriter{db: db}
}

func (w *HistoryWriter) DB() *sql.DB {
	return w.db
}

const alertColumns = 11

// WriteAlertBatch inserts a batch of alert rows in a single multi-row
// INSERT. Duplicate ticks (JetStream redelivery) are silently skipped.
func (w *HistoryWriter) WriteAlertBatch(ctx context.Context, tx *sql.Tx, rows []AlertRow) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO nanotrade.alert_history
		(tick, event_kind, alert_type, priority, bitmap,
		 ml_class, ml_confidence, cascade_pattern, breaker_mode,
		 match_valid, match_price) VALUES `)

	args := make([]interface{}, 0, len(rows)*alertColumns)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * alertColumns
		sb.WriteString("(")
		for j := 1; j <= alertColumns; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")

		args = append(args,
			int64(r.Tick), r.EventKind, r.AlertType, int16(r.Priority), int16(r.Bitmap),
			r.MLClass, int16(r.MLConfidence), r.CascadePattern, r.BreakerMode,
			r.MatchValid, int16(r.MatchPrice),
		)
	}
	sb.WriteString(" ON CONFLICT (tick) DO NOTHING")

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert alert batch (%d rows): %w", len(rows), err)
	}
	return nil
}

const interventionColumns = 7

// WriteInterventionBatch inserts a batch of intervention audit records.
// The intervention ID is assigned by the breaker, so redeliveries hit
// the primary key and are skipped.
func (w *HistoryWriter) WriteInterventionBatch(ctx context.Context, tx *sql.Tx, rows []InterventionRow) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO nanotrade.interventions
		(id, tick, mode, class, confidence, duration, source) VALUES `)

	args := make([]interface{}, 0, len(rows)*interventionColumns)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * interventionColumns
		sb.WriteString("(")
		for j := 1; j <= interventionColumns; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")

		args = append(args,
			r.ID, int64(r.Tick), r.Mode, r.Class,
			int16(r.Confidence), int32(r.Duration), r.Source,
		)
	}
	sb.WriteString(" ON CONFLICT (id) DO NOTHING")

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert intervention batch (%d rows): %w", len(rows), err)
	}
	return nil
}
