package persistence

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"nanotrade/internal/alert"
	"nanotrade/internal/core"
	"nanotrade/internal/observability"
)

const (
	defaultBatchSize    = 256
	defaultFlushTimeout = 500 * time.Millisecond

	retryBaseBackoff = 100 * time.Millisecond
	retryMaxBackoff  = 30 * time.Second
)

// Worker drains the engine's persist channel and writes alert history
// and intervention records in batches. A batch is flushed when it
// reaches batchSize or when flushTimeout elapses with rows pending.
//
// Flush errors are retried with exponential backoff, indefinitely: the
// persist channel is the blocking side of the engine's fan-out, so
// losing rows here would silently break the audit trail.
type Worker struct {
	writer       *HistoryWriter
	inputChan    <-chan core.TickOutput
	batchSize    int
	flushTimeout time.Duration
	logger       zerolog.Logger
	metrics      *observability.Metrics
}

func NewWorker(
	writer *HistoryWriter,
	inputChan <-chan core.TickOutput,
	metrics *observability.Metrics,
) *Worker {
	return &Worker{
		writer:       writer,
		inputChan:    inputChan,
		batchSize:    defaultBatchSize,
		flushTimeout: defaultFlushTimeout,
		logger:       observability.NewLogger("persistence"),
		metrics:      metrics,
	}
}

// Run consumes tick outputs until ctx is cancelled, then drains the
// channel and flushes whatever remains under a background context.
func (w *Worker) Run(ctx context.Context) {
	alerts := make([]AlertRow, 0, w.batchSize)
	interventions := make([]InterventionRow, 0, w.batchSize)
	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()

	flush := func(flushCtx context.Context) {
		if len(alerts) == 0 && len(interventions) == 0 {
			return
		}
		w.flushWithRetry(flushCtx, alerts, interventions)
		alerts = alerts[:0]
		interventions = interventions[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case out := <-w.inputChan:
					w.collect(out, &alerts, &interventions)
				default:
					flush(context.Background())
					w.logger.Info().Msg("persistence worker stopped")
					return
				}
			}

		case out := <-w.inputChan:
			w.collect(out, &alerts, &interventions)
			if len(alerts)+len(interventions) >= w.batchSize {
				flush(ctx)
				resetTimer(timer, w.flushTimeout)
			}

		case <-timer.C:
			flush(ctx)
			timer.Reset(w.flushTimeout)
		}
	}
}

// resetTimer stops and drains the timer before restarting it. The timer
// may have fired during a size-triggered flush, and a stale expiry left
// in the channel would cut the next interval short.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// collect turns one tick output into zero, one, or two rows. Quiet
// ticks produce nothing; the alert history only records ticks where
// the fused alert was active.
func (w *Worker) collect(out core.TickOutput, alerts *[]AlertRow, interventions *[]InterventionRow) {
	if out.AlertActive {
		*alerts = append(*alerts, AlertRow{
			Tick:           out.Tick,
			EventKind:      out.Event.Kind.String(),
			AlertType:      alert.TypeName(out.AlertType),
			Priority:       out.AlertPriority,
			Bitmap:         out.AlertBitmap,
			MLClass:        out.MLClass.String(),
			MLConfidence:   out.MLConfidence,
			CascadePattern: out.CascadePattern.String(),
			BreakerMode:    out.CBMode.String(),
			MatchValid:     out.MatchValid,
			MatchPrice:     out.MatchPrice,
		})
	}
	if out.Intervention != nil {
		iv := out.Intervention
		*interventions = append(*interventions, InterventionRow{
			ID:         iv.ID,
			Tick:       iv.Tick,
			Mode:       iv.Mode.String(),
			Class:      iv.Class.String(),
			Confidence: iv.Confidence,
			Duration:   iv.Duration,
			Source:     iv.Source,
		})
	}
}

func (w *Worker) flushWithRetry(ctx context.Context, alerts []AlertRow, interventions []InterventionRow) {
	backoff := retryBaseBackoff

	for {
		err := w.flushOnce(ctx, alerts, interventions)
		if err == nil {
			return
		}

		w.logger.Error().Err(err).
			Int("alerts", len(alerts)).
			Int("interventions", len(interventions)).
			Dur("backoff", backoff).
			Msg("batch flush failed, retrying")
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("retry").Inc()
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			// Final drain path: keep retrying under a fresh context so
			// shutdown does not drop the tail of the audit trail.
			ctx = context.Background()
		}

		backoff *= 2
		if backoff > retryMaxBackoff {
			backoff = retryMaxBackoff
		}
	}
}

func (w *Worker) flushOnce(ctx context.Context, alerts []AlertRow, interventions []InterventionRow) error {
	start := time.Now()

	tx, err := w.writer.DB().BeginTx(ctx, nil)
	if err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("tx_begin").Inc()
		}
		return err
	}

	if err := w.writer.WriteAlertBatch(ctx, tx, alerts); err != nil {
		tx.Rollback()
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write_alerts").Inc()
		}
		return err
	}
	if err := w.writer.WriteInterventionBatch(ctx, tx, interventions); err != nil {
		tx.Rollback()
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write_interventions").Inc()
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("tx_commit").Inc()
		}
		return err
	}

	if w.metrics != nil {
		w.metrics.PersistRowsWritten.WithLabelValues("alert_history").Add(float64(len(alerts)))
		w.metrics.PersistRowsWritten.WithLabelValues("interventions").Add(float64(len(interventions)))
		w.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		w.metrics.PersistBatchSize.Observe(float64(len(alerts) + len(interventions)))
	}
	return nil
}
