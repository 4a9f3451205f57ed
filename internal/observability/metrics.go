package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine. Every consumer
// treats a nil *Metrics as a no-op so unit tests and the replay harness
// can run without a registry.
type Metrics struct {
	// --- Tick core ---
	TicksProcessed prometheus.Counter
	TickDuration   prometheus.Histogram
	EventsByKind   *prometheus.CounterVec
	CurrentTick    prometheus.Gauge

	// --- Order book ---
	MatchesExecuted prometheus.Counter
	OrdersInserted  prometheus.Counter
	OrdersDropped   *prometheus.CounterVec
	BookDepth       *prometheus.GaugeVec

	// --- Detection ---
	AlertsByType     *prometheus.CounterVec
	AlertBitmapBits  *prometheus.CounterVec
	FeatureSnapshots prometheus.Counter
	MLResults        *prometheus.CounterVec
	MLConfidence     prometheus.Histogram
	CascadeAlerts    *prometheus.CounterVec
	AdaptiveSigma    prometheus.Gauge

	// --- Circuit breaker ---
	Interventions     *prometheus.CounterVec
	BreakerMode       prometheus.Gauge
	BreakerCountdown  prometheus.Gauge
	InterventionTicks *prometheus.CounterVec

	// --- Ingestion & channels ---
	IngestLatency     *prometheus.HistogramVec
	SequenceGaps      prometheus.Counter
	OutOfOrderTicks   prometheus.Counter
	ChannelSize       *prometheus.GaugeVec
	ChannelCapacity   *prometheus.GaugeVec
	TelemetryDrops    prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Persistence ---
	PersistRowsWritten *prometheus.CounterVec
	PersistBatchDur    prometheus.Histogram
	PersistBatchSize   prometheus.Histogram
	PersistErrors      *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	tickBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001,
	}

	return &Metrics{
		TicksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nano_ticks_processed_total",
			Help: "Ticks run through the engine",
		}),

		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nano_tick_duration_seconds",
			Help:    "Wall time per tick",
			Buckets: tickBuckets,
		}),

		EventsByKind: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nano_events_total",
			Help: "Input events by kind",
		}, []string{"kind"}),

		CurrentTick: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "nano_current_tick",
			Help: "Current engine tick number",
		}),

		MatchesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nano_matches_executed_total",
			Help: "Order book matches",
		}),

		OrdersInserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nano_orders_inserted_total",
			Help: "Orders placed into the book",
		}),

		OrdersDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nano_orders_dropped_total",
			Help: "Orders dropped (book full, gated by breaker)",
		}, []string{"reason"}),

		BookDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nano_book_depth",
			Help: "Occupied slots per side",
		}, []string{"side"}),

		AlertsByType: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nano_alerts_total",
			Help: "Fused alerts by winning type",
		}, []string{"type"}),

		AlertBitmapBits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nano_detector_fires_total",
			Help: "Individual rule detector fires, regardless of priority",
		}, []string{"detector"}),

		FeatureSnapshots: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nano_feature_snapshots_total",
			Help: "Feature vectors handed to the classifier",
		}),

		MLResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nano_ml_results_total",
			Help: "Classifier results by class",
		}, []string{"class"}),

		MLConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nano_ml_confidence",
			Help:    "Classifier confidence margin",
			Buckets: []float64{0, 8, 16, 32, 64, 96, 128, 192, 255},
		}),

		CascadeAlerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nano_cascade_alerts_total",
			Help: "Cascade pattern matches",
		}, []string{"pattern"}),

		AdaptiveSigma: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "nano_adaptive_sigma",
			Help: "Current adaptive threshold sigma estimate",
		}),

		Interventions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nano_interventions_total",
			Help: "Circuit breaker triggers accepted",
		}, []string{"mode", "source"}),

		BreakerMode: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "nano_breaker_mode",
			Help: "Breaker mode (0=normal 1=throttle 2=widen 3=pause)",
		}),

		BreakerCountdown: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "nano_breaker_countdown_ticks",
			Help: "Ticks remaining in the active intervention",
		}),

		InterventionTicks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nano_intervention_ticks_total",
			Help: "Ticks spent under each breaker mode",
		}, []string{"mode"}),

		IngestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nano_ingest_latency_seconds",
			Help:    "NATS receive to engine apply",
			Buckets: tickBuckets,
		}, []string{"subject"}),

		SequenceGaps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nano_sequence_gaps_total",
			Help: "Tick sequence gaps seen by ingestion",
		}),

		OutOfOrderTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nano_out_of_order_ticks_total",
			Help: "Ticks rejected for arriving out of order",
		}),

		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nano_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nano_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		TelemetryDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nano_telemetry_drops_total",
			Help: "Output records dropped on full telemetry channel",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nano_persist_backpressure_total",
			Help: "Times the engine blocked on the persist channel",
		}),

		PersistRowsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nano_persist_rows_written_total",
			Help: "Rows written to Postgres",
		}, []string{"table"}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nano_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nano_persist_batch_size",
			Help:    "Rows per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nano_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),
	}
}

// SetChannelMetrics updates channel occupancy gauges.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	if m == nil {
		return
	}
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
}
