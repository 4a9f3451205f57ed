package query

import (
	"time"

	"github.com/google/uuid"
)

// AlertResponse is one alert-history row for API queries.
type AlertResponse struct {
	Tick           int64     `json:"tick"`
	EventKind      string    `json:"event_kind"`
	AlertType      string    `json:"alert_type"`
	Priority       int16     `json:"priority"`
	Bitmap         int16     `json:"bitmap"`
	MLClass        string    `json:"ml_class"`
	MLConfidence   int16     `json:"ml_confidence"`
	CascadePattern string    `json:"cascade_pattern"`
	BreakerMode    string    `json:"breaker_mode"`
	MatchValid     bool      `json:"match_valid"`
	MatchPrice     int16     `json:"match_price"`
	CreatedAt      time.Time `json:"created_at"`
}

// InterventionResponse is one circuit-breaker audit record for API queries.
type InterventionResponse struct {
	ID         uuid.UUID `json:"id"`
	Tick       int64     `json:"tick"`
	Mode       string    `json:"mode"`
	Class      string    `json:"class"`
	Confidence int16     `json:"confidence"`
	Duration   int32     `json:"duration"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

// SummaryResponse aggregates the persisted history.
type SummaryResponse struct {
	AlertCounts        map[string]int64 `json:"alert_counts"`
	InterventionCounts map[string]int64 `json:"intervention_counts"`
	LastAlertTick      int64            `json:"last_alert_tick"`
}
