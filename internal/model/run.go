package model

import "time"

// Alert codes raised by the guardrail auditor.
const (
	AlertNoTopTier        = "no_top_tier"
	AlertTopTierOutOfBand = "top_tier_out_of_band"
	AlertCompressedSpread = "compressed_spread"
)

// Alert is a guardrail warning about a cached cohort. Alerts never fail a batch.
type Alert struct {
	Code     string   `json:"code"`
	Position Position `json:"position"`
	Season   int      `json:"season"`
	AsOfWeek int      `json:"as_of_week"`
	Version  string   `json:"version"`
	Message  string   `json:"message"`
	Value    float64  `json:"value"`
}

// GradingRun is the log entry of one batch compute.
type GradingRun struct {
	ID         string    `json:"id"`
	Position   string    `json:"position"`
	Season     int       `json:"season"`
	AsOfWeek   int       `json:"as_of_week"`
	Version    string    `json:"version"`
	Mode       Mode      `json:"mode"`
	Eligible   int       `json:"eligible"`
	Computed   int       `json:"computed"`
	Errors     int       `json:"errors"`
	Alerts     int       `json:"alerts"`
	DurationMs int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
}
