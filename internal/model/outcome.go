package model

// Reason names the fallback taken to produce a value. The zero Reason means
// the primary path succeeded.
type Reason string

// Fallback reasons.
const (
	ReasonNone                 Reason = ""
	ReasonLowSample            Reason = "low_sample"
	ReasonSecondaryXFP         Reason = "secondary_xfp"
	ReasonNoXFPData            Reason = "no_xfp_data"
	ReasonNeutralContext       Reason = "neutral_context"
	ReasonLatestWeekAtOrBefore Reason = "latest_week_at_or_before"
	ReasonLatestWeekOverall    Reason = "latest_week_overall"
	ReasonEmptyCache           Reason = "empty_cache"
)

// Outcome carries a value together with the fallback, if any, that produced it.
type Outcome[T any] struct {
	Value  T
	Reason Reason
}

// Primary wraps a value produced by the primary path.
func Primary[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Fallback wraps a value produced by a documented fallback.
func Fallback[T any](v T, reason Reason) Outcome[T] {
	return Outcome[T]{Value: v, Reason: reason}
}

// UsedFallback reports whether a fallback produced the value.
func (o Outcome[T]) UsedFallback() bool {
	return o.Reason != ReasonNone
}
