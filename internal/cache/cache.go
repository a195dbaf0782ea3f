// Package cache holds the read-through cache that sits in front of the grade
// store. Values are opaque serialized snapshots keyed by cohort.
package cache

import (
	"context"
	"fmt"
	"strings"
)

// Cache stores serialized cohort snapshots. Implementations are safe for
// concurrent use.
type Cache interface {
	// Get returns the value for key. A miss returns ok=false and no error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Invalidate removes every key starting with prefix.
	Invalidate(ctx context.Context, prefix string) error
	Stats() Stats
}

// Stats contains cache performance statistics.
type Stats struct {
	Backend    string  `json:"backend"`
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

func hitRate(hits, misses int64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total)
	}
	return 0
}

// CohortPrefix scopes every key of one season under one version.
func CohortPrefix(version string, season int) string {
	return fmt.Sprintf("%s/%d/", version, season)
}

// CohortKey builds the key of a read. week <= 0 means "latest".
func CohortKey(version string, season int, position string, week, limit int) string {
	w := "latest"
	if week > 0 {
		w = fmt.Sprintf("w%d", week)
	}
	return fmt.Sprintf("%s%s/%s/%d", CohortPrefix(version, season), strings.ToUpper(position), w, limit)
}

// Noop never stores anything. It backs the "none" cache backend.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte) error         { return nil }
func (Noop) Invalidate(context.Context, string) error          { return nil }
func (Noop) Stats() Stats                                      { return Stats{Backend: "none"} }
