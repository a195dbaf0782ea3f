package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/alpha-grader/internal/config"
	"github.com/sells-group/alpha-grader/internal/model"
)

func TestAlerter_EvaluateRuns(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{ErrorRateThreshold: 0.10})

	tests := []struct {
		name    string
		summary RunSummary
		want    int
	}{
		{"healthy", RunSummary{Runs: 4, Computed: 190, Errors: 10, ErrorRate: 0.05}, 0},
		{"over threshold", RunSummary{Runs: 4, Computed: 150, Errors: 50, ErrorRate: 0.25}, 1},
		{"tiny sample", RunSummary{Runs: 1, Computed: 3, Errors: 3, ErrorRate: 0.5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.EvaluateRuns(&tt.summary)
			require.Len(t, got, tt.want)
			if tt.want > 0 {
				assert.Equal(t, AlertBatchErrorRate, got[0].Code)
				assert.Contains(t, got[0].Message, "25.0%")
			}
		})
	}

	disabled := NewAlerter(config.MonitoringConfig{})
	assert.Empty(t, disabled.EvaluateRuns(&RunSummary{Computed: 10, Errors: 90, ErrorRate: 0.9}))
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received atomic.Int32
	var mu sync.Mutex
	var last envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		mu.Lock()
		defer mu.Unlock()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&last))
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []model.Alert{
		{Code: model.AlertNoTopTier, Position: model.RB, Season: 2024, AsOfWeek: 7},
		{Code: model.AlertCompressedSpread, Position: model.RB, Value: 12.5},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, model.AlertCompressedSpread, last.Code)
	assert.Equal(t, "warning", last.Severity)
	assert.False(t, last.Timestamp.IsZero())
}

func TestAlerter_SendAlerts_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []model.Alert{{Code: AlertBatchErrorRate}}))

	none := NewAlerter(config.MonitoringConfig{})
	assert.Equal(t, 0, none.SendAlerts(context.Background(), []model.Alert{{Code: AlertBatchErrorRate}}))
}
