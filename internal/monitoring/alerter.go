package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/alpha-grader/internal/config"
	"github.com/sells-group/alpha-grader/internal/model"
)

// AlertBatchErrorRate fires when recent batches skip too many players.
const AlertBatchErrorRate = "batch_error_rate"

// minAttempted keeps a handful of failures in a tiny batch from alerting.
const minAttempted = 10

// envelope is the webhook payload.
type envelope struct {
	model.Alert
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Alerter evaluates run health and sends alerts via webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// EvaluateRuns checks a run summary against the error rate threshold.
func (a *Alerter) EvaluateRuns(s *RunSummary) []model.Alert {
	attempted := s.Computed + s.Errors
	if a.cfg.ErrorRateThreshold <= 0 || attempted < minAttempted || s.ErrorRate <= a.cfg.ErrorRateThreshold {
		return nil
	}
	return []model.Alert{{
		Code: AlertBatchErrorRate,
		Message: fmt.Sprintf(
			"player error rate %.1f%% exceeds %.1f%% (%d failed / %d attempted over %d runs)",
			s.ErrorRate*100, a.cfg.ErrorRateThreshold*100, s.Errors, attempted, s.Runs,
		),
		Value: s.ErrorRate,
	}}
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []model.Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("code", alert.Code),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent
}

func severity(code string) string {
	if code == AlertBatchErrorRate {
		return "high"
	}
	return "warning"
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert model.Alert) error {
	payload, err := json.Marshal(envelope{
		Alert:     alert,
		Severity:  severity(alert.Code),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
