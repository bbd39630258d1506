package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

// DriftAlertMetric carries one measured similarity value alongside the
// threshold it violated.
type DriftAlertMetric struct {
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	Value     float64        `json:"value"`
	Threshold float64        `json:"threshold"`
	Meta      map[string]any `json:"meta,omitempty"`
}

type driftAlertState struct {
	mu   sync.Mutex
	last map[string]time.Time
}

var driftAlerts driftAlertState

// ReportDriftRejection posts a webhook when a sheet regeneration is rejected
// for drift. Alerts are rate limited per design so a flapping provider does
// not flood the channel.
func ReportDriftRejection(ctx context.Context, log *logger.Logger, designID string, metrics []DriftAlertMetric, meta map[string]any) {
	if len(metrics) == 0 {
		return
	}
	if !driftAlertsEnabled() {
		return
	}
	webhook := driftAlertWebhook()
	if webhook == "" {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["design_id"] = designID

	key := "drift:" + designID
	driftAlerts.mu.Lock()
	if driftAlerts.last == nil {
		driftAlerts.last = map[string]time.Time{}
	}
	last := driftAlerts.last[key]
	minInterval := driftAlertMinInterval()
	if !last.IsZero() && time.Since(last) < minInterval {
		driftAlerts.mu.Unlock()
		return
	}
	driftAlerts.last[key] = time.Now()
	driftAlerts.mu.Unlock()

	payload := map[string]any{
		"title":     "Sheet regeneration rejected for drift",
		"metrics":   metrics,
		"meta":      meta,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		if log != nil {
			log.Warn("drift alert request build failed", "error", err)
		}
		return
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		if log != nil {
			log.Warn("drift alert post failed", "error", err)
		}
		return
	}
	_ = resp.Body.Close()
	if log != nil {
		log.Info("drift alert sent", "design_id", designID, "status", resp.StatusCode)
	}
}

func driftAlertsEnabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("DRIFT_ALERTS_ENABLED")))
	if v == "" {
		return false
	}
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func driftAlertWebhook() string {
	return strings.TrimSpace(os.Getenv("DRIFT_ALERT_WEBHOOK_URL"))
}

func driftAlertMinInterval() time.Duration {
	raw := strings.TrimSpace(os.Getenv("DRIFT_ALERT_MIN_INTERVAL_SECONDS"))
	if raw == "" {
		return 10 * time.Minute
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(seconds) * time.Second
}
