package gateway

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hackx/skillos/internal/metrics"
)

var _ metrics.Source = (*Client)(nil)

// statsRow is a metrics table row as returned by REST and realtime.
// Columns are nullable; nulls read as zero.
type statsRow struct {
	UserID        string   `json:"user_id"`
	CognitiveLoad *float64 `json:"cognitive_load"`
	EnergyLevel   *float64 `json:"energy_level"`
	CreatedAt     string   `json:"created_at"`
}

// sample converts a row to a Sample, clamping values to [0, 100].
func (r statsRow) sample() (metrics.Sample, error) {
	ts, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return metrics.Sample{}, err
	}
	return metrics.Sample{
		Timestamp:     ts.Unix(),
		CognitiveLoad: percent(r.CognitiveLoad),
		EnergyLevel:   percent(r.EnergyLevel),
	}, nil
}

func percent(v *float64) int {
	if v == nil {
		return 0
	}
	return metrics.ClampPercent(int(math.Round(*v)))
}

// timestampLayouts covers the encodings of timestamptz seen from REST
// (RFC 3339) and from the realtime WAL decoder (space separator, short zone).
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing created_at")
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FetchRecent returns the newest limit samples for userID, oldest first.
func (c *Client) FetchRecent(ctx context.Context, userID string, limit int) ([]metrics.Sample, error) {
	if limit <= 0 {
		limit = metrics.DefaultCapacity
	}
	q := url.Values{
		"select":  {"user_id,cognitive_load,energy_level,created_at"},
		"user_id": {"eq." + userID},
		"order":   {"created_at.desc"},
		"limit":   {strconv.Itoa(limit)},
	}

	var rows []statsRow
	if err := c.do(ctx, http.MethodGet, "/rest/v1/"+c.opts.MetricsTable, q, nil, &rows); err != nil {
		return nil, err
	}

	samples := make([]metrics.Sample, 0, len(rows))
	// Rows arrive newest first; walk backwards for ascending order.
	for i := len(rows) - 1; i >= 0; i-- {
		s, err := rows[i].sample()
		if err != nil {
			c.log.Warn("skipping metrics row: %v", err)
			continue
		}
		samples = append(samples, s)
	}
	return samples, nil
}
