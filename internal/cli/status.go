package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/metrics"
	"github.com/hackx/skillos/internal/ui"
)

// StatusOptions holds options for the status command.
type StatusOptions struct {
	JSON bool
	Rows int // recent samples listed in the table
}

// DefaultStatusRows is the number of samples listed by default.
const DefaultStatusRows = 10

// sparklineWidth is the width of the load sparkline in status output.
const sparklineWidth = 40

// StatusSample is one reading in status output.
type StatusSample struct {
	Time          time.Time `json:"time"`
	CognitiveLoad int       `json:"cognitive_load"`
	EnergyLevel   int       `json:"energy_level"`
}

// StatusReport is the data printed by `skillos status`.
type StatusReport struct {
	Phone    string         `json:"phone"`
	UserID   string         `json:"user_id"`
	Gateway  string         `json:"gateway"`
	Capacity int            `json:"capacity"`
	Band     string         `json:"band,omitempty"`
	Latest   *StatusSample  `json:"latest,omitempty"`
	Samples  []StatusSample `json:"samples"`
}

// statusCommand fetches the current window once and prints a summary.
func statusCommand(ctx context.Context, configPath string, opts StatusOptions, out io.Writer) error {
	report, err := buildStatusReport(ctx, configPath)
	if opts.JSON {
		if err != nil {
			_ = WriteJSONFromError(out, err)
			return err
		}
		return WriteJSONSuccess(out, report)
	}
	if err != nil {
		return err
	}

	rows := opts.Rows
	if rows <= 0 {
		rows = DefaultStatusRows
	}
	_, err = io.WriteString(out, renderStatus(report, rows))
	return err
}

func buildStatusReport(ctx context.Context, configPath string) (*StatusReport, error) {
	a, err := loadApp(ctx, configPath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	session, err := a.requireSession()
	if err != nil {
		return nil, err
	}

	capacity := a.cfg.Metrics.Capacity
	samples, err := a.client.FetchRecent(ctx, session.User.ID, capacity)
	if err != nil {
		if errors.IsCode(err, errors.ErrFetch) || errors.IsCode(err, errors.ErrAuth) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrFetch,
			"Failed to load metrics",
			"Check your connection and try again")
	}

	window := metrics.NewWindow(capacity)
	window.Replace(samples)

	report := &StatusReport{
		Phone:    session.User.Phone,
		UserID:   session.User.ID,
		Gateway:  a.gatewayHost(),
		Capacity: window.Capacity(),
		Samples:  make([]StatusSample, 0, window.Len()),
	}
	for _, s := range window.Samples() {
		report.Samples = append(report.Samples, toStatusSample(s))
	}
	if latest, ok := window.Latest(); ok {
		ls := toStatusSample(latest)
		report.Latest = &ls
		report.Band = metrics.Classify(latest.CognitiveLoad).String()
	}
	return report, nil
}

func toStatusSample(s metrics.Sample) StatusSample {
	return StatusSample{
		Time:          s.Time(),
		CognitiveLoad: s.CognitiveLoad,
		EnergyLevel:   s.EnergyLevel,
	}
}

// renderStatus formats a report for the terminal: a summary, a load
// sparkline and the newest rows.
func renderStatus(r *StatusReport, rows int) string {
	pairs := []ui.KeyValue{
		{Key: "Signed in", Value: r.Phone},
		{Key: "Gateway", Value: r.Gateway},
		{Key: "Samples", Value: fmt.Sprintf("%d/%d", len(r.Samples), r.Capacity)},
	}

	if r.Latest == nil {
		pairs = append(pairs, ui.KeyValue{Key: "Latest", Value: ui.MutedStyle().Render("no readings yet")})
		return ui.RenderKeyValues(pairs)
	}

	band := metrics.Classify(r.Latest.CognitiveLoad)
	loadStyle := ui.SuccessStyle()
	switch band {
	case metrics.BandHigh:
		loadStyle = ui.WarningStyle()
	case metrics.BandCritical:
		loadStyle = ui.ErrorStyle()
	}

	pairs = append(pairs,
		ui.KeyValue{Key: "Updated", Value: r.Latest.Time.Format("15:04:05")},
		ui.KeyValue{Key: "Load", Value: loadStyle.Render(fmt.Sprintf("%d%% %s", r.Latest.CognitiveLoad, strings.ToUpper(band.String())))},
		ui.KeyValue{Key: "Energy", Value: fmt.Sprintf("%d%%", r.Latest.EnergyLevel)},
	)

	loads := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		loads[i] = float64(s.CognitiveLoad)
	}
	pairs = append(pairs, ui.KeyValue{Key: "Trend", Value: ui.RenderSparkline(loads, sparklineWidth)})

	columns := []ui.TableColumn{
		{Title: "Time", Width: 10},
		{Title: "Load", Width: 8},
		{Title: "Energy", Width: 8},
	}
	table := make([][]string, 0, rows)
	for i := len(r.Samples) - 1; i >= 0 && len(table) < rows; i-- {
		s := r.Samples[i]
		table = append(table, []string{
			s.Time.Format("15:04:05"),
			strconv.Itoa(s.CognitiveLoad) + "%",
			strconv.Itoa(s.EnergyLevel) + "%",
		})
	}

	return ui.RenderKeyValues(pairs) + "\n" + ui.RenderSimpleTable(columns, table) + "\n"
}
