package cli

import (
	"context"
	"io"
	"time"

	"github.com/hackx/skillos/internal/ui"
)

// WhoamiReport is the data printed by `skillos whoami`.
type WhoamiReport struct {
	Phone     string    `json:"phone"`
	UserID    string    `json:"user_id"`
	Gateway   string    `json:"gateway"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// whoamiCommand prints the signed-in account.
func whoamiCommand(ctx context.Context, configPath string, jsonOut bool, out io.Writer) error {
	report, err := buildWhoami(ctx, configPath)
	if jsonOut {
		if err != nil {
			_ = WriteJSONFromError(out, err)
			return err
		}
		return WriteJSONSuccess(out, report)
	}
	if err != nil {
		return err
	}

	pairs := []ui.KeyValue{
		{Key: "Phone", Value: report.Phone},
		{Key: "User", Value: report.UserID},
		{Key: "Gateway", Value: report.Gateway},
	}
	if !report.ExpiresAt.IsZero() {
		pairs = append(pairs, ui.KeyValue{Key: "Expires", Value: report.ExpiresAt.Local().Format(time.RFC1123)})
	}
	header := ui.RenderHeader(ui.HeaderInfo{
		Version: formatVersion(version),
		Tagline: "cognitive load monitor",
		Detail:  "signed in to " + report.Gateway,
	})
	_, err = io.WriteString(out, header+ui.RenderKeyValues(pairs))
	return err
}

func buildWhoami(ctx context.Context, configPath string) (*WhoamiReport, error) {
	a, err := loadApp(ctx, configPath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	session, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	return &WhoamiReport{
		Phone:     session.User.Phone,
		UserID:    session.User.ID,
		Gateway:   a.gatewayHost(),
		ExpiresAt: session.ExpiresAt,
	}, nil
}
