package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/ui"
)

// LogoutOptions holds options for the logout command.
type LogoutOptions struct {
	Yes bool // skip the confirmation prompt
}

// logoutCommand ends the session at the gateway and removes the saved
// session file. The local session is dropped even if the gateway call fails.
func logoutCommand(ctx context.Context, configPath string, opts LogoutOptions, out io.Writer, in io.Reader) error {
	a, err := loadApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	session := a.sessions.Current()
	if session == nil {
		fmt.Fprintln(out, "Not signed in.")
		return nil
	}

	if !opts.Yes && isInteractive(in, out) {
		confirm := true
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Sign out %s?", session.User.Phone)).
					Affirmative("Sign out").
					Negative("Cancel").
					Value(&confirm),
			),
		).WithInput(in).WithOutput(out)

		if err := form.RunWithContext(ctx); err != nil {
			return errors.WrapWithCode(err, errors.ErrAuth,
				"Failed to get user input",
				"Pass --yes to sign out without the prompt")
		}
		if !confirm {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if err := a.newMachine().SignOut(ctx); err != nil {
		fmt.Fprintf(out, "%s Signed out locally, but the gateway reported: %s\n",
			ui.WarningStyle().Render(ui.SymbolSkipped), errors.Message(err))
		return nil
	}

	fmt.Fprintf(out, "%s Signed out %s\n", ui.SymbolSuccess, session.User.Phone)
	return nil
}
