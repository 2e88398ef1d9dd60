package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hackx/skillos/internal/auth"
	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/login"
	"github.com/hackx/skillos/internal/ui"
)

// LoginOptions holds options for the login command.
type LoginOptions struct {
	Phone string // pre-fills the form, required without a terminal
}

// loginCommand signs in with a phone number and one-time code. On a
// terminal it shows the login form; otherwise it sends the code to
// opts.Phone and reads the code from in.
func loginCommand(ctx context.Context, configPath string, opts LoginOptions, out io.Writer, in io.Reader) error {
	a, err := loadApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if session := a.sessions.Current(); session != nil {
		fmt.Fprintf(out, "%s Already signed in as %s\n", ui.SymbolSuccess, session.User.Phone)
		fmt.Fprintln(out, ui.MutedStyle().Render("  Run 'skillos logout' to switch accounts"))
		return nil
	}

	machine := a.newMachine()
	if isInteractive(in, out) {
		return loginInteractive(ctx, a, machine, opts, out, in)
	}
	return loginWithCode(ctx, machine, opts, out, in)
}

func loginInteractive(ctx context.Context, a *app, machine *auth.Machine, opts LoginOptions, out io.Writer, in io.Reader) error {
	restore := redirectLogs(a.cfg.Session.LogFile)
	m, err := login.Run(ctx, machine, login.Options{Phone: opts.Phone}, out, in)
	restore()
	if err != nil {
		return err
	}

	if !m.Authenticated() {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	printNextSteps(out)
	return nil
}

// loginWithCode runs the phone → code flow on plain streams.
func loginWithCode(ctx context.Context, machine *auth.Machine, opts LoginOptions, out io.Writer, in io.Reader) error {
	if strings.TrimSpace(opts.Phone) == "" {
		return errors.New(errors.ErrValidation,
			"A phone number is required when not running in a terminal",
			"Pass it with --phone, e.g. skillos login --phone +15551234567")
	}

	spinner := ui.NewSpinnerTo(out, "Sending code to "+auth.SanitizePhone(opts.Phone))
	spinner.Start()
	if err := machine.SubmitPhone(ctx, opts.Phone); err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()

	phone := machine.Snapshot().Phone
	fmt.Fprintf(out, "Enter the code sent to %s: ", phone)
	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && code == "" {
		return errors.WrapWithCode(err, errors.ErrValidation,
			"No code was entered",
			"Pipe the code on stdin, or run 'skillos login' in a terminal")
	}

	spinner = ui.NewSpinnerTo(out, "Verifying")
	spinner.Start()
	if err := machine.SubmitCode(ctx, code); err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()

	fmt.Fprintf(out, "%s Signed in as %s\n", ui.SymbolSuccess, phone)
	printNextSteps(out)
	return nil
}

func printNextSteps(out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  skillos monitor  - Open the live dashboard")
	fmt.Fprintln(out, "  skillos status   - Print the latest readings")
}
