package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/ui"
	"github.com/spf13/cobra"
)

// cfgFile is the --config flag shared by every command.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "skillos",
	Short: "SkillOS - live cognitive load and energy from your terminal",
	Long: `skillos signs you in with your phone number and streams your cognitive
load and energy readings as they arrive.

Get started:
  skillos init      Point skillos at your gateway
  skillos login     Sign in with a one-time code
  skillos monitor   Open the live dashboard`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default ./.skillos.yaml, then ~/.config/skillos/config.yaml)")
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		// JSON commands have already written an error envelope
		if !MachineMode() {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func printError(w io.Writer, err error) {
	_, _ = io.WriteString(w, formatError(err))
}

// formatError renders an error the way the CLI prints it: the message,
// then the cause and suggestion indented below it.
func formatError(err error) string {
	if isUnknownCommandError(err) {
		msg := err.Error()
		if name := extractUnknownCommand(err); name != "" {
			msg = fmt.Sprintf("Unknown command %q", name)
		}
		return ui.ErrorStyle().Render(ui.SymbolFail+" "+msg) + "\n\n  " +
			ui.MutedStyle().Render("Run 'skillos --help' to see available commands") + "\n"
	}

	var skErr *errors.Error
	if !stderrors.As(err, &skErr) {
		return ui.ErrorStyle().Render(ui.SymbolFail+" "+err.Error()) + "\n"
	}

	var b strings.Builder
	b.WriteString(ui.ErrorStyle().Render(ui.SymbolFail+" "+skErr.Message) + "\n")
	if skErr.Cause != nil {
		b.WriteString("\n  " + ui.MutedStyle().Render(errors.Message(skErr.Cause)) + "\n")
	}
	if skErr.Suggestion != "" {
		b.WriteString("\n  " + skErr.Suggestion + "\n")
	}
	return b.String()
}

// isUnknownCommandError reports whether cobra rejected the command line.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "skillos"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start == -1 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end == -1 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
