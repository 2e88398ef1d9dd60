package cli

import (
	"github.com/hackx/skillos/internal/errors"
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	loginPhoneFlag      string
	logoutYesFlag       bool
	monitorIntervalFlag string
	monitorCapacityFlag int
	statusJSONFlag      bool
	statusRowsFlag      int
	whoamiJSONFlag      bool
	versionShortFlag    bool
	initOpts            InitOptions
)

// loginCmd signs in with a phone number and one-time code
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with your phone number",
	Long: `Sign in with a one-time code sent to your phone.

On a terminal this opens the login form. Without one, pass --phone and
pipe the code on stdin.

Keys in the form:
  Enter    Submit
  Ctrl+R   Resend the code (after the countdown)
  Ctrl+N   Use a different number
  Esc      Cancel

Examples:
  skillos login
  skillos login --phone +15551234567`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return loginCommand(cmd.Context(), cfgFile, LoginOptions{Phone: loginPhoneFlag},
			cmd.OutOrStdout(), cmd.InOrStdin())
	},
}

// logoutCmd ends the session
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	Long: `Sign out at the gateway and delete the saved session.

Examples:
  skillos logout
  skillos logout --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return logoutCommand(cmd.Context(), cfgFile, LogoutOptions{Yes: logoutYesFlag},
			cmd.OutOrStdout(), cmd.InOrStdin())
	},
}

// monitorCmd starts the TUI dashboard
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live cognitive load and energy dashboard",
	Long: `Open a live dashboard of your most recent readings.

New readings stream in as they are recorded. If the live connection drops,
the dashboard says so and re-fetches every poll interval until it recovers.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Refresh now
  t           Toggle the data table
  up/k        Scroll table up
  down/j      Scroll table down
  Esc         Close table / help
  ?           Show help

Examples:
  skillos monitor
  skillos monitor --capacity 100
  skillos monitor --interval 500ms`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, err := ParseInterval(monitorIntervalFlag)
		if err != nil {
			return err
		}
		if err := ValidateCapacity(monitorCapacityFlag); err != nil {
			return err
		}
		return monitorCommand(cmd.Context(), cfgFile, MonitorOptions{
			Interval: interval,
			Capacity: monitorCapacityFlag,
		})
	},
}

// statusCmd prints the latest readings once
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print your latest readings",
	Long: `Fetch your recent readings once and print a summary.

Examples:
  skillos status
  skillos status --rows 20
  skillos status --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		machineMode = statusJSONFlag
		return statusCommand(cmd.Context(), cfgFile, StatusOptions{
			JSON: statusJSONFlag,
			Rows: statusRowsFlag,
		}, cmd.OutOrStdout())
	},
}

// whoamiCmd prints the signed-in account
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		machineMode = whoamiJSONFlag
		return whoamiCommand(cmd.Context(), cfgFile, whoamiJSONFlag, cmd.OutOrStdout())
	},
}

// initCmd creates a new .skillos.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .skillos.yaml configuration",
	Long: `Create a .skillos.yaml file pointing at your SkillOS gateway.

Prompts for the gateway URL and key on a terminal. In CI, or with
--non-interactive, values come from flags and SKILLOS_GATEWAY_URL /
SKILLOS_GATEWAY_ANON_KEY.

Examples:
  skillos init
  skillos init --url https://abc.supabase.co --non-interactive
  skillos init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initOpts, cmd.OutOrStdout(), cmd.InOrStdin())
	},
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of skillos.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		versionCommand(cmd.OutOrStdout(), versionShortFlag)
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for skillos.

Examples:
  # Bash
  skillos completion bash > /etc/bash_completion.d/skillos

  # Zsh
  skillos completion zsh > "${fpath[1]}/_skillos"

  # Fish
  skillos completion fish > ~/.config/fish/completions/skillos.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return errors.New(errors.ErrValidation,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginPhoneFlag, "phone", "", "phone number in E.164 format, e.g. +15551234567")

	logoutCmd.Flags().BoolVarP(&logoutYesFlag, "yes", "y", false, "sign out without asking")

	monitorCmd.Flags().StringVar(&monitorIntervalFlag, "interval", "", "clock refresh interval (e.g., 1s, 500ms)")
	monitorCmd.Flags().IntVar(&monitorCapacityFlag, "capacity", 0, "number of samples to keep (default from config)")

	statusCmd.Flags().BoolVar(&statusJSONFlag, "json", false, "output as JSON")
	statusCmd.Flags().IntVar(&statusRowsFlag, "rows", DefaultStatusRows, "number of recent samples to list")

	whoamiCmd.Flags().BoolVar(&whoamiJSONFlag, "json", false, "output as JSON")

	initCmd.Flags().StringVar(&initOpts.URL, "url", "", "gateway project URL")
	initCmd.Flags().StringVar(&initOpts.AnonKey, "anon-key", "", "gateway anon key")
	initCmd.Flags().IntVar(&initOpts.Capacity, "capacity", 0, "number of samples to keep")
	initCmd.Flags().BoolVarP(&initOpts.Overwrite, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initOpts.NonInteractive, "non-interactive", false, "skip prompts")

	versionCmd.Flags().BoolVar(&versionShortFlag, "short", false, "Print only the version number")

	// Register all commands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}
