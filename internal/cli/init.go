package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/hackx/skillos/internal/config"
	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/ui"
	"gopkg.in/yaml.v3"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	URL            string // gateway project URL
	AnonKey        string // gateway public key
	Capacity       int    // metrics window size, config default if zero
	Dir            string // directory to write .skillos.yaml into (default ".")
	Overwrite      bool   // overwrite existing config without asking
	NonInteractive bool   // skip prompts, use flags and environment
}

// Environment variables read by init.
const (
	envGatewayURL     = "SKILLOS_GATEWAY_URL"
	envGatewayAnonKey = "SKILLOS_GATEWAY_ANON_KEY"
	envNonInteractive = "SKILLOS_NON_INTERACTIVE"
)

// initDefaults are values taken from the environment.
type initDefaults struct {
	URL            string
	AnonKey        string
	NonInteractive bool
}

func getInitDefaults() initDefaults {
	nonInteractive := os.Getenv(envNonInteractive)
	return initDefaults{
		URL:            os.Getenv(envGatewayURL),
		AnonKey:        os.Getenv(envGatewayAnonKey),
		NonInteractive: nonInteractive == "true" || nonInteractive == "1" || os.Getenv("CI") != "",
	}
}

// mergeInitOptions fills empty flags from the environment. Flags win.
func mergeInitOptions(opts InitOptions) InitOptions {
	d := getInitDefaults()
	if opts.URL == "" {
		opts.URL = d.URL
	}
	if opts.AnonKey == "" {
		opts.AnonKey = d.AnonKey
	}
	if d.NonInteractive {
		opts.NonInteractive = true
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	return opts
}

// initValues are the collected answers.
type initValues struct {
	url      string
	anonKey  string
	capacity int
}

// initFile is the document written by init. Durations are kept as strings
// so the file stays readable.
type initFile struct {
	Version int `yaml:"version"`
	Gateway struct {
		URL          string `yaml:"url,omitempty"`
		AnonKey      string `yaml:"anon_key,omitempty"`
		MetricsTable string `yaml:"metrics_table"`
	} `yaml:"gateway"`
	Metrics struct {
		Capacity     int    `yaml:"capacity"`
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"metrics"`
	Output struct {
		Color string `yaml:"color"`
	} `yaml:"output"`
}

// Init creates a new .skillos.yaml configuration file.
func Init(opts InitOptions, out io.Writer, in io.Reader) error {
	configPath := filepath.Join(opts.Dir, config.ConfigFileName)

	proceed, err := checkExistingConfig(configPath, opts, out, in)
	if err != nil || !proceed {
		return err
	}

	var vals *initValues
	if opts.NonInteractive {
		vals, err = collectNonInteractiveValues(opts)
	} else {
		vals, err = collectInteractiveValues(opts, out, in)
	}
	if err != nil {
		return err
	}

	if err := writeInitConfig(configPath, vals); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Created %s\n\n", ui.SymbolSuccess, configPath)
	if vals.anonKey == "" {
		fmt.Fprintf(out, "Set %s before signing in.\n\n", envGatewayAnonKey)
	}
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  skillos login    - Sign in with your phone number")
	fmt.Fprintln(out, "  skillos monitor  - Open the live dashboard")
	return nil
}

// checkExistingConfig reports whether init may write configPath, asking
// before overwriting when interactive.
func checkExistingConfig(configPath string, opts InitOptions, out io.Writer, in io.Reader) (bool, error) {
	if _, err := os.Stat(configPath); err != nil || opts.Overwrite {
		return true, nil
	}

	if opts.NonInteractive {
		return false, errors.New(errors.ErrConfig,
			fmt.Sprintf("There's already a config file at %s", configPath),
			"Use --force to overwrite it")
	}

	var overwrite bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
				Value(&overwrite),
		),
	).WithInput(in).WithOutput(out)

	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Try running with --force to overwrite")
	}
	if !overwrite {
		fmt.Fprintln(out, "Cancelled.")
	}
	return overwrite, nil
}

func collectNonInteractiveValues(opts InitOptions) (*initValues, error) {
	if opts.URL != "" {
		if err := validateGatewayURL(opts.URL); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
				"Pass the project URL with --url, e.g. https://abc.supabase.co")
		}
	}
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = config.DefaultCapacity
	}
	if err := ValidateCapacity(capacity); err != nil {
		return nil, err
	}
	return &initValues{
		url:      strings.TrimRight(opts.URL, "/"),
		anonKey:  opts.AnonKey,
		capacity: capacity,
	}, nil
}

func collectInteractiveValues(opts InitOptions, out io.Writer, in io.Reader) (*initValues, error) {
	gatewayURL := opts.URL
	anonKey := opts.AnonKey
	capacity := strconv.Itoa(config.DefaultCapacity)
	if opts.Capacity > 0 {
		capacity = strconv.Itoa(opts.Capacity)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gateway URL").
				Description("Your SkillOS project URL").
				Placeholder("https://abc.supabase.co").
				Value(&gatewayURL).
				Validate(validateGatewayURL),
			huh.NewInput().
				Title("Anon key").
				Description("Public API key (leave empty to use " + envGatewayAnonKey + ")").
				EchoMode(huh.EchoModePassword).
				Value(&anonKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Samples to keep").
				Description("How many recent readings the dashboard charts").
				Options(
					huh.NewOption("25", "25"),
					huh.NewOption("50 (recommended)", "50"),
					huh.NewOption("100", "100"),
					huh.NewOption("200", "200"),
				).
				Value(&capacity),
		),
	).WithInput(in).WithOutput(out)

	if err := form.Run(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}

	n, err := strconv.Atoi(capacity)
	if err != nil {
		n = config.DefaultCapacity
	}
	return &initValues{
		url:      strings.TrimRight(strings.TrimSpace(gatewayURL), "/"),
		anonKey:  strings.TrimSpace(anonKey),
		capacity: n,
	}, nil
}

func validateGatewayURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("'%s' isn't a valid http(s) URL", s)
	}
	return nil
}

func writeInitConfig(configPath string, vals *initValues) error {
	var doc initFile
	doc.Version = config.CurrentConfigVersion
	doc.Gateway.URL = vals.url
	doc.Gateway.AnonKey = vals.anonKey
	doc.Gateway.MetricsTable = config.DefaultMetricsTable
	doc.Metrics.Capacity = vals.capacity
	doc.Metrics.PollInterval = config.DefaultPollInterval.String()
	doc.Output.Color = "auto"

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}

	header := `# SkillOS configuration
# Run 'skillos login' to sign in, then 'skillos monitor'

`
	// 0600: the file may hold the gateway key
	if err := os.WriteFile(configPath, []byte(header+string(data)), 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}
	return nil
}

// initCommand is the implementation called by the cobra command.
func initCommand(opts InitOptions, out io.Writer, in io.Reader) error {
	opts = mergeInitOptions(opts)
	if !opts.NonInteractive && !isInteractive(in, out) {
		opts.NonInteractive = true
	}
	return Init(opts, out, in)
}
