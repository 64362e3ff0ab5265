// Package cli provides the command line entry point of the updater.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jembi/datim-update-infoman/internal/app"
	"github.com/jembi/datim-update-infoman/internal/config"
	"github.com/jembi/datim-update-infoman/internal/logging"
	"github.com/jembi/datim-update-infoman/internal/version"
	"github.com/jembi/datim-update-infoman/internal/wire"
)

// rootFlags holds the raw flag values of one invocation.
type rootFlags struct {
	configPath    string
	force         bool
	firstLineData bool
	pepfarCol     int
	localCol      int
	schema        string
	resourceType  string
	baseURL       string
	timeout       string
	verbose       bool
	noColor       bool
}

// NewRootCmd returns the datim-update-infoman command writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:     "datim-update-infoman [flags] CSV DIRECTORY_NAME",
		Short:   "Add local identifiers to OpenInfoMan resources from a CSV file",
		Version: version.String(),
		Long: `Updates OpenInfoMan with codes provided by a file in csv format.

Each row maps a PEPFAR ID to a local ID. The resource whose entityID is the
PEPFAR ID is looked up in DIRECTORY_NAME and the local ID is added to it as an
otherID. Progress is kept in a hidden .<file>.progress marker next to the CSV so
an interrupted or failed run resumes where it stopped.`,
		Args:          usageArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, flags, args)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			service := wire.UpdateService(cfg, wire.Options{
				Out:     out,
				NoColor: flags.noColor || color.NoColor,
				Logger:  logger,
			})
			_, err = service.Run(cmd.Context(), args[0])
			return err
		},
	}

	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &config.UsageError{Msg: err.Error()}
	})

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "YAML file with default option values")
	f.BoolVarP(&flags.force, "force", "f", false, "Do not resume partially processed files. Will start from the beginning.")
	f.BoolVarP(&flags.firstLineData, "first-line-data", "l", false, "Treat the first line as a row. Without this option the first line is treated as a header and ignored.")
	f.IntVarP(&flags.pepfarCol, "pepfar-col", "m", config.DefaultCanonicalIDCol+1, "The PEPFAR ID column in the CSV. '1' indicates the first column.")
	f.IntVarP(&flags.localCol, "local-col", "n", config.DefaultLocalIDCol+1, "The local ID column in the CSV. '1' indicates the first column.")
	f.StringVarP(&flags.schema, "schema", "s", config.DefaultCodingSchema, "The code schema to use for the local identifier.")
	f.StringVarP(&flags.resourceType, "type", "t", string(config.DefaultResourceType), "The CSD resource type to update: facility, organization, provider or service.")
	f.StringVarP(&flags.baseURL, "url", "u", config.DefaultBaseURL, "The base URL to use for OpenInfoMan.")
	f.StringVar(&flags.timeout, "timeout", "0s", "Per-request timeout (e.g. 30s). Zero waits indefinitely.")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Print diagnostic logs to stderr")
	f.BoolVar(&flags.noColor, "no-color", false, "Disable colored status output")

	return cmd
}

// usageArgs requires exactly the CSV path and the directory name.
func usageArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return &config.UsageError{Msg: fmt.Sprintf("expected CSV and DIRECTORY_NAME, got %d argument(s)", len(args))}
	}
	return nil
}

// buildConfig layers built-in defaults, the optional config file and the flags
// that were set explicitly, then validates the result.
func buildConfig(cmd *cobra.Command, flags rootFlags, args []string) (config.Config, error) {
	cfg := config.Default()

	if flags.configPath != "" {
		file, err := config.LoadFile(flags.configPath)
		if err != nil {
			return cfg, &config.UsageError{Msg: err.Error()}
		}
		if cfg, err = file.Apply(cfg); err != nil {
			return cfg, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("force") {
		cfg.IgnoreProgress = flags.force
	}
	if changed("first-line-data") {
		cfg.FirstLineIsData = flags.firstLineData
	}
	if changed("pepfar-col") {
		cfg.CanonicalIDCol = flags.pepfarCol - 1
	}
	if changed("local-col") {
		cfg.LocalIDCol = flags.localCol - 1
	}
	if changed("schema") {
		cfg.CodingSchema = flags.schema
	}
	if changed("type") {
		rt, err := config.ParseResourceType(flags.resourceType)
		if err != nil {
			return cfg, err
		}
		cfg.ResourceType = rt
	}
	if changed("url") {
		cfg.BaseURL = flags.baseURL
	}
	if changed("timeout") {
		d, err := parseTimeout(flags.timeout)
		if err != nil {
			return cfg, err
		}
		cfg.Timeout = d
	}
	cfg.Verbose = flags.verbose
	cfg.Directory = args[1]

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Execute runs the command with args and returns the process exit code.
// Usage errors are printed with the usage text; a halted run has already been
// reported line by line and prints nothing further.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	cmd := NewRootCmd(out, errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var usageErr *config.UsageError
	switch {
	case errors.Is(err, app.ErrRunHalted):
	case errors.As(err, &usageErr):
		fmt.Fprintln(errOut, usageErr.Msg)
		fmt.Fprintln(errOut)
		fmt.Fprint(errOut, cmd.UsageString())
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(errOut, "Interrupted. Run the same command again to resume.")
	default:
		fmt.Fprintln(errOut, err)
	}
	return 1
}
