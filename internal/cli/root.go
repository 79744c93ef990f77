// Package cli implements the artipub command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"artipub/internal/buildinfo"
	"artipub/internal/deprecation"
	"artipub/internal/logging"
)

const envWarningMode = "ARTIPUB_WARNING_MODE"

type globalOptions struct {
	logLevel    string
	warningMode string
	pretty      bool
	stdout      io.Writer
	stderr      io.Writer
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := Run(ctx, args, stdout, stderr); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// Run executes one invocation. Deprecation state is reset first, so
// repeated in-process runs do not leak warnings into each other.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deprecation.Reset()

	opts := &globalOptions{stdout: stdout, stderr: stderr}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	deprecation.ReportSuppressedDeprecations()
	if err != nil {
		return err
	}
	return deprecation.DeprecationFailure()
}

func newRootCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           buildinfo.ToolName,
		Short:         "Publish Maven artifacts to S3 compatible repositories",
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: trace|debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&opts.warningMode, "warning-mode", os.Getenv(envWarningMode), "Deprecation warnings: all|summary|none|fail")
	cmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", true, "Human readable log output")

	cmd.AddCommand(publishCmd(opts))
	cmd.AddCommand(verifyCmd(opts))
	return cmd
}

func (o *globalOptions) setup() error {
	mode, err := deprecation.ParseWarningMode(o.warningMode)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: o.logLevel, Pretty: o.pretty, Output: o.stderr})
	logging.SetDefault(logger)
	deprecation.Default().SetLogger(logger)
	deprecation.Init(deprecation.CallerReporter{}, mode, nil)
	return nil
}
