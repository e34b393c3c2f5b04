package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/counter-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/counter-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/counter-atlas/pkg/services/config"
	"github.com/de-tools/counter-atlas/pkg/services/pipeline"
	"github.com/de-tools/counter-atlas/pkg/store/source"
)

// Output names accepted by --output besides the delimited formats.
const (
	OutputSummary = "summary"
	OutputTable   = "table"
)

// CLI represents the command-line interface
type CLI struct {
	env     *commands.Env
	opener  source.Opener
	logger  zerolog.Logger
	rootCmd *cobra.Command

	cfgPath  string
	logLevel string
}

// Options contain configuration for the CLI
type Options struct {
	// Opener overrides the source opener built from settings.
	Opener source.Opener
	Output io.Writer
	Logger *zerolog.Logger
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	cli := &CLI{
		env:    &commands.Env{Handlers: NewHandler},
		opener: opts.Opener,
		logger: logger,
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(cli.logger.WithContext(ctx))
}

// SetArgs overrides os.Args, for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "counter",
		Short:             "COUNTER usage report toolkit",
		SilenceUsage:      true,
		PersistentPreRunE: cli.setup,
	}

	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", "", "Path to a YAML settings file")
	cmd.PersistentFlags().StringVar(&cli.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(commands.NewParseCmd(cli.env))
	cmd.AddCommand(commands.NewFetchCmd(cli.env))
	cmd.AddCommand(commands.NewTypesCmd())

	return cmd
}

// setup loads settings and wires the pipeline before any command runs.
func (cli *CLI) setup(cmd *cobra.Command, _ []string) error {
	settings, err := config.LoadSettings(cli.cfgPath)
	if err != nil {
		return err
	}
	if cli.logLevel != "" {
		settings.LogLevel = cli.logLevel
	}

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}
	logger := zerolog.Ctx(cmd.Context()).Level(level)
	ctx := logger.WithContext(cmd.Context())
	cmd.SetContext(ctx)

	opener := cli.opener
	if opener == nil {
		if opener, err = source.NewMuxWithS3(ctx, settings.S3.SourceConfig()); err != nil {
			return err
		}
	}

	cli.env.Settings = settings
	cli.env.Pipeline = pipeline.New(pipeline.WithOpener(opener))
	return nil
}

// NewHandler maps an output name to a report handler.
func NewHandler(output string, w io.Writer) (commands.ReportHandler, error) {
	switch strings.ToLower(output) {
	case OutputSummary:
		return NewReporter(w), nil
	case OutputTable:
		return export.NewTableReporter(w), nil
	default:
		writer, err := export.NewWriter(w, output)
		if err != nil {
			return nil, fmt.Errorf("%w (or %s, %s)", err, OutputSummary, OutputTable)
		}
		return writer, nil
	}
}
