package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type ParseCmd struct {
	env    *Env
	format string
	output string
	out    string
}

func NewParseCmd(env *Env) *cobra.Command {
	pc := &ParseCmd{env: env}
	cmd := &cobra.Command{
		Use:   "parse <file|s3://bucket/key>...",
		Short: "Parse COUNTER reports and print them",
		Args:  cobra.MinimumNArgs(1),
		RunE:  pc.run,
	}

	cmd.Flags().StringVarP(&pc.format, "format", "f", "", "Input format (csv, tsv, xlsx, sushi4, sushi5); sniffed when empty")
	cmd.Flags().StringVarP(&pc.output, "output", "o", "", "Output (summary, table, tsv, csv); defaults to the configured output")
	cmd.Flags().StringVar(&pc.out, "out", "", "Write to this file instead of stdout (single input only)")

	return cmd
}

func (pc *ParseCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	if pc.out != "" && len(args) > 1 {
		return fmt.Errorf("--out accepts a single input, got %d", len(args))
	}
	output := pc.output
	if output == "" {
		output = pc.env.Settings.Output
	}

	for _, uri := range args {
		report, err := pc.env.Pipeline.ParseSource(ctx, uri, pc.format)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", uri, err)
		}
		logger.Debug().Str("source", uri).Str("output", output).Msg("rendering report")

		if err := pc.env.emit(cmd.OutOrStdout(), output, pc.out, report); err != nil {
			return err
		}
	}
	return nil
}
