package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/counter-atlas/pkg/services/config"
	"github.com/de-tools/counter-atlas/pkg/services/normalize"
	"github.com/de-tools/counter-atlas/pkg/services/sushi"
)

type FetchCmd struct {
	env          *Env
	profilesPath string
	profile      string
	report       string
	begin        string
	end          string
	output       string
	out          string
	dump         string
}

func NewFetchCmd(env *Env) *cobra.Command {
	fc := &FetchCmd{env: env}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a COUNTER 5 report from a SUSHI provider",
		RunE:  fc.run,
	}

	cmd.Flags().StringVar(&fc.profilesPath, "profiles", "", "Path to the SUSHI profiles file (default is $HOME/.sushicfg)")
	cmd.Flags().StringVarP(&fc.profile, "profile", "p", "", "Provider profile name")
	cmd.Flags().StringVarP(&fc.report, "report", "r", "TR_J1", "Report id")
	cmd.Flags().StringVar(&fc.begin, "begin", "", "First month (YYYY-MM)")
	cmd.Flags().StringVar(&fc.end, "end", "", "Last month (YYYY-MM); defaults to --begin")
	cmd.Flags().StringVarP(&fc.output, "output", "o", "", "Output (summary, table, tsv, csv); defaults to the configured output")
	cmd.Flags().StringVar(&fc.out, "out", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&fc.dump, "dump", "", "Save the raw SUSHI response to this file")

	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("begin")

	return cmd
}

func parseMonth(flag, value string) (time.Time, error) {
	if m, ok := normalize.ParseMonth(value); ok {
		return m, nil
	}
	return time.Time{}, fmt.Errorf("invalid --%s %q, expected YYYY-MM", flag, value)
}

func (fc *FetchCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)
	settings := fc.env.Settings

	begin, err := parseMonth("begin", fc.begin)
	if err != nil {
		return err
	}
	end := begin
	if fc.end != "" {
		if end, err = parseMonth("end", fc.end); err != nil {
			return err
		}
	}

	path := fc.profilesPath
	if path == "" {
		path = settings.Sushi.Profiles
	}
	profiles, err := config.NewRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to create profile registry: %w", err)
	}
	profile, err := profiles.GetProfile(ctx, fc.profile)
	if err != nil {
		return err
	}

	opts := []sushi.Option{sushi.WithRetry(settings.Sushi.Attempts, settings.Sushi.RetryDelay)}
	if fc.dump != "" {
		f, err := os.Create(fc.dump)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", fc.dump, err)
		}
		defer closeQuietly(logger, f)
		opts = append(opts, sushi.WithDump(f))
	}

	client, err := sushi.NewClient(sushi.Endpoint{
		URL:         profile.URL,
		RequestorID: profile.RequestorID,
		CustomerID:  profile.CustomerID,
		APIKey:      profile.APIKey,
		Platform:    profile.Platform,
		Insecure:    profile.Insecure,
	}, opts...)
	if err != nil {
		return err
	}

	logger.Info().
		Str("profile", profile.Name).
		Str("report", fc.report).
		Time("begin", begin).
		Time("end", end).
		Msg("fetching report")

	report, err := client.Fetch(ctx, sushi.Request{Report: fc.report, Begin: begin, End: end})
	if err != nil {
		return fmt.Errorf("failed to fetch %s from %s: %w", fc.report, profile.Name, err)
	}

	output := fc.output
	if output == "" {
		output = settings.Output
	}
	return fc.env.emit(cmd.OutOrStdout(), output, fc.out, report)
}

func closeQuietly(logger *zerolog.Logger, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close file")
	}
}
