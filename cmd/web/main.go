package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/counter-atlas/pkg/server"
	"github.com/de-tools/counter-atlas/pkg/services/config"
	"github.com/de-tools/counter-atlas/pkg/services/pipeline"
	"github.com/de-tools/counter-atlas/pkg/store/source"
)

var (
	cfgPath string
	addr    string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the COUNTER report ingestion API",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML settings file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	settings, err := config.LoadSettings(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	opener, err := source.NewMuxWithS3(ctx, settings.S3.SourceConfig())
	if err != nil {
		return fmt.Errorf("failed to create source opener: %w", err)
	}
	parser := pipeline.New(pipeline.WithOpener(opener))

	if addr == "" {
		addr = settings.Server.Addr
	}
	logger.Info().Msgf("supported formats: %v", parser.Formats())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	api := server.NewWebAPI(logger, server.Config{
		Addr:           addr,
		MaxUploadBytes: settings.Server.MaxUploadMB << 20,
		Metrics:        reg,
		Dependencies: server.Dependencies{
			Parser: parser,
		},
	})
	return api.Start()
}
