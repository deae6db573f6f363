// Package cli wires configuration, adapters and the pipeline into the etl
// command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/cwa"
	kafkaadapter "github.com/couchcryptid/quake-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	newMetrics func() *observability.Metrics

	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics

	flags struct {
		inputDir    string
		bulletinDir string
		parsedDir   string
		enrichedDir string
		regionalDir string
		unifiedDir  string
		logLevel    string
	}
}

// NewRootCmd creates the etl command tree with metrics registered on the
// default Prometheus registry.
func NewRootCmd() *cobra.Command {
	return newRootCmd(observability.NewMetrics)
}

func newRootCmd(newMetrics func() *observability.Metrics) *cobra.Command {
	a := &app{newMetrics: newMetrics}

	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Normalize CWA earthquake bulletins and detail pages into unified JSON",
		Long: `etl downloads earthquake bulletins and regional detail pages listed in
CWA CSV indices, parses them, restricts stations and locations to the
allow-listed cities, and writes one unified JSON document per event.

Settings come from environment variables or ./etl.yaml; directory flags
override both.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.inputDir, "input-dir", "", "directory holding CSV indices (INPUT_DIR)")
	pf.StringVar(&a.flags.bulletinDir, "bulletin-dir", "", "directory for downloaded bulletins (BULLETIN_DIR)")
	pf.StringVar(&a.flags.parsedDir, "parsed-dir", "", "directory for parsed bulletin JSON (PARSED_DIR)")
	pf.StringVar(&a.flags.enrichedDir, "enriched-dir", "", "directory for city-enriched JSON (ENRICHED_DIR)")
	pf.StringVar(&a.flags.regionalDir, "regional-dir", "", "directory for regional JSON (REGIONAL_DIR)")
	pf.StringVar(&a.flags.unifiedDir, "unified-dir", "", "directory for unified JSON (UNIFIED_DIR)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")

	cmd.AddCommand(
		a.runCmd(),
		a.encodeCmd(),
		a.stageCmd(pipeline.StageDownload, "Fetch bulletins and regional detail pages listed in the CSV indices", (*pipeline.Pipeline).Download),
		a.stageCmd(pipeline.StageParse, "Parse downloaded bulletins into JSON", (*pipeline.Pipeline).Parse),
		a.stageCmd(pipeline.StageEnrich, "Attach cities to parsed stations and drop non-allow-listed ones", (*pipeline.Pipeline).Enrich),
		a.stageCmd(pipeline.StageFilterRegions, "Restrict regional records to allow-listed counties, in place", (*pipeline.Pipeline).FilterRegions),
		a.stageCmd(pipeline.StageUnify, "Merge enriched and regional JSON into the unified schema", (*pipeline.Pipeline).Unify),
		a.coordsCmd(),
		a.scheduleCmd(),
	)
	return cmd
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	overrides := []struct {
		name string
		val  string
		dst  *string
	}{
		{"input-dir", a.flags.inputDir, &cfg.InputDir},
		{"bulletin-dir", a.flags.bulletinDir, &cfg.BulletinDir},
		{"parsed-dir", a.flags.parsedDir, &cfg.ParsedDir},
		{"enriched-dir", a.flags.enrichedDir, &cfg.EnrichedDir},
		{"regional-dir", a.flags.regionalDir, &cfg.RegionalDir},
		{"unified-dir", a.flags.unifiedDir, &cfg.UnifiedDir},
		{"log-level", a.flags.logLevel, &cfg.LogLevel},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.name) {
			*o.dst = o.val
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = observability.NewLogger(cfg)
	a.metrics = a.newMetrics()
	return nil
}

// newPipeline builds a pipeline over the configured adapters. The returned
// closer releases the Kafka writer when publishing is enabled.
func (a *app) newPipeline() (*pipeline.Pipeline, func()) {
	fetcher := cwa.NewClient(a.cfg, a.metrics, a.logger)

	var publisher pipeline.Publisher
	closer := func() {}
	if a.cfg.PublishEnabled() {
		w := kafkaadapter.NewWriter(a.cfg, a.logger)
		publisher = w
		closer = func() {
			if err := w.Close(); err != nil {
				a.logger.Error("kafka writer close error", "error", err)
			}
		}
		a.logger.Info("publishing unified records", "brokers", a.cfg.KafkaBrokers, "topic", a.cfg.KafkaTopic)
	}

	p := pipeline.New(pipeline.DirsFromConfig(a.cfg), a.cfg.DownloadPause, fetcher, publisher,
		clockwork.NewRealClock(), a.logger, a.metrics)
	return p, closer
}

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run download, parse, enrich, filter-regions and unify in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, closePipeline := a.newPipeline()
			defer closePipeline()

			// Item failures and interruptions are logged by the pipeline and
			// do not fail the command.
			_, _ = p.Run(cmd.Context())
			return nil
		},
	}
}

func (a *app) stageCmd(name, short string, stage func(*pipeline.Pipeline, context.Context) pipeline.Summary) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, closePipeline := a.newPipeline()
			defer closePipeline()

			stage(p, cmd.Context())
			return nil
		},
	}
}
