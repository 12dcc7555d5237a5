package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/poimatch-go/internal/audit"
	"github.com/wegman-software/poimatch-go/internal/changeset"
	"github.com/wegman-software/poimatch-go/internal/config"
	"github.com/wegman-software/poimatch-go/internal/logger"
	"github.com/wegman-software/poimatch-go/internal/metrics"
	"github.com/wegman-software/poimatch-go/internal/poi"
	"github.com/wegman-software/poimatch-go/internal/tagger"
	"github.com/wegman-software/poimatch-go/internal/tagscript"
)

var (
	bboxStr          string
	auditBatchSize   int
	generateCatalog  string
	generateFeatures string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build an OSM changeset from matched POI records",
	Long: `Read matched POI records (one JSON object per line), reconcile their
tags with the live OSM features and write one OSM XML changeset.

Records are processed in input order:
  - new POIs become nodes with negative ids (-1, -2, ...)
  - matched nodes, ways and relations keep their id and version
  - way nodes missing from the changeset are materialized once
  - every element is preceded by review comments (links, tag diff, test seed)

A record that cannot be processed is logged and left out; the rest of the
changeset is still written.`,
	Args: cobra.NoArgs,
	Run:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringSliceVarP(&cfg.InputFiles, "input", "i", nil, "Record file(s), JSON lines (\"-\" for stdin)")
	generateCmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Output changeset (\"-\" for stdout)")
	generateCmd.Flags().StringVarP(&generateFeatures, "features", "f", "", "OSM XML or PBF extract with the live features")
	generateCmd.Flags().StringVar(&generateCatalog, "catalog", "", "Provider catalog YAML")
	generateCmd.Flags().StringVar(&cfg.AuditFile, "audit", "", "Write the tag diff to this Parquet file")
	generateCmd.Flags().IntVar(&auditBatchSize, "audit-batch-size", audit.DefaultBatchSize, "Rows per Parquet row group")
	generateCmd.Flags().StringVar(&bboxStr, "bbox", "", "Reject records outside minlon,minlat,maxlon,maxlat")
	generateCmd.Flags().StringVar(&cfg.Tagging.ScriptFile, "script", cfg.Tagging.ScriptFile, "Lua file defining process_tags(tags, poi)")
	generateCmd.Flags().BoolVar(&cfg.Tagging.AlternativeOpeningHours, "alt-opening-hours", cfg.Tagging.AlternativeOpeningHours, "Write changed opening hours to the alternative tag")
	generateCmd.Flags().BoolVar(&cfg.Tagging.GeneralSourceDate, "general-source-date", cfg.Tagging.GeneralSourceDate, "Use one general source date tag instead of source:<host>:date")

	generateCmd.MarkFlagRequired("input")
}

func runGenerate(cmd *cobra.Command, args []string) {
	totalStart := time.Now()

	if generateFeatures != "" {
		cfg.FeaturesFile = generateFeatures
	}
	if generateCatalog != "" {
		cfg.CatalogFile = generateCatalog
	}
	if bboxStr != "" {
		bbox, err := config.ParseBBox(bboxStr)
		if err != nil {
			exitWithError("invalid bbox", err)
		}
		cfg.BBox = bbox
	}
	if err := cfg.ValidateRun(); err != nil {
		exitWithError("invalid configuration", err)
	}

	runID := uuid.NewString()
	log := logger.WithRun(runID)

	logFields := []zap.Field{
		zap.Strings("input", cfg.InputFiles),
		zap.String("output", cfg.OutputFile),
		zap.Bool("alt_opening_hours", cfg.Tagging.AlternativeOpeningHours),
		zap.Bool("general_source_date", cfg.Tagging.GeneralSourceDate),
	}
	if cfg.FeaturesFile != "" {
		logFields = append(logFields, zap.String("features", cfg.FeaturesFile))
	}
	if cfg.BBox.IsSet {
		logFields = append(logFields, zap.String("bbox", cfg.BBox.String()))
	}
	if cfg.AuditFile != "" {
		logFields = append(logFields, zap.String("audit", cfg.AuditFile))
	}
	log.Info("Starting changeset generation", logFields...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Info("Received signal, stopping batch", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	records := readInputs(ctx, cfg.InputFiles)

	if cfg.CatalogFile != "" {
		catalog, err := poi.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			exitWithError("failed to load catalog", err)
		}
		filled := catalog.Apply(records)
		log.Info("Catalog applied", zap.Int("providers", len(catalog.Providers)), zap.Int("records", filled))
	}

	lookup, closeLookup := openLookup(ctx)
	defer closeLookup()

	opts := tagger.OptionsFromConfig(cfg.Tagging)
	if cfg.Tagging.ScriptFile != "" {
		rt := tagscript.NewRuntime()
		defer rt.Close()
		if err := rt.LoadFile(cfg.Tagging.ScriptFile); err != nil {
			exitWithError("failed to load tag script", err)
		}
		if !rt.HasProcessTags() {
			exitWithError(fmt.Sprintf("tag script %s does not define process_tags", cfg.Tagging.ScriptFile), nil)
		}
		layer := rt.Layer()
		opts.Script = &layer
	}
	engine := tagger.NewEngine(opts)
	log.Debug("Tag layers", zap.Strings("layers", engine.Layers()))

	builderOpts := changeset.Options{
		Identity: cfg.Identity,
		Engine:   engine,
		Lookup:   lookup,
		BBox:     cfg.BBox,
		RunID:    runID,
	}

	var auditWriter *audit.ParquetWriter
	if cfg.AuditFile != "" {
		w, err := audit.NewParquetWriter(cfg.AuditFile, auditBatchSize)
		if err != nil {
			exitWithError("failed to create audit file", err)
		}
		auditWriter = w
		builderOpts.Audit = w
	}

	builder := changeset.NewBuilder(builderOpts)

	collector := metrics.NewCollector(cfg.MetricsInterval, log, builder.Progress())
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	go collector.Start(metricsCtx)

	doc, report := builder.Build(ctx, records)
	stopMetrics()

	if auditWriter != nil {
		if err := auditWriter.Close(); err != nil {
			exitWithError("failed to close audit file", err)
		}
		log.Info("Audit written", zap.String("file", cfg.AuditFile), zap.Int64("rows", auditWriter.Rows()))
	}

	if err := writeDocument(cfg.OutputFile, doc); err != nil {
		exitWithError("failed to write changeset", err)
	}

	log.Info("Changeset complete",
		zap.Duration("total_time", time.Since(totalStart).Round(time.Millisecond)),
		zap.Int("records", len(records)),
		zap.Int("ok", report.OK),
		zap.Int("partial", report.Partial),
		zap.Int("dropped", report.Dropped),
		zap.Int("elements", report.Elements),
	)

	if report.Err != nil {
		exitWithError("batch did not complete", report.Err)
	}
}

// readInputs decodes every input file in parallel and concatenates the
// records in the order the files were given
func readInputs(ctx context.Context, files []string) []poi.Record {
	log := logger.Get()
	results := make([][]poi.Record, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range files {
		g.Go(func() error {
			records, skipped, err := poi.ReadFile(gctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			log.Info("Records read",
				zap.String("file", path),
				zap.Int("records", len(records)),
				zap.Int("skipped", skipped))
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		exitWithError("failed to read records", err)
	}

	var all []poi.Record
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

func writeDocument(path string, doc *changeset.Document) error {
	out := os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := changeset.Encode(out, doc); err != nil {
		return err
	}
	if path != "-" {
		return out.Sync()
	}
	return nil
}
