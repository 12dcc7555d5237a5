package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/feature"
	"github.com/wegman-software/poimatch-go/internal/logger"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Manage the live feature stores",
	Long: `Copy an OSM extract into the stores generate reads live features from.

The extract may be OSM XML (.osm) or PBF (.pbf).`,
}

var featuresWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-load an OSM extract into the Redis feature cache",
	Args:  cobra.NoArgs,
	Run:   runFeaturesWarm,
}

var featuresImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Write an OSM extract into the PostgreSQL feature tables",
	Long: `Write every node, way and relation of an OSM extract into the
planet_osm_nodes, planet_osm_ways and planet_osm_rels tables of the
configured schema, creating them when missing.`,
	Args: cobra.NoArgs,
	Run:  runFeaturesImport,
}

func init() {
	rootCmd.AddCommand(featuresCmd)
	featuresCmd.AddCommand(featuresWarmCmd)
	featuresCmd.AddCommand(featuresImportCmd)

	featuresCmd.PersistentFlags().StringVarP(&cfg.FeaturesFile, "features", "f", "", "OSM XML or PBF extract (required)")
}

func loadExtract(ctx context.Context) *feature.MemoryStore {
	log := logger.Get()
	if cfg.FeaturesFile == "" {
		exitWithError("missing --features extract", nil)
	}

	start := time.Now()
	store := feature.NewMemoryStore()
	stats, err := feature.LoadFile(ctx, cfg.FeaturesFile, store)
	if err != nil {
		exitWithError("failed to load feature extract", err)
	}
	log.Info("Feature extract loaded",
		zap.String("file", cfg.FeaturesFile),
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int64("relations", stats.Relations),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return store
}

func runFeaturesWarm(cmd *cobra.Command, args []string) {
	log := logger.Get()
	ctx := context.Background()

	store := loadExtract(ctx)

	client, err := feature.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		exitWithError("failed to connect to redis", err)
	}
	defer client.Close()

	n, err := feature.NewRedisCache(client, nil, cfg.Redis.TTL).Warm(ctx, store)
	if err != nil {
		exitWithError("failed to warm feature cache", err)
	}
	log.Info("Feature cache warmed", zap.Int("features", n), zap.Duration("ttl", cfg.Redis.TTL))
}

func runFeaturesImport(cmd *cobra.Command, args []string) {
	log := logger.Get()
	ctx := context.Background()

	store := loadExtract(ctx)

	pg, err := feature.NewPGStore(ctx, cfg.ConnectionString(), cfg.DBSchema)
	if err != nil {
		exitWithError("failed to connect to database", err)
	}
	defer pg.Close()

	if err := pg.EnsureTables(ctx); err != nil {
		exitWithError("failed to create feature tables", err)
	}

	n := 0
	err = store.Each(func(f *feature.Feature) error {
		if err := pg.Upsert(ctx, f); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		exitWithError("failed to import features", err)
	}
	log.Info("Features imported", zap.Int("features", n), zap.String("schema", cfg.DBSchema))
}

// openLookup chains the configured feature sources: an extract in memory,
// else PostgreSQL, optionally behind the Redis cache. The returned function
// releases connections.
func openLookup(ctx context.Context) (feature.Lookup, func()) {
	log := logger.Get()
	var closers []func()
	var lookup feature.Lookup

	switch {
	case cfg.FeaturesFile != "":
		lookup = loadExtract(ctx)
	case cfg.UseDB:
		pg, err := feature.NewPGStore(ctx, cfg.ConnectionString(), cfg.DBSchema)
		if err != nil {
			exitWithError("failed to connect to database", err)
		}
		closers = append(closers, pg.Close)
		lookup = pg
	}

	if cfg.UseRedis {
		client, err := feature.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			exitWithError("failed to connect to redis", err)
		}
		closers = append(closers, func() { client.Close() })
		lookup = feature.NewRedisCache(client, lookup, cfg.Redis.TTL)
	}

	if lookup == nil {
		log.Warn("No feature source configured, way nodes cannot be materialized")
	}

	return lookup, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}
