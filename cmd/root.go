package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/config"
	"github.com/wegman-software/poimatch-go/internal/logger"
)

var (
	cfg             = config.DefaultConfig()
	configFile      string
	verbose         bool
	logFile         string
	metricsInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "poimatch-go",
	Short: "Reconcile POI records with OpenStreetMap and assemble a changeset",
	Long: `poimatch-go turns matched POI records into one reviewable OSM XML changeset.

Features:
  - Layered tag reconciliation that never drops unrelated live tags
  - Way and relation geometry with materialized member nodes
  - Review annotations: tag diff, JOSM links and test seeds
  - Feature lookups from an OSM extract, PostgreSQL or Redis
  - Optional Lua tag script and Parquet audit export`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Flags win over the config file and environment
		changed := map[string]string{}
		cmd.Flags().Visit(func(f *pflag.Flag) {
			if !strings.HasSuffix(f.Value.Type(), "Slice") && !strings.HasSuffix(f.Value.Type(), "Array") {
				changed[f.Name] = f.Value.String()
			}
		})
		loadErr := config.Load(configFile, cfg)
		for name, value := range changed {
			_ = cmd.Flags().Set(name, value)
		}

		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval

		// Initialize logger with optional file output
		if logFile != "" {
			logger.InitWithFile(verbose, logFile)
		} else {
			logger.Init(verbose)
		}

		if loadErr != nil {
			exitWithError("failed to load configuration", loadErr)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (POIMATCH_* environment variables also apply)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Logging and metrics flags
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 30*time.Second, "Interval for system metrics logging (e.g., 10s, 1m)")

	// Database flags (feature store)
	rootCmd.PersistentFlags().BoolVar(&cfg.UseDB, "db", cfg.UseDB, "Look up features in a PostgreSQL slim-mode database")
	rootCmd.PersistentFlags().StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	rootCmd.PersistentFlags().IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	rootCmd.PersistentFlags().StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password")
	rootCmd.PersistentFlags().StringVar(&cfg.DBSchema, "db-schema", cfg.DBSchema, "PostgreSQL schema")

	// Redis flags (feature cache)
	rootCmd.PersistentFlags().BoolVar(&cfg.UseRedis, "redis", cfg.UseRedis, "Cache feature lookups in Redis")
	rootCmd.PersistentFlags().StringVar(&cfg.Redis.Addr, "redis-addr", cfg.Redis.Addr, "Redis address")
	rootCmd.PersistentFlags().StringVar(&cfg.Redis.Password, "redis-password", cfg.Redis.Password, "Redis password")
	rootCmd.PersistentFlags().IntVar(&cfg.Redis.DB, "redis-db", cfg.Redis.DB, "Redis database number")
	rootCmd.PersistentFlags().DurationVar(&cfg.Redis.TTL, "redis-ttl", cfg.Redis.TTL, "Lifetime of cached features")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
