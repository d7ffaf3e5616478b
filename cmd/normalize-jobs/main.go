package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"primetime-intel/internal/common/config"
	"primetime-intel/internal/common/database"
	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/feed"
	"primetime-intel/internal/pipeline/normalize"
	"primetime-intel/internal/store"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "input raw jobs JSON file")
		outputPath = flag.String("output", "", "output normalized jobs JSON file")
		sourceName = flag.String("source", "", "only normalize records from this source")
		configPath = flag.String("config", "", "configuration file (default: configs/config.yaml)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if *inputPath == "" || *outputPath == "" {
		zapLog.Fatal("both -input and -output are required")
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address, zapLog)
	}

	reader, err := feed.NewReader(log)
	if err != nil {
		zapLog.Fatal("feed reader init failed", zap.Error(err))
	}

	records, err := reader.ReadRawRecords(*inputPath)
	if err != nil {
		zapLog.Fatal("input read failed", zap.Error(err))
	}
	zapLog.Info("loaded raw records",
		zap.Int("count", len(records)),
		zap.String("input", *inputPath),
	)

	if *sourceName != "" {
		records = feed.FilterBySource(records, *sourceName)
		zapLog.Info("filtered by source",
			zap.String("source", *sourceName),
			zap.Int("count", len(records)),
		)
	}

	normalizer := normalize.NewNormalizer(log)
	jobs := normalizer.NormalizeBatch(records)
	zapLog.Info("normalized jobs",
		zap.Int("normalized", len(jobs)),
		zap.Int("dropped", len(records)-len(jobs)),
	)

	if err := feed.WriteJSON(*outputPath, jobs); err != nil {
		zapLog.Fatal("output write failed", zap.Error(err))
	}
	zapLog.Info("normalized batch written", zap.String("output", *outputPath))

	if cfg.Database.Postgres.Enabled {
		persistJobs(cfg, jobs, log, zapLog)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func persistJobs(cfg *config.Config, jobs []normalize.NormalizedJob, log logger.Logger, zapLog *zap.Logger) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.New(pg.DB, log).SaveNormalizedJobs(ctx, jobs); err != nil {
		zapLog.Fatal("persist failed", zap.Error(err))
	}
}

func serveMetrics(addr string, zapLog *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		zapLog.Warn("metrics listener stopped", zap.Error(err))
	}
}
