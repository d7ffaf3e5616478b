package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"primetime-intel/internal/ai"
	"primetime-intel/internal/cache"
	"primetime-intel/internal/common/config"
	"primetime-intel/internal/common/database"
	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/feed"
	"primetime-intel/internal/pipeline/mapping"
	"primetime-intel/internal/pipeline/programs"
	"primetime-intel/internal/store"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "input normalized jobs JSON file")
		outputPath = flag.String("output", "", "output mapping results JSON file")
		dictPath   = flag.String("dictionary", "", "programs dictionary JSON file (default from config)")
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

	dictionaryPath := cfg.Programs.DictionaryPath
	if *dictPath != "" {
		dictionaryPath = *dictPath
	}

	// Fail open: a missing dictionary degrades every classification to
	// "no programs matched" instead of aborting the batch.
	dict, err := programs.LoadFile(dictionaryPath)
	if err != nil {
		zapLog.Warn("programs dictionary unavailable, continuing with empty catalog",
			zap.String("path", dictionaryPath),
			zap.Error(err),
		)
	}
	zapLog.Info("programs dictionary loaded", zap.Int("programs", len(dict)))

	keyword := mapping.NewKeywordStrategy(cfg.Mapping, log)

	var semantic mapping.Strategy
	if client, err := ai.NewOpenAIClient(cfg.APIs.OpenAI, log); err != nil {
		zapLog.Warn("completion service unavailable, emitting fallback mappings", zap.Error(err))
	} else {
		semantic = mapping.NewSemanticStrategy(client, keyword, log)
	}

	var resultCache mapping.ResultCache
	if cfg.Database.Redis.Enabled {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Warn("redis unavailable, running without result cache", zap.Error(err))
		} else {
			defer rdb.Close()
			ttl := time.Duration(cfg.Database.Redis.CacheTTL) * time.Second
			resultCache = cache.New(rdb.Client, ttl, log)
		}
	}

	engine := mapping.NewEngine(cfg.Mapping, dict, semantic, resultCache, log)

	reader, err := feed.NewReader(log)
	if err != nil {
		zapLog.Fatal("feed reader init failed", zap.Error(err))
	}

	jobs, err := reader.ReadNormalizedJobs(*inputPath)
	if err != nil {
		zapLog.Fatal("input read failed", zap.Error(err))
	}
	zapLog.Info("processing jobs for program mapping", zap.Int("count", len(jobs)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := engine.MapJobs(ctx, jobs)
	if err != nil {
		zapLog.Warn("batch interrupted, writing completed results", zap.Error(err), zap.Int("completed", len(results)))
	}

	if err := feed.WriteJSON(*outputPath, results); err != nil {
		zapLog.Fatal("output write failed", zap.Error(err))
	}
	zapLog.Info("program mapping completed",
		zap.Int("results", len(results)),
		zap.String("output", *outputPath),
	)

	if cfg.Database.Postgres.Enabled {
		persistResults(cfg, results, log, zapLog)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func persistResults(cfg *config.Config, results []mapping.MappingResult, log logger.Logger, zapLog *zap.Logger) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.New(pg.DB, log).SaveMappingResults(ctx, results); err != nil {
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
