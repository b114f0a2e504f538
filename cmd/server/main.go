package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	httpadapter "soulforge/internal/adapter/http"
	metricsinmem "soulforge/internal/adapter/metrics/inmemory"
	gormrepo "soulforge/internal/adapter/repo/gorm"
	memoryrepo "soulforge/internal/adapter/repo/memory"
	"soulforge/internal/adapter/tuning/yamlfile"
	"soulforge/internal/app/ports"
	"soulforge/internal/app/ratetrack"
	"soulforge/internal/app/resolve"
	"soulforge/internal/app/verify"
	"soulforge/internal/domain/integrity"
	"soulforge/internal/domain/outcome"
	"soulforge/migrations"

	"github.com/cloudwego/hertz/pkg/app/server"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.slogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	tx     ports.TxManager
	audits ports.OutcomeAuditRepository
	rates  ports.RateHistoryStore
	kind   string
}

func run(cfg serverConfig, logger *slog.Logger) error {
	tuningCfg, err := yamlfile.Load(cfg.TuningFile)
	if err != nil {
		return err
	}
	keyring, err := integrity.NewKeyring([]byte(cfg.HMACSecret))
	if err != nil {
		return err
	}
	st, err := buildStores(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	window := cfg.RateWindow
	if window == 0 {
		window = tuningCfg.AntiCheat.RateWindow
	}
	kpiRecorder := metricsinmem.NewRecorder()
	resolveUC := resolve.UseCase{
		TxManager: st.tx,
		Audits:    st.audits,
		Rates:     ratetrack.Tracker{Store: st.rates, Window: window},
		Engine:    outcome.NewEngine(keyring),
		Config:    &tuningCfg,
		Timer: integrity.TimerPolicy{
			Tolerance: tuningCfg.AntiCheat.TimerTolerance,
			LateAfter: tuningCfg.AntiCheat.LateCompletion,
			Logger:    logger,
		},
		Metrics: kpiRecorder,
		Logger:  logger,
		Now:     time.Now,
		Explain: cfg.DebugExplain,
	}
	h := httpadapter.Handler{
		ResolveUC: resolveUC,
		VerifyUC:  verify.UseCase{TxManager: st.tx, Audits: st.audits, Keyring: keyring, Metrics: kpiRecorder},
		KPI:       kpiRecorder,
	}

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	go pruneLoop(pruneCtx, resolveUC, cfg.PruneEvery, logger)

	s := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	s.Use(httpadapter.CORSMiddleware(cfg.CORSOrigin))
	s.OnShutdown = append(s.OnShutdown, func(context.Context) { stopPrune() })
	h.RegisterRoutes(s)

	logger.Info("soulforge server listening",
		"addr", cfg.HTTPAddr,
		"store", st.kind,
		"config_version", tuningCfg.Version,
		"rate_window", window.String(),
	)
	s.Spin()
	return nil
}

// buildStores uses postgres when a DSN is configured and the in-memory store
// otherwise.
func buildStores(ctx context.Context, cfg serverConfig, logger *slog.Logger) (stores, error) {
	if cfg.DBDSN == "" {
		store := memoryrepo.NewStore()
		logger.Warn("SOULFORGE_DB_DSN not set; audit records are kept in memory only")
		return stores{
			tx:     memoryrepo.NewTxManager(store),
			audits: memoryrepo.NewOutcomeAuditRepo(store),
			rates:  memoryrepo.NewRateHistoryStore(store),
			kind:   "memory",
		}, nil
	}

	db, err := gormrepo.OpenPostgres(cfg.DBDSN)
	if err != nil {
		return stores{}, err
	}
	var applied []string
	if cfg.MigrationsDir != "" {
		applied, err = gormrepo.ApplyMigrationsDir(ctx, db, cfg.MigrationsDir, logger)
	} else {
		applied, err = gormrepo.ApplyMigrations(ctx, db, migrations.FS, logger)
	}
	if err != nil {
		return stores{}, err
	}
	logger.Info("migrations applied", "count", len(applied))
	return stores{
		tx:     gormrepo.NewTxManager(db),
		audits: gormrepo.NewOutcomeAuditRepo(db),
		rates:  gormrepo.NewRateHistoryStore(db),
		kind:   "postgres",
	}, nil
}

func pruneLoop(ctx context.Context, uc resolve.UseCase, every time.Duration, logger *slog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := uc.PruneRateHistory(ctx)
			if err != nil {
				logger.Warn("prune rate history", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("pruned rate history", "removed", n)
			}
		}
	}
}
