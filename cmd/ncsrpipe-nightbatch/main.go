// Command ncsrpipe-nightbatch drains eligible dead-letter entries and
// reprocesses each at its suggested tier
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/uuid"

	"ncsrpipe/internal/modkit"
	"ncsrpipe/internal/modkit/repokit"
	"ncsrpipe/internal/platform/config"
	"ncsrpipe/internal/platform/logger"
	"ncsrpipe/internal/platform/store"

	ordomain "ncsrpipe/internal/services/orchestrator/domain"
	ormodule "ncsrpipe/internal/services/orchestrator/module"
	tierdomain "ncsrpipe/internal/services/tier/domain"
)

const (
	exitSuccess = 0
	exitArgs    = 1
	exitInfra   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		fSize    = flag.Int("size", 25, "number of retry candidates to drain")
		fWorkers = flag.Int("workers", 0, "worker pool size (0 = config/default)")
	)
	flag.Parse()

	if *fSize <= 0 {
		logger.Get().Error().Msg("--size must be > 0")
		return exitArgs
	}

	root := config.New()
	l := logger.Get()

	st, err := openStore(root, *l)
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return exitInfra
	}
	defer func() {
		if cerr := st.Close(context.Background()); cerr != nil {
			l.Error().Err(cerr).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(context.Background(), st)

	deps := modkit.Deps{Cfg: root, PG: st.PG, Log: *l}
	cfg := ormodule.Config{
		UserAgent:  root.MustString("SEC_USER_AGENT"),
		Workers:    workersFrom(root, *fWorkers),
		Thresholds: thresholdsFrom(root),
	}

	m := ormodule.New(deps, cfg)
	ports := m.Ports().(ormodule.Ports)

	maxSizeMB := root.MayFloat64("NIGHTBATCH_MAX_SIZE_MB", tierdomain.DefaultThresholds.LargeMB)

	ctx := logger.WithRequest(context.Background(), uuid.NewString(), "")
	sum, err := ports.Runner.RunNightBatch(ctx, *fSize, maxSizeMB)
	logNightBatch(l, sum)
	if err != nil {
		l.Error().Err(err).Msg("night-batch run failed")
		return exitInfra
	}

	return exitSuccess
}

func openStore(root config.Conf, l logger.Logger) (*store.Store, error) {
	pgCfg := root.Prefix("PG_")
	return store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         root.MustString("DATABASE_URL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(l))
}

func workersFrom(root config.Conf, flagVal int) int {
	if flagVal > 0 {
		return flagVal
	}
	return root.MayInt("WORKERS", 5)
}

func thresholdsFrom(root config.Conf) tierdomain.Thresholds {
	return tierdomain.Thresholds{
		SmallMB:  root.MayFloat64("TIER_SMALL_MB", tierdomain.DefaultThresholds.SmallMB),
		MediumMB: root.MayFloat64("TIER_MEDIUM_MB", tierdomain.DefaultThresholds.MediumMB),
		LargeMB:  root.MayFloat64("TIER_LARGE_MB", tierdomain.DefaultThresholds.LargeMB),
	}
}

func logNightBatch(l *logger.Logger, s ordomain.NightBatchSummary) {
	l.Info().
		Int("served", s.Served).
		Int("completed", s.Completed).
		Int("failed", s.Failed).
		Int("still_eligible", s.StillEligible).
		Msg("ncsrpipe: night-batch summary")
}
