// Command ncsrpipe-cleanup deletes filings (and their dead-letter entries)
// older than a retention window
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
	fRetentionDays := flag.Int("retention-days", 0, "delete filings older than this many days (required)")
	flag.Parse()

	if *fRetentionDays <= 0 {
		logger.Get().Error().Msg("--retention-days is required and must be > 0")
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
		Workers:    root.MayInt("WORKERS", 5),
		Thresholds: thresholdsFrom(root),
	}

	m := ormodule.New(deps, cfg)
	ports := m.Ports().(ormodule.Ports)

	ctx := logger.WithRequest(context.Background(), uuid.NewString(), "")
	deleted, err := ports.Runner.Cleanup(ctx, *fRetentionDays)
	l.Info().Int64("deleted", deleted).Int("retention_days", *fRetentionDays).Msg("ncsrpipe: cleanup summary")
	if err != nil {
		l.Error().Err(err).Msg("cleanup failed")
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

func thresholdsFrom(root config.Conf) tierdomain.Thresholds {
	return tierdomain.Thresholds{
		SmallMB:  root.MayFloat64("TIER_SMALL_MB", tierdomain.DefaultThresholds.SmallMB),
		MediumMB: root.MayFloat64("TIER_MEDIUM_MB", tierdomain.DefaultThresholds.MediumMB),
		LargeMB:  root.MayFloat64("TIER_LARGE_MB", tierdomain.DefaultThresholds.LargeMB),
	}
}
