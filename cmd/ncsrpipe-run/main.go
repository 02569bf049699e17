// Command ncsrpipe-run discovers and processes N-CSR/N-CSRS filings for a
// single date, a trailing range of dates, or (by default) yesterday
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

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
		fDate       = flag.String("date", "", "process a single UTC date YYYY-MM-DD")
		fBackfill   = flag.Int("backfill", 0, "process today, today-1, ..., today-(N-1)")
		fMaxFilings = flag.Int("max-filings", 0, "cap the number of filings attempted per date (0 = unlimited)")
		fFormTypes  = flag.String("form-types", "N-CSR,N-CSRS", "comma-separated form type whitelist")
		fWorkers    = flag.Int("workers", 0, "worker pool size (0 = config/default)")
	)
	flag.Parse()

	if *fDate != "" && *fBackfill > 0 {
		logger.Get().Error().Msg("--date and --backfill are mutually exclusive")
		return exitArgs
	}
	if *fBackfill < 0 {
		logger.Get().Error().Msg("--backfill must be >= 0")
		return exitArgs
	}

	var date time.Time
	if *fDate != "" {
		t, err := time.Parse("2006-01-02", *fDate)
		if err != nil {
			logger.Get().Error().Err(err).Str("date", *fDate).Msg("bad --date")
			return exitArgs
		}
		date = t
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

	formTypes := splitCSV(*fFormTypes)
	ctx := logger.WithRequest(context.Background(), uuid.NewString(), "")

	switch {
	case *fBackfill > 0:
		end := time.Now().UTC().Truncate(24 * time.Hour)
		start := end.AddDate(0, 0, -(*fBackfill - 1))
		summaries, err := ports.Runner.RunBackfill(ctx, start, end, formTypes, *fMaxFilings)
		for _, s := range summaries {
			logSummary(l, s)
		}
		if err != nil {
			l.Error().Err(err).Msg("backfill run failed")
			return exitInfra
		}

	case *fDate != "":
		sum, err := ports.Runner.RunDate(ctx, date, formTypes, *fMaxFilings)
		logSummary(l, sum)
		if err != nil {
			l.Error().Err(err).Msg("date run failed")
			return exitInfra
		}

	default:
		yesterday := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
		sum, err := ports.Runner.RunDate(ctx, yesterday, formTypes, *fMaxFilings)
		logSummary(l, sum)
		if err != nil {
			l.Error().Err(err).Msg("date run failed")
			return exitInfra
		}
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

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func logSummary(l *logger.Logger, s ordomain.Summary) {
	l.Info().
		Str("date", s.Date).
		Int("discovered", s.Discovered).
		Int("skipped_existing", s.SkippedExisting).
		Int("attempted", s.Attempted).
		Int("completed", s.Completed).
		Int("failed", s.Failed).
		Int("dead_lettered", s.DeadLettered).
		Msg("ncsrpipe: date run summary")
}
