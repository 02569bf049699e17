// Package module wires up the orchestrator as a modkit.Module, composing
// every other service and adapter into the end-to-end process-filing path
package module

import (
	"context"
	"time"

	"ncsrpipe/internal/modkit"
	modreg "ncsrpipe/internal/modkit/module"

	"ncsrpipe/internal/adapters/edgarindex"
	"ncsrpipe/internal/adapters/parse"
	"ncsrpipe/internal/adapters/secfetch"

	dmodule "ncsrpipe/internal/services/deadletter/module"
	"ncsrpipe/internal/services/extraction"
	fmodule "ncsrpipe/internal/services/filings/module"
	mmodule "ncsrpipe/internal/services/metrics/module"
	"ncsrpipe/internal/services/orchestrator/domain"
	"ncsrpipe/internal/services/orchestrator/service"
	tierdomain "ncsrpipe/internal/services/tier/domain"
	tierservice "ncsrpipe/internal/services/tier/service"
)

// Ports exported by the orchestrator module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements modkit/module.Module for the orchestrator
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// Config carries the operator-provided settings the orchestrator needs
// beyond what modkit.Deps already supplies
type Config struct {
	UserAgent  string
	Workers    int
	Thresholds tierdomain.Thresholds
}

// discoverAdapter adapts edgarindex.Source's own Descriptor type to the
// orchestrator's, so the orchestrator domain package stays free of an
// adapter-package import (same "mirrors by value" discipline as the other
// services use for their cross-package enums)
type discoverAdapter struct{ src *edgarindex.Source }

func (a discoverAdapter) FilingsFor(ctx context.Context, date time.Time, formTypes []string) ([]domain.Descriptor, error) {
	got, err := a.src.FilingsFor(ctx, date, formTypes)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Descriptor, len(got))
	for i, d := range got {
		out[i] = domain.Descriptor{
			AccessionNumber: d.AccessionNumber,
			CIK:             d.CIK,
			CompanyName:     d.CompanyName,
			FormType:        d.FormType,
			FilingDate:      d.FilingDate,
			SourceURL:       d.SourceURL,
		}
	}
	return out, nil
}

// New constructs and wires the orchestrator module, including the filings,
// dead-letter, and metrics modules it composes
func New(deps modkit.Deps, cfg Config) *Module {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	th := cfg.Thresholds
	if th == (tierdomain.Thresholds{}) {
		th = tierdomain.DefaultThresholds
	}

	fm := fmodule.New(deps)
	dm := dmodule.New(deps)
	mm := mmodule.New(deps)

	fetcher := secfetch.NewClient(secfetch.Options{UserAgent: cfg.UserAgent})
	source := edgarindex.NewSource(fetcher)
	pipeline := parse.New()
	tierRouter := tierservice.New(th)

	svc := service.New(service.Params{
		Discover:   discoverAdapter{src: source},
		Sizer:      fetcher,
		Fetch:      fetcher,
		Parse:      pipeline,
		TierRouter: tierRouter,
		Extract:    domain.ExtractFunc(extraction.Apply),

		Filings:    fm.Ports().(fmodule.Ports).Runner,
		DeadLetter: dm.Ports().(dmodule.Ports).Runner,
		Metrics:    mm.Ports().(mmodule.Ports).Runner,

		Cfg: service.Config{Workers: cfg.Workers},
	})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "orchestrator" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Register convenience: allow others to resolve our ports via registry
func Register(deps modkit.Deps, cfg Config) {
	modreg.Register("orchestrator", New(deps, cfg))
}
