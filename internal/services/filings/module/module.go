// Package module wires up the filings service as a modkit.Module
package module

import (
	"ncsrpipe/internal/modkit"
	modreg "ncsrpipe/internal/modkit/module"
	"ncsrpipe/internal/modkit/repokit"

	fdomain "ncsrpipe/internal/services/filings/domain"
	frepo "ncsrpipe/internal/services/filings/repo"
	fservice "ncsrpipe/internal/services/filings/service"
)

// Ports exported by the filings module
type Ports struct {
	Runner fdomain.RunnerPort
}

// Module implements modkit/module.Module for filings
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs and wires the filings module
func New(deps modkit.Deps) *Module {
	binder := frepo.NewPG()
	svc := fservice.New(repokit.TxRunner(deps.PG), binder)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "filings" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Register convenience: allow others to resolve our ports via registry
func Register(deps modkit.Deps) {
	modreg.Register("filings", New(deps))
}
