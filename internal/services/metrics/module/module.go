// Package module wires up the metrics service as a modkit.Module
package module

import (
	"ncsrpipe/internal/modkit"
	modreg "ncsrpipe/internal/modkit/module"
	"ncsrpipe/internal/modkit/repokit"

	mdomain "ncsrpipe/internal/services/metrics/domain"
	mrepo "ncsrpipe/internal/services/metrics/repo"
	mservice "ncsrpipe/internal/services/metrics/service"
)

// Ports exported by the metrics module
type Ports struct {
	Runner mdomain.RunnerPort
}

// Module implements modkit/module.Module for metrics
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs and wires the metrics module
func New(deps modkit.Deps) *Module {
	binder := mrepo.NewPG()
	svc := mservice.New(repokit.TxRunner(deps.PG), binder)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "metrics" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Register convenience: allow others to resolve our ports via registry
func Register(deps modkit.Deps) {
	modreg.Register("metrics", New(deps))
}
