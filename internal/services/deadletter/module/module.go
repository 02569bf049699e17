// Package module wires up the dead-letter-queue service as a modkit.Module
package module

import (
	"ncsrpipe/internal/modkit"
	modreg "ncsrpipe/internal/modkit/module"
	"ncsrpipe/internal/modkit/repokit"

	ddomain "ncsrpipe/internal/services/deadletter/domain"
	drepo "ncsrpipe/internal/services/deadletter/repo"
	dservice "ncsrpipe/internal/services/deadletter/service"
)

// Ports exported by the dead-letter-queue module
type Ports struct {
	Runner ddomain.RunnerPort
}

// Module implements modkit/module.Module for the dead-letter queue
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs and wires the dead-letter-queue module
func New(deps modkit.Deps) *Module {
	binder := drepo.NewPG()
	svc := dservice.New(repokit.TxRunner(deps.PG), binder)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "deadletter" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Register convenience: allow others to resolve our ports via registry
func Register(deps modkit.Deps) {
	modreg.Register("deadletter", New(deps))
}
