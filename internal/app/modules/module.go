// Package modules contains the dependency modules of the composition root.
//
// Each module owns one slice of the service (governance, workforce) and
// contributes its services and River workers to the shared registries.
package modules

import (
	"context"

	"github.com/riverqueue/river"

	"factorymanager.io/manager/internal/api/handlers"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging.
	Name() string

	// ContributeServerDeps injects module-owned dependencies into the HTTP server deps.
	ContributeServerDeps(*handlers.ServerDeps)

	// RegisterWorkers registers module workers into a shared River worker registry.
	RegisterWorkers(*river.Workers) error

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}

// RiverAware modules receive the River client once it exists. Workers must
// be registered before the client is built, so anything that enqueues jobs
// is attached afterwards.
type RiverAware interface {
	AttachRiver(inserter RiverInserter)
}
