package scripting

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voss/swarmtool/internal/observability"
	"github.com/voss/swarmtool/pkg/toolstore"
)

// Registry owns the single publication point for the current namespace.
// Rebuilds construct a complete replacement and swap it atomically; readers
// grab the pointer once and keep their snapshot for the whole call, so they
// observe either the pre-rebuild or the post-rebuild namespace in its
// entirety, never a mix.
//
// The registry itself does not serialize writers; the runtime facade holds
// one write lock across every store mutation and the rebuild it triggers.
type Registry struct {
	current  atomic.Pointer[Namespace]
	bindings Bindings
}

// NewRegistry creates a registry with an empty published namespace.
func NewRegistry(bindings Bindings) (*Registry, error) {
	r := &Registry{bindings: bindings}
	empty, err := BuildNamespace(nil, bindings)
	if err != nil {
		return nil, fmt.Errorf("failed to build empty namespace: %w", err)
	}
	r.current.Store(empty)
	return r, nil
}

// Rebuild recompiles the full tool set and publishes the result. On failure
// the previously published namespace stays current.
func (r *Registry) Rebuild(tools []toolstore.Tool) error {
	start := time.Now()
	ns, err := BuildNamespace(tools, r.bindings)
	if err != nil {
		observability.RecordNamespaceRebuild(time.Since(start), false)
		return err
	}
	r.current.Store(ns)
	observability.RecordNamespaceRebuild(time.Since(start), true)

	log.Debug().Int("tools", len(tools)).Dur("took", time.Since(start)).Msg("Namespace rebuilt")
	return nil
}

// Current returns the last published namespace snapshot.
func (r *Registry) Current() *Namespace {
	return r.current.Load()
}

// Execute runs a tool against the current snapshot.
func (r *Registry) Execute(name string, args ...string) (string, error) {
	return r.Current().Execute(name, args...)
}
