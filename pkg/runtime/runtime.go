// Package runtime is the Tool Runtime facade: it owns the tool store, the
// namespace registry, the approval queue, and the native capability set, and
// serializes every mutation of that shared state behind one write lock.
//
// Reads (Execute, InspectTool, ListTools, Pending) run against the last
// published consistent snapshot and may proceed concurrently; writes
// (Create, RemoveTool, Approve, external store changes) each rebuild the
// namespace wholesale from the store and publish it atomically.
package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voss/swarmtool/internal/observability"
	"github.com/voss/swarmtool/pkg/approval"
	"github.com/voss/swarmtool/pkg/capability"
	"github.com/voss/swarmtool/pkg/scrape"
	"github.com/voss/swarmtool/pkg/scripting"
	"github.com/voss/swarmtool/pkg/toolstore"
)

// Broadcaster publishes runtime lifecycle events to observers. The gateway's
// event broadcaster satisfies this; headless runtimes leave it nil.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// Config holds runtime configuration.
type Config struct {
	ToolsDir           string
	ConfigPath         string // copied by clone_agent when present
	ScrapeTimeout      time.Duration
	ScrapeWordLimit    int
	PeerTimeout        time.Duration
	WatchStore         bool
	StabilityThreshold time.Duration
}

// Runtime composes the store, registry, queue, and capabilities.
type Runtime struct {
	mu       sync.Mutex // guards store+namespace+queue writes as one domain
	store    *toolstore.Store
	registry *scripting.Registry
	queue    *approval.Queue
	caps     *capability.Set
	watcher  *toolstore.Watcher
	origins  map[string]toolstore.Origin

	eventsMu sync.RWMutex
	events   Broadcaster
}

// New builds a runtime rooted at cfg.ToolsDir and publishes the initial
// namespace from whatever the store already contains.
func New(cfg Config) (*Runtime, error) {
	store, err := toolstore.New(cfg.ToolsDir)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		store:   store,
		queue:   approval.NewQueue(),
		origins: make(map[string]toolstore.Origin),
	}

	caps, err := capability.NewSet(capability.Config{
		Tools:       rt,
		Scraper:     scrape.New(scrape.Config{Timeout: cfg.ScrapeTimeout, WordLimit: cfg.ScrapeWordLimit}),
		StoreDir:    store.Dir(),
		ConfigPath:  cfg.ConfigPath,
		PeerTimeout: cfg.PeerTimeout,
	})
	if err != nil {
		return nil, err
	}
	rt.caps = caps

	registry, err := scripting.NewRegistry(caps.Bindings())
	if err != nil {
		return nil, err
	}
	rt.registry = registry

	rt.mu.Lock()
	err = rt.rebuildLocked()
	rt.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to build initial namespace: %w", err)
	}

	if cfg.WatchStore {
		watcher, err := toolstore.NewWatcher(store, cfg.StabilityThreshold, rt.handleStoreChange)
		if err != nil {
			return nil, err
		}
		if err := watcher.Start(); err != nil {
			return nil, err
		}
		rt.watcher = watcher
	}

	return rt, nil
}

// Close stops background work. The published namespace stays usable.
func (rt *Runtime) Close() error {
	if rt.watcher != nil {
		return rt.watcher.Stop()
	}
	return nil
}

// Capabilities returns the native capability set for direct caller use.
func (rt *Runtime) Capabilities() *capability.Set {
	return rt.caps
}

// SetBroadcaster wires an event broadcaster. Safe to call while the store
// watcher is already delivering change events.
func (rt *Runtime) SetBroadcaster(b Broadcaster) {
	rt.eventsMu.Lock()
	rt.events = b
	rt.eventsMu.Unlock()
}

func (rt *Runtime) broadcast(event string, data interface{}) {
	rt.eventsMu.RLock()
	b := rt.events
	rt.eventsMu.RUnlock()
	if b != nil {
		b.Broadcast(event, data)
	}
}

// rebuildLocked reloads the store and publishes a fresh namespace. Callers
// hold rt.mu. On error the previously published namespace stays current.
func (rt *Runtime) rebuildLocked() error {
	tools, err := rt.store.LoadAll()
	if err != nil {
		return err
	}
	for i := range tools {
		if origin, ok := rt.origins[tools[i].Name]; ok {
			tools[i].Origin = origin
		}
	}
	if err := rt.registry.Rebuild(tools); err != nil {
		return err
	}
	observability.SetNamespaceTools(len(tools))
	return nil
}

func (rt *Runtime) handleStoreChange(name string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	log.Info().Str("tool", name).Msg("Tool store changed on disk, rebuilding namespace")
	if err := rt.rebuildLocked(); err != nil {
		return err
	}
	rt.broadcast("namespace.rebuilt", map[string]interface{}{"trigger": "store_change", "tool": name})
	return nil
}

// Create compiles, persists, and publishes a tool. An existing tool with the
// same name is overwritten and its prior source is unrecoverable. A compile
// failure leaves store and namespace untouched.
func (rt *Runtime) Create(name, source string) error {
	if err := toolstore.ValidateName(name); err != nil {
		return err
	}
	if err := scripting.Compile(name, source); err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := rt.store.Save(name, source); err != nil {
		return err
	}
	rt.origins[name] = toolstore.OriginLocal
	if err := rt.rebuildLocked(); err != nil {
		return err
	}

	log.Info().Str("tool", name).Msg("Tool created")
	rt.broadcast("tool.created", map[string]interface{}{"name": name})
	return nil
}

// Execute runs a tool with zero or one string argument against the current
// namespace snapshot. The call is synchronous and blocks to completion.
func (rt *Runtime) Execute(name string, args ...string) (string, error) {
	start := time.Now()
	result, err := rt.registry.Execute(name, args...)
	observability.RecordToolExecution(name, time.Since(start), err == nil)
	if err != nil {
		log.Debug().Err(err).Str("tool", name).Msg("Tool execution failed")
		return "", err
	}
	return result, nil
}

// ListTools returns the names in the current namespace, lexicographic.
func (rt *Runtime) ListTools() ([]string, error) {
	return rt.registry.Current().Names(), nil
}

// InspectTool returns a tool's source text byte-for-byte from the store.
func (rt *Runtime) InspectTool(name string) (string, error) {
	return rt.store.Read(name)
}

// RemoveTool deletes a tool from the store and publishes a namespace without
// it. There is no version history; a removed source is unrecoverable.
func (rt *Runtime) RemoveTool(name string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := rt.store.Delete(name); err != nil {
		return err
	}
	delete(rt.origins, name)
	if err := rt.rebuildLocked(); err != nil {
		return err
	}

	log.Info().Str("tool", name).Msg("Tool removed")
	rt.broadcast("tool.removed", map[string]interface{}{"name": name})
	return nil
}
