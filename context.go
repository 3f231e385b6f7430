package fiber

import (
	"os"

	"github.com/charmbracelet/log"
)

// Context scopes every registry shared by the reconciler, scheduler,
// event manager and root registry. Independent contexts never observe
// each other, so tests and multiple graphs run in isolation.
type Context struct {
	Types     *TypeRegistry
	Instances *Registry
	Logger    *log.Logger

	roots    map[RootID]*Root
	nextRoot RootID
	arrays   map[arrayKey]*arraySlot

	debug   bool
	running bool

	// Lifecycle hooks registered by the subsystems built on this context.
	onRemove      []func(inst *Instance)
	onRootDestroy []func(root *Root)
	onFrame       []func(root *Root)
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for recovered errors and debug output.
func WithLogger(l *log.Logger) Option {
	return func(c *Context) { c.Logger = l }
}

// WithTypes shares an existing type registry.
func WithTypes(t *TypeRegistry) Option {
	return func(c *Context) { c.Types = t }
}

// WithDebug enables debug checks (tree depth, child count, frame timing).
func WithDebug(enabled bool) Option {
	return func(c *Context) { c.debug = enabled }
}

// NewLogger returns the default fiber logger writing to stderr.
func NewLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "fiber",
		Level:  log.InfoLevel,
	})
}

// NewContext creates an empty context.
func NewContext(opts ...Option) *Context {
	c := &Context{
		roots:  make(map[RootID]*Root),
		arrays: make(map[arrayKey]*arraySlot),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Types == nil {
		c.Types = NewTypeRegistry()
	}
	if c.Instances == nil {
		c.Instances = NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = NewLogger()
	}
	if c.debug {
		c.Logger.SetLevel(log.DebugLevel)
	}
	return c
}

// SetDebugMode toggles debug checks at runtime.
func (c *Context) SetDebugMode(enabled bool) {
	c.debug = enabled
	if enabled {
		c.Logger.SetLevel(log.DebugLevel)
	}
}

// Debug reports whether debug checks are enabled.
func (c *Context) Debug() bool { return c.debug }

// Running reports whether a scheduler frame is currently executing.
func (c *Context) Running() bool { return c.running }

// Root returns the root store for id.
func (c *Context) Root(id RootID) (*Root, bool) {
	r, ok := c.roots[id]
	return r, ok
}

// Roots returns every live root in creation order.
func (c *Context) Roots() []*Root {
	out := make([]*Root, 0, len(c.roots))
	for id := RootID(1); id <= c.nextRoot; id++ {
		if r, ok := c.roots[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Invalidate requests a frame for the root owning id's graph.
func (c *Context) Invalidate(id RootID) {
	if r, ok := c.roots[id]; ok {
		r.Invalidate(1)
	}
}

// OnInstanceRemoved registers a hook run for every removed instance, after
// it has been unwired and before it is deleted from the registry.
func (c *Context) OnInstanceRemoved(fn func(inst *Instance)) {
	c.onRemove = append(c.onRemove, fn)
}

// OnRootDestroyed registers a hook run when a root is destroyed, before its
// instances are removed.
func (c *Context) OnRootDestroyed(fn func(root *Root)) {
	c.onRootDestroy = append(c.onRootDestroy, fn)
}

// OnFrame registers a hook run once per rendered frame of a root, after
// deferred commits flush and before the first stage runs.
func (c *Context) OnFrame(fn func(root *Root)) {
	c.onFrame = append(c.onFrame, fn)
}
