package plugin

import (
	"fmt"
	"runtime"
)

// named is satisfied by all three plugin kinds; registry is built once
// against it so the callback/post/pre registries share one lookup shape
// instead of three hand-duplicated maps.
type named interface {
	Name() string
	SupportedOS() []string
}

// registry is a static, compile-time table of handlers keyed by name,
// grounded on loader.py:load_module's lookup-by-name contract but without
// its dynamic import step — every entry here is registered by an init()
// in the owning subpackage (pkg/plugin/callback, pkg/plugin/post,
// pkg/plugin/pre).
type registry[T named] struct {
	handlers map[string]T
}

func newRegistry[T named]() *registry[T] {
	return &registry[T]{handlers: make(map[string]T)}
}

// Register adds a handler under its own Name(). Registering the same name
// twice is a programming error and panics at init time, matching the
// teacher's fail-fast style for static registration tables.
func (r *registry[T]) Register(h T) {
	name := h.Name()
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("plugin: handler %q already registered", name))
	}
	r.handlers[name] = h
}

// Lookup resolves name to its handler, refusing any handler whose
// SupportedOS list excludes the running platform (loader.py's
// SystemNotSupported check, made static).
func (r *registry[T]) Lookup(name string) (T, error) {
	var zero T
	h, ok := r.handlers[name]
	if !ok {
		return zero, fmt.Errorf("unknown plugin %q", name)
	}
	if !supports(h.SupportedOS(), runtime.GOOS) {
		return zero, fmt.Errorf("plugin %q does not support %s", name, runtime.GOOS)
	}
	return h, nil
}

// Names lists every registered handler name, regardless of OS support.
func (r *registry[T]) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}

func supports(list []string, goos string) bool {
	if len(list) == 0 {
		return true
	}
	for _, s := range list {
		if s == goos {
			return true
		}
	}
	return false
}

// Callbacks, Posts, and Pres are the three process-wide registries.
// Concrete handlers register themselves from an init() in
// pkg/plugin/callback, pkg/plugin/post, and pkg/plugin/pre respectively.
var (
	Callbacks = newRegistry[Callback]()
	Posts     = newRegistry[Post]()
	Pres      = newRegistry[Pre]()
)

// LookupCallbacks resolves a list of configured callback names in order,
// stopping at the first unknown or unsupported name (spec section 6: the
// callback list in Case.arguments).
func LookupCallbacks(names []string) ([]Callback, error) {
	out := make([]Callback, 0, len(names))
	for _, name := range names {
		h, err := Callbacks.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// LookupPosts resolves a list of configured post-processing module names.
func LookupPosts(names []string) ([]Post, error) {
	out := make([]Post, 0, len(names))
	for _, name := range names {
		h, err := Posts.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// LookupPre resolves a single configured pre-processing module name.
func LookupPre(name string) (Pre, error) {
	return Pres.Lookup(name)
}
