package relay

import "sync"

// Route pairs a path pattern with the middleware registered for it.
type Route[C any] struct {
	Pattern    string
	Middleware Middleware[C]
}

// RouteTable maps each method to its middleware in registration order.
// Entries are only ever appended. It is safe for concurrent use.
type RouteTable[C any] struct {
	mu      sync.RWMutex
	stacks  map[Method][]Route[C]
	isMatch func(pattern, path string) bool
}

// NewRouteTable returns an empty table that matches paths with IsMatch.
func NewRouteTable[C any]() *RouteTable[C] {
	return &RouteTable[C]{
		stacks:  make(map[Method][]Route[C]),
		isMatch: IsMatch,
	}
}

// Register appends mw under method. Identical registrations are kept and
// run once each. Registering under MethodUse is the same as RegisterAll.
func (t *RouteTable[C]) Register(method Method, pattern string, mw Middleware[C]) {
	if method == MethodUse {
		t.RegisterAll(pattern, mw)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stacks[method] = append(t.stacks[method], Route[C]{Pattern: pattern, Middleware: mw})
}

// RegisterAll registers mw under every concrete method.
func (t *RouteTable[C]) RegisterAll(pattern string, mw Middleware[C]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range concreteMethods {
		t.stacks[m] = append(t.stacks[m], Route[C]{Pattern: pattern, Middleware: mw})
	}
}

// Lookup returns the middleware registered under method whose pattern
// matches path, in registration order. An unknown method yields nil.
func (t *RouteTable[C]) Lookup(method Method, path string) []Middleware[C] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var matched []Middleware[C]
	for _, r := range t.stacks[method] {
		if t.isMatch(r.Pattern, path) {
			matched = append(matched, r.Middleware)
		}
	}
	return matched
}

// Routes returns a copy of the entries registered under method.
func (t *RouteTable[C]) Routes(method Method) []Route[C] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stack := t.stacks[method]
	out := make([]Route[C], len(stack))
	copy(out, stack)
	return out
}

// Len returns the number of entries across all methods.
func (t *RouteTable[C]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, stack := range t.stacks {
		n += len(stack)
	}
	return n
}
