package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// named is a middleware that only identifies itself.
type named string

func (n named) Run(ctx context.Context, c []string, next Next[[]string]) ([]string, error) {
	return next(ctx, append(c, string(n)))
}

func names(mws []Middleware[[]string]) []string {
	out := make([]string, 0, len(mws))
	for _, mw := range mws {
		out = append(out, string(mw.(named)))
	}
	return out
}

func TestRouteTable_OrderPreservation(t *testing.T) {
	t.Parallel()

	table := NewRouteTable[[]string]()
	table.Register(MethodGet, "/x", named("A"))
	table.Register(MethodGet, "/x", named("B"))
	table.Register(MethodGet, "/*", named("C"))
	table.Register(MethodGet, "/y", named("D"))
	table.Register(MethodGet, "/x", named("E"))

	assert.Equal(t, []string{"A", "B", "C", "E"}, names(table.Lookup(MethodGet, "/x")))
	assert.Equal(t, []string{"C", "D"}, names(table.Lookup(MethodGet, "/y")))
}

func TestRouteTable_MethodIsolation(t *testing.T) {
	t.Parallel()

	table := NewRouteTable[[]string]()
	table.Register(MethodGet, "/x", named("A"))

	assert.Equal(t, []string{"A"}, names(table.Lookup(MethodGet, "/x")))
	assert.Empty(t, table.Lookup(MethodPost, "/x"))
}

func TestRouteTable_RegisterAllBreadth(t *testing.T) {
	t.Parallel()

	table := NewRouteTable[[]string]()
	table.RegisterAll("/x", named("M"))

	for _, m := range Methods() {
		assert.Equal(t, []string{"M"}, names(table.Lookup(m, "/x")), "method %s", m)
	}
	assert.Empty(t, table.Routes(MethodUse), "USE marker must not hold entries")
	assert.Equal(t, len(Methods()), table.Len())
}

func TestRouteTable_RegisterUseMarker(t *testing.T) {
	t.Parallel()

	table := NewRouteTable[[]string]()
	table.Register(MethodUse, "/x", named("M"))

	for _, m := range Methods() {
		assert.Len(t, table.Lookup(m, "/x"), 1)
	}
	assert.Empty(t, table.Lookup(MethodUse, "/x"))
}

func TestRouteTable_NoDeduplication(t *testing.T) {
	t.Parallel()

	table := NewRouteTable[[]string]()
	mw := named("A")
	table.Register(MethodGet, "/x", mw)
	table.Register(MethodGet, "/x", mw)

	assert.Equal(t, []string{"A", "A"}, names(table.Lookup(MethodGet, "/x")))
}

func TestRouteTable_AbsentMethod(t *testing.T) {
	t.Parallel()

	table := NewRouteTable[[]string]()
	assert.Empty(t, table.Lookup(MethodDelete, "/x"))
	assert.Empty(t, table.Lookup(Method("BREW"), "/x"))
	assert.Empty(t, table.Routes(MethodDelete))
}

func TestRouteTable_RoutesIsACopy(t *testing.T) {
	t.Parallel()

	table := NewRouteTable[[]string]()
	table.Register(MethodGet, "/x", named("A"))

	routes := table.Routes(MethodGet)
	require.Len(t, routes, 1)
	routes[0].Pattern = "/changed"

	assert.Equal(t, "/x", table.Routes(MethodGet)[0].Pattern)
}

func TestRouteTable_ConcurrentRegisterAndLookup(t *testing.T) {
	t.Parallel()

	table := NewRouteTable[[]string]()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			table.Register(MethodGet, "/x", named(fmt.Sprintf("m%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			_ = table.Lookup(MethodGet, "/x")
		}()
	}
	wg.Wait()

	assert.Len(t, table.Lookup(MethodGet, "/x"), 20)
}
