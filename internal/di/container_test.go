package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct{ name string }

func TestResolve(t *testing.T) {
	c := NewContainer()
	c.Register(Plan, &fakeService{name: "plans"})
	c.Register(Stats, "not a service")

	svc, err := Resolve[*fakeService](c, Plan)
	require.NoError(t, err)
	assert.Equal(t, "plans", svc.name)

	_, err = Resolve[*fakeService](c, Stats)
	assert.ErrorContains(t, err, "has type string")

	_, err = Resolve[*fakeService](c, Layout)
	assert.ErrorContains(t, err, "not registered")
}

func TestNamesSorted(t *testing.T) {
	c := NewContainer()
	c.Register(WebSocket, 1)
	c.Register(Export, 2)
	c.Register(Export, 3)

	assert.Equal(t, []string{Export, WebSocket}, c.Names())
	assert.True(t, c.Has(Export))
	assert.Equal(t, 3, c.Get(Export))
	assert.Same(t, GetContainer(), GetContainer())
}
