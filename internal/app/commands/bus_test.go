package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct{ N int }

func (ping) Key() string { return "test.ping" }

type pong struct{}

func (pong) Key() string { return "test.pong" }

func TestRegistryDispatchTyped(t *testing.T) {
	reg := NewRegistry()
	Register[ping, int](reg, ping{}.Key(), HandlerFunc[ping, int](func(_ context.Context, cmd ping) (int, error) {
		return cmd.N * 2, nil
	}))

	got, err := Dispatch[ping, int](context.Background(), reg, ping{N: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, []string{"test.ping"}, reg.Keys())

	_, err = Dispatch[ping, string](context.Background(), reg, ping{N: 1})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = reg.Dispatch(context.Background(), pong{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestRegisterTwicePanics(t *testing.T) {
	reg := NewRegistry()
	h := HandlerFunc[ping, int](func(context.Context, ping) (int, error) { return 0, nil })
	Register[ping, int](reg, "k", h)
	assert.Panics(t, func() { Register[ping, int](reg, "k", h) })
}

func TestDispatchNilBus(t *testing.T) {
	_, err := Dispatch[ping, int](context.Background(), nil, ping{})
	assert.ErrorIs(t, err, ErrNilBus)
}
