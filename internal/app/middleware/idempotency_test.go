package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/middleware"
	"campusconnect/internal/domain/shared/errs"
	"campusconnect/internal/infra/storage/memory"
)

type noteResult struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type postNote struct {
	key    string
	actor  string
	text   string
	client string
}

func (c postNote) Key() string { return c.key }

func (c postNote) IdempotencyKey() string { return c.client }

func (c postNote) IdempotencyScope() string { return c.actor }

func (c postNote) ResultPrototype() any { return &noteResult{} }

// countingBus answers with the configured error or a note built from the
// command, and counts how often it is reached.
type countingBus struct {
	calls int
	err   error
}

func (b *countingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	note := cmd.(postNote)
	return &noteResult{Author: note.actor, Text: note.text}, nil
}

func newIdempotentBus(next *countingBus) commands.Bus {
	return middleware.ChainCommands(next, middleware.Idempotency(memory.NewIdempotencyStore(), nil))
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	ctx := context.Background()
	next := &countingBus{}
	bus := newIdempotentBus(next)

	cmd := postNote{key: "notes.post", actor: "ana", text: "hello", client: "k1"}
	first, err := bus.Dispatch(ctx, cmd)
	require.NoError(t, err)

	cmd.text = "changed"
	second, err := bus.Dispatch(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, "hello", second.(*noteResult).Text)
}

func TestIdempotencyKeysAreScopedPerCaller(t *testing.T) {
	ctx := context.Background()
	next := &countingBus{}
	bus := newIdempotentBus(next)

	_, err := bus.Dispatch(ctx, postNote{key: "notes.post", actor: "ana", text: "my phone is 555-0101", client: "k1"})
	require.NoError(t, err)
	res, err := bus.Dispatch(ctx, postNote{key: "notes.post", actor: "ben", text: "hi", client: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls, "another caller's key never short-circuits the handler")
	assert.Equal(t, &noteResult{Author: "ben", Text: "hi"}, res)
}

func TestIdempotencyReplaysErrorsWithTheirKind(t *testing.T) {
	ctx := context.Background()
	next := &countingBus{err: errs.New(errs.ErrForbidden, "not a participant")}
	bus := newIdempotentBus(next)

	cmd := postNote{key: "notes.post", actor: "ana", client: "k1"}
	_, err := bus.Dispatch(ctx, cmd)
	require.Error(t, err)

	next.err = nil
	_, err = bus.Dispatch(ctx, cmd)
	require.Error(t, err)
	assert.Equal(t, "forbidden", errs.Kind(err))
	assert.Contains(t, err.Error(), "not a participant")
	assert.Equal(t, 1, next.calls)
}

func TestIdempotencyInternalErrorsStayRetryable(t *testing.T) {
	ctx := context.Background()
	next := &countingBus{err: errors.New("mongo: connection reset")}
	bus := newIdempotentBus(next)

	cmd := postNote{key: "notes.post", actor: "ana", text: "retry me", client: "k1"}
	_, err := bus.Dispatch(ctx, cmd)
	require.Error(t, err)

	next.err = nil
	res, err := bus.Dispatch(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, "retry me", res.(*noteResult).Text)
	assert.Equal(t, 2, next.calls)
}

func TestIdempotencyRejectsKeyReusedForAnotherCommand(t *testing.T) {
	ctx := context.Background()
	next := &countingBus{}
	bus := newIdempotentBus(next)

	_, err := bus.Dispatch(ctx, postNote{key: "notes.post", actor: "ana", client: "k1"})
	require.NoError(t, err)
	_, err = bus.Dispatch(ctx, postNote{key: "notes.edit", actor: "ana", client: "k1"})
	assert.ErrorIs(t, err, middleware.ErrKeyReused)
	assert.Equal(t, 1, next.calls)
}

func TestIdempotencyIgnoresCommandsWithoutKey(t *testing.T) {
	ctx := context.Background()
	next := &countingBus{}
	bus := newIdempotentBus(next)

	cmd := postNote{key: "notes.post", actor: "ana"}
	_, err := bus.Dispatch(ctx, cmd)
	require.NoError(t, err)
	_, err = bus.Dispatch(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestScopedKeyDoesNotCollide(t *testing.T) {
	assert.NotEqual(t, middleware.ScopedKey("a|b", "c"), middleware.ScopedKey("a", "b|c"))
}
