package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatchesSentinelAndKind(t *testing.T) {
	errThing := New(ErrConflict, "thing: already done")

	assert.True(t, errors.Is(errThing, ErrConflict))
	assert.Equal(t, "thing: already done", errThing.Error())
	assert.Equal(t, "conflict", Kind(errThing))

	wrapped := fmt.Errorf("handler: %w", errThing)
	assert.True(t, errors.Is(wrapped, errThing))
	assert.Equal(t, "conflict", Kind(wrapped))
}

func TestKindDefaults(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "internal", Kind(errors.New("boom")))
	assert.Equal(t, "validation", Kind(New(ErrValidation, "bad")))
	assert.Equal(t, "not_found", Kind(Wrapf(New(ErrNotFound, "gone"), "load %s", "x")))
	assert.Equal(t, "forbidden", Kind(New(ErrForbidden, "no")))
}

func TestFromKindRoundTrip(t *testing.T) {
	err := FromKind("forbidden", "nope")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "nope", err.Error())
	assert.Equal(t, "internal", Kind(FromKind("internal", "boom")))
}
