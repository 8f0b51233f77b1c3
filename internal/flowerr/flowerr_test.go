package flowerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	t.Run("kind only", func(t *testing.T) {
		err := New(ErrCycle, NoNode, NoPort, "")
		assert.Equal(t, "cycle detected", err.Error())
	})

	t.Run("node and port", func(t *testing.T) {
		err := InvalidPin(3, 2, "arity is %d", 1)
		assert.Equal(t, "invalid pin assignment (node 3, port 2): arity is 1", err.Error())
	})

	t.Run("wrapped cause", func(t *testing.T) {
		err := Wrap(ErrOperator, 7, errors.New("boom"))
		assert.Equal(t, "operator failed (node 7): boom", err.Error())
	})
}

func TestError_IsMatchesKindAndCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := fmt.Errorf("running: %w", Wrap(ErrOperator, 1, cause))

	assert.ErrorIs(t, err, ErrOperator)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidNode)
}

func TestNodeOf(t *testing.T) {
	node, ok := NodeOf(fmt.Errorf("outer: %w", New(ErrInvalidNode, 12, NoPort, "")))
	assert.True(t, ok)
	assert.Equal(t, 12, node)

	_, ok = NodeOf(errors.New("plain"))
	assert.False(t, ok)

	_, ok = NodeOf(New(ErrCycle, NoNode, NoPort, ""))
	assert.False(t, ok)
}
