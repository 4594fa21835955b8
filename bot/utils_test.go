package bot

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var errFlaky = errors.New("flaky")

func TestRobustExecute(t *testing.T) {
	var calls int
	err := RobustExecute(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errFlaky
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRobustExecuteGivesUp(t *testing.T) {
	var calls int
	err := RobustExecute(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
}

func TestRobustExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	err := RobustExecute(ctx, 3, time.Hour, func() error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
