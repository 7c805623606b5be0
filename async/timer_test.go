package async

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrtgo/wrtgo/foundation"
)

func TestFuelTimerExpiresWithConsumedFuel(t *testing.T) {
	counter := foundation.NewCounter()
	timer := NewFuelTimer(counter, 10)

	assert.False(t, timer.Expired())
	assert.Equal(t, uint64(10), timer.Remaining())

	// checksum.full costs 100 at Off, far past the 10-unit deadline.
	counter.Record(foundation.ChecksumFull, foundation.Off)
	assert.True(t, timer.Expired())
	assert.Equal(t, uint64(0), timer.Remaining())
}

func TestFuelTimerWaitSuspendsUntilExpiry(t *testing.T) {
	counter := foundation.NewCounter()
	timer := NewFuelTimer(counter, 5)
	e := NewExecutor(DefaultSchedulerConfig(), 0, counter, foundation.Off)

	task, err := e.Spawn("c", Normal, 10_000, true, nil, timer.Wait())
	require.NoError(t, err)

	ran, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, TaskReady, task.State, "unexpired timer wait must suspend, not complete")

	counter.Record(foundation.ChecksumCalc, foundation.Off)

	_, err = e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, task.State)
}
