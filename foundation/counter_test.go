package foundation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeRoundsHalfUp(t *testing.T) {
	tests := []struct {
		name  string
		base  uint64
		level VerificationLevel
		want  uint64
	}{
		{"off-memread", BaseCost(MemRead), Off, 1},
		{"basic-memalloc", BaseCost(MemAlloc), Basic, 11},        // 10*110/100 = 11
		{"sampling-collcreate", BaseCost(CollCreate), Sampling, 15}, // 12*125/100=15
		{"standard-memgrow", BaseCost(MemGrow), Standard, 75},    // 50*150/100=75
		{"full-checksumcalc", BaseCost(ChecksumCalc), Full, 40},  // 20*200/100=40
		{"redundant-checksumfull", BaseCost(ChecksumFull), Redundant, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Charge(tt.base, tt.level))
		})
	}
}

func TestCounterRecordAccumulatesFuelMonotonically(t *testing.T) {
	c := NewCounter()
	var prev uint64
	ops := []OpType{MemAlloc, MemRead, CollPush, FunctionCall, Arithmetic}
	for _, op := range ops {
		c.Record(op, Standard)
		cur := c.Fuel()
		require.GreaterOrEqual(t, cur, prev, "fuel must never decrease")
		prev = cur
	}
	assert.Equal(t, uint64(1), c.OpCount(MemAlloc))
}

func TestCounterRecordExactDelta(t *testing.T) {
	c := NewCounter()
	before := c.Fuel()
	delta := c.Record(FunctionCall, Off)
	assert.Equal(t, uint64(5), delta)
	assert.Equal(t, before+delta, c.Fuel())
}

func TestCounterConcurrentRecord(t *testing.T) {
	c := NewCounter()
	var wg sync.WaitGroup
	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(Arithmetic, Off)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(n), c.OpCount(Arithmetic))
	assert.Equal(t, uint64(n), c.Fuel()) // Arithmetic base cost 1 * Off mult 100/100 = 1
}

func TestCounterSnapshot(t *testing.T) {
	c := NewCounter()
	c.Record(MemRead, Off)
	c.Record(MemRead, Off)
	c.Record(MemWrite, Off)
	counts, fuel := c.Snapshot()
	assert.Equal(t, uint64(2), counts["mem.read"])
	assert.Equal(t, uint64(1), counts["mem.write"])
	assert.Equal(t, uint64(2*1+1*2), fuel)
}
