package signalproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBypassBiquadIsIdentity(t *testing.T) {
	bq := bypassBiquad()
	assert.Equal(t, 1.0, bq.process(1.0))
	assert.Equal(t, -2.5, bq.process(-2.5))
}

func TestOutOfRangeCutoffProducesBypass(t *testing.T) {
	assert.True(t, newLowpass(0).bypass)
	assert.True(t, newLowpass(0.5).bypass)
	assert.True(t, newHighpass(-0.1).bypass)
}

func TestLowpassSettlesToConstantInput(t *testing.T) {
	bq := newLowpass(0.1)
	var y float64
	for i := 0; i < 500; i++ {
		y = bq.process(2.0)
	}
	assert.InDelta(t, 2.0, y, 0.01)
}

func TestResetClearsFilterState(t *testing.T) {
	bq := newLowpass(0.1)
	for i := 0; i < 50; i++ {
		bq.process(5.0)
	}
	bq.reset()
	first := bq.process(0.0)
	assert.InDelta(t, 0.0, first, 0.5, "after reset the first sample shouldn't carry prior filter history")
}
