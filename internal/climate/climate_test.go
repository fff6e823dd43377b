package climate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntensityBoundedAndDeterministic(t *testing.T) {
	a, b := New(11), New(11)
	for tick := range uint64(2000) {
		v := a.Intensity(tick)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		assert.Equal(t, v, b.Intensity(tick))
	}
}

func TestIntensityIsSmooth(t *testing.T) {
	c := New(5)
	c.Daily = 0
	for tick := range uint64(500) {
		assert.InDelta(t, c.Intensity(tick), c.Intensity(tick+1), 0.1, "tick %d", tick)
	}
}

func TestSeedsDiffer(t *testing.T) {
	a, b := New(1), New(2)
	same := 0
	for tick := range uint64(100) {
		if a.Intensity(tick*7) == b.Intensity(tick*7) {
			same++
		}
	}
	assert.Less(t, same, 100)
}

func TestFlatCurve(t *testing.T) {
	c := New(3)
	c.Amplitude, c.Daily = 0, 0
	assert.InDelta(t, 0.5, c.Intensity(42), 1e-9)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "dead calm", Describe(0.1))
	assert.Equal(t, "an uneasy quiet", Describe(0.5))
	assert.Equal(t, "the block is ready to blow", Describe(0.95))
}
