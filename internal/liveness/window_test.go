package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingWindow_MeanUnderCapacity(t *testing.T) {
	w := NewRollingWindow[float64](7)
	pushes := []float64{-0.5, -1.5, 2.0}
	for _, v := range pushes {
		w.Push(v)
	}

	require.Equal(t, 3, w.Len())
	assert.InDelta(t, 0.0, w.Mean(99), 1e-12)
}

func TestRollingWindow_EvictsOldest(t *testing.T) {
	w := NewRollingWindow[float64](3)
	for _, v := range []float64{100, 1, 2, 3} {
		w.Push(v)
	}

	assert.Equal(t, []float64{1, 2, 3}, w.Values())
	assert.InDelta(t, 2.0, w.Mean(0), 1e-12)
}

func TestRollingWindow_EmptyReturnsDefault(t *testing.T) {
	w := NewRollingWindow[float64](5)
	assert.Equal(t, -4.2, w.Mean(-4.2))
}

func TestRollingWindow_MeanOfLastCapacityPushes(t *testing.T) {
	const capacity = 5
	w := NewRollingWindow[float64](capacity)
	var all []float64
	for i := 0; i < 23; i++ {
		v := float64(i*i%11) - 5
		all = append(all, v)
		w.Push(v)

		start := 0
		if len(all) > capacity {
			start = len(all) - capacity
		}
		var sum float64
		for _, s := range all[start:] {
			sum += s
		}
		want := sum / float64(len(all)-start)
		assert.InDelta(t, want, w.Mean(0), 1e-12, "after %d pushes", i+1)
	}
}

func TestRollingWindow_CapacityFloor(t *testing.T) {
	w := NewRollingWindow[int](0)
	w.Push(4)
	w.Push(8)
	assert.Equal(t, 1, w.Cap())
	assert.Equal(t, 8.0, w.Mean(0))
}

func TestRollingWindow_Deterministic(t *testing.T) {
	a := NewRollingWindow[float64](7)
	b := NewRollingWindow[float64](7)
	for _, v := range []float64{0.1, 0.2, 0.3, 0.7, -0.9, 1e-9, 3.3, 0.4} {
		a.Push(v)
		b.Push(v)
	}
	assert.Equal(t, a.Mean(0), b.Mean(0))
}
