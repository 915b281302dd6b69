package scalar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const zeroEpsilon = 0.000001

func TestAdd(t *testing.T) {
	empty := Resources{}
	r1 := Resources{
		CPU: 1.0,
	}

	result := empty.Add(&empty)
	assert.InDelta(t, 0.0, result.CPU, zeroEpsilon)
	assert.InDelta(t, 0.0, result.MEMORY, zeroEpsilon)
	assert.InDelta(t, 0.0, result.DISK, zeroEpsilon)
	assert.InDelta(t, 0.0, result.GPU, zeroEpsilon)

	result = r1.Add(&Resources{})
	assert.InDelta(t, 1.0, result.CPU, zeroEpsilon)
	assert.InDelta(t, 0.0, result.MEMORY, zeroEpsilon)

	r2 := Resources{
		CPU:    4.0,
		MEMORY: 3.0,
		DISK:   2.0,
		GPU:    1.0,
	}
	result = r1.Add(&r2)
	assert.InDelta(t, 5.0, result.CPU, zeroEpsilon)
	assert.InDelta(t, 3.0, result.MEMORY, zeroEpsilon)
	assert.InDelta(t, 2.0, result.DISK, zeroEpsilon)
	assert.InDelta(t, 1.0, result.GPU, zeroEpsilon)
}

func TestSubtract(t *testing.T) {
	empty := Resources{}
	r1 := Resources{
		CPU:    1.0,
		MEMORY: 2.0,
		DISK:   3.0,
		GPU:    4.0,
	}

	res := r1.Subtract(&empty)
	assert.NotNil(t, res)
	assert.InDelta(t, 1.0, res.CPU, zeroEpsilon)
	assert.InDelta(t, 2.0, res.MEMORY, zeroEpsilon)
	assert.InDelta(t, 3.0, res.DISK, zeroEpsilon)
	assert.InDelta(t, 4.0, res.GPU, zeroEpsilon)

	r2 := Resources{
		CPU:    2.0,
		MEMORY: 5.0,
		DISK:   4.0,
		GPU:    7.0,
	}
	res = r2.Subtract(&r1)
	assert.NotNil(t, res)
	assert.InDelta(t, 1.0, res.CPU, zeroEpsilon)
	assert.InDelta(t, 3.0, res.MEMORY, zeroEpsilon)
	assert.InDelta(t, 1.0, res.DISK, zeroEpsilon)
	assert.InDelta(t, 3.0, res.GPU, zeroEpsilon)

	// Underflow clamps at zero instead of going negative.
	res = r1.Subtract(&r2)
	assert.InDelta(t, 0.0, res.CPU, zeroEpsilon)
	assert.InDelta(t, 0.0, res.MEMORY, zeroEpsilon)
	assert.InDelta(t, 0.0, res.DISK, zeroEpsilon)
	assert.InDelta(t, 0.0, res.GPU, zeroEpsilon)
}

func TestTrySubtract(t *testing.T) {
	r1 := Resources{
		CPU:    1.0,
		MEMORY: 2.0,
	}
	r2 := Resources{
		CPU:    2.0,
		MEMORY: 4.0,
	}

	assert.Nil(t, r1.TrySubtract(&r2))

	res := r2.TrySubtract(&r1)
	assert.NotNil(t, res)
	assert.InDelta(t, 1.0, res.CPU, zeroEpsilon)
	assert.InDelta(t, 2.0, res.MEMORY, zeroEpsilon)
}

func TestContains(t *testing.T) {
	r1 := Resources{
		CPU:    2.0,
		MEMORY: 1024.0,
	}
	r2 := Resources{
		CPU:    1.0,
		MEMORY: 512.0,
	}

	assert.True(t, r1.Contains(&r1))
	assert.True(t, r1.Contains(&r2))
	assert.False(t, r2.Contains(&r1))

	// Epsilon differences do not flip containment.
	r3 := Resources{
		CPU:    2.0 + ResourceEpsilon/2,
		MEMORY: 1024.0,
	}
	assert.True(t, r1.Contains(&r3))
}

func TestEmptyAndFields(t *testing.T) {
	empty := Resources{}
	assert.True(t, empty.Empty())
	assert.Empty(t, empty.NonEmptyFields())

	r := Resources{
		CPU:  1.0,
		DISK: 3.0,
	}
	assert.False(t, r.Empty())
	assert.Equal(t, []string{CPU, DISK}, r.NonEmptyFields())
}

func TestGetSet(t *testing.T) {
	r := Resources{}
	for i, kind := range Kinds {
		r.Set(kind, float64(i+1))
	}
	for i, kind := range Kinds {
		assert.InDelta(t, float64(i+1), r.Get(kind), zeroEpsilon)
	}
	assert.InDelta(t, 0.0, r.Get("unknown"), zeroEpsilon)
}

func TestFilter(t *testing.T) {
	r := Resources{
		CPU:    2.0,
		MEMORY: 1024.0,
		DISK:   10.0,
	}
	onlyCPU := r.Filter(func(kind string, value float64) bool {
		return kind == CPU
	})
	assert.InDelta(t, 2.0, onlyCPU.CPU, zeroEpsilon)
	assert.InDelta(t, 0.0, onlyCPU.MEMORY, zeroEpsilon)
	assert.InDelta(t, 0.0, onlyCPU.DISK, zeroEpsilon)
}

func TestMinCloneEqual(t *testing.T) {
	r1 := Resources{
		CPU:    1.0,
		MEMORY: 2048.0,
	}
	r2 := Resources{
		CPU:    2.0,
		MEMORY: 1024.0,
	}

	m := Min(&r1, &r2)
	assert.InDelta(t, 1.0, m.CPU, zeroEpsilon)
	assert.InDelta(t, 1024.0, m.MEMORY, zeroEpsilon)

	c := r1.Clone()
	assert.True(t, c.Equal(&r1))
	c.CPU = 5.0
	assert.False(t, c.Equal(&r1))
}
