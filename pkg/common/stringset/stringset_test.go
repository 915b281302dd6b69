package stringset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testHost = "slave-host-1"
)

func TestStringSet_New(t *testing.T) {
	testSet := New()
	assert.NotNil(t, testSet)

	seeded := New("a", "b")
	assert.True(t, seeded.Contains("a"))
	assert.True(t, seeded.Contains("b"))
	assert.False(t, seeded.Contains("c"))
}

func TestStringSet_Add(t *testing.T) {
	testSet := &stringSet{
		m: make(map[string]bool),
	}
	testSet.Add(testHost)
	assert.Equal(t, true, testSet.m[testHost])
}

func TestStringSet_Contains(t *testing.T) {
	testSet := &stringSet{
		m: make(map[string]bool),
	}
	assert.Equal(t, false, testSet.Contains(testHost))

	testSet.m[testHost] = true
	assert.Equal(t, true, testSet.Contains(testHost))
}

func TestStringSet_Remove(t *testing.T) {
	testSet := &stringSet{
		m: make(map[string]bool),
	}
	testSet.m[testHost] = true
	assert.Equal(t, true, testSet.m[testHost])

	testSet.Remove(testHost)
	assert.Equal(t, false, testSet.m[testHost])
}

func TestStringSet_ClearAndToSlice(t *testing.T) {
	testSet := New("a", "b", "c")
	assert.Len(t, testSet.ToSlice(), 3)

	testSet.Clear()
	assert.Empty(t, testSet.ToSlice())
}
