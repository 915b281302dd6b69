package queue

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testEvent struct {
	name string
}

func TestEnqueueDequeue(t *testing.T) {
	q := NewQueue("test", reflect.TypeOf(testEvent{}), 10)
	assert.Equal(t, "test", q.GetName())
	assert.Equal(t, reflect.TypeOf(testEvent{}), q.GetItemType())

	err := q.Enqueue(&testEvent{name: "e1"})
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Length())

	item, err := q.Dequeue(time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, "e1", item.(*testEvent).name)
	assert.Equal(t, 0, q.Length())
}

func TestEnqueueWrongType(t *testing.T) {
	q := NewQueue("test", reflect.TypeOf(testEvent{}), 10)
	err := q.Enqueue("not-an-event")
	assert.Error(t, err)
}

func TestEnqueueFull(t *testing.T) {
	q := NewQueue("test", reflect.TypeOf(testEvent{}), 1)
	assert.NoError(t, q.Enqueue(&testEvent{name: "e1"}))
	assert.Error(t, q.Enqueue(&testEvent{name: "e2"}))
}

func TestDequeueTimeout(t *testing.T) {
	q := NewQueue("test", reflect.TypeOf(testEvent{}), 1)
	item, err := q.Dequeue(time.Millisecond)
	assert.Nil(t, item)
	assert.Error(t, err)
	assert.IsType(t, DequeueTimeOutError{}, err)
}
