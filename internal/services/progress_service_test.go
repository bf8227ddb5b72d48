package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesCurrentStateFirst(t *testing.T) {
	ps := NewProgressService()
	ps.Publish(ProgressUpdate{SessionID: "s1", Generation: 1, Status: ProgressRunning, Progress: 10})

	ch, unsubscribe := ps.Subscribe("s1")
	defer unsubscribe()

	first := <-ch
	assert.Equal(t, ProgressRunning, first.Status)
	assert.Equal(t, 10, first.Progress)
	assert.False(t, first.Timestamp.IsZero())
}

func TestStaleGenerationIsIgnored(t *testing.T) {
	ps := NewProgressService()
	ps.Publish(ProgressUpdate{SessionID: "s1", Generation: 2, Status: ProgressRunning})
	ps.Publish(ProgressUpdate{SessionID: "s1", Generation: 1, Status: ProgressCompleted})

	last, ok := ps.Last("s1")
	require.True(t, ok)
	assert.Equal(t, uint64(2), last.Generation)
	assert.Equal(t, ProgressRunning, last.Status)

	_, ok = ps.Last("unknown")
	assert.False(t, ok)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	ps := NewProgressService()
	ch, unsubscribe := ps.Subscribe("s1")
	<-ch
	assert.Equal(t, 1, ps.SubscriberCount("s1"))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, ps.SubscriberCount("s1"))

	_, open := <-ch
	assert.False(t, open)
}

func TestRemoveClosesSubscribers(t *testing.T) {
	ps := NewProgressService()
	ch, unsubscribe := ps.Subscribe("s1")
	<-ch

	ps.Remove("s1")
	_, open := <-ch
	assert.False(t, open)

	// Remove 之后取消订阅不会重复关闭
	unsubscribe()
	assert.Equal(t, 0, ps.SubscriberCount("s1"))
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	ps := NewProgressService()
	ch, unsubscribe := ps.Subscribe("s1")
	defer unsubscribe()

	for i := 0; i < subscriberBuffer*3; i++ {
		ps.Publish(ProgressUpdate{SessionID: "s1", Generation: 1, Progress: i})
	}
	assert.Len(t, ch, subscriberBuffer)
}
