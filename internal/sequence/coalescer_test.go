package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuePoster(queue *[]func()) func(func()) bool {
	return func(fn func()) bool {
		*queue = append(*queue, fn)
		return true
	}
}

func TestCoalescerMergesBurstIntoSingleTask(t *testing.T) {
	queue := make([]func(), 0, 8)
	c := NewCoalescer(queuePoster(&queue))

	value := 0
	for i := 1; i <= 5; i++ {
		scheduled := c.Post("remote_ntp.icons", func() { value = i })
		assert.Equal(t, i == 1, scheduled)
	}

	require.Len(t, queue, 1)
	assert.True(t, c.Pending("remote_ntp.icons"))
	queue[0]()

	assert.Equal(t, 5, value, "latest callback should run")
	assert.False(t, c.Pending("remote_ntp.icons"))
}

func TestCoalescerKeysAreIndependent(t *testing.T) {
	queue := make([]func(), 0, 8)
	c := NewCoalescer(queuePoster(&queue))

	c.Post("a", func() {})
	c.Post("b", func() {})
	c.Post("a", func() {})

	assert.Len(t, queue, 2)
}

func TestCoalescerDropsWorkAfterDestroy(t *testing.T) {
	queue := make([]func(), 0, 4)
	c := NewCoalescer(queuePoster(&queue))

	ran := false
	c.Post("flush", func() { ran = true })
	c.Destroy()

	require.Len(t, queue, 1)
	queue[0]()
	assert.False(t, ran, "queued work should be dropped after destroy")

	assert.False(t, c.Post("flush", func() { ran = true }))
	assert.Len(t, queue, 1, "no new callback after destroy")
}

func TestCoalescerClearsPendingWhenPostFails(t *testing.T) {
	c := NewCoalescer(func(func()) bool { return false })

	assert.False(t, c.Post("flush", func() {}))
	assert.False(t, c.Pending("flush"))
}

func TestNewCoalescerPanicsOnNilPost(t *testing.T) {
	assert.Panics(t, func() { _ = NewCoalescer(nil) })
}
