package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {
	t.Run("Should assign increasing sequence numbers", func(t *testing.T) {
		bus := New[string](10)
		first := bus.Publish("a")
		second := bus.Publish("b")

		assert.Equal(t, int64(1), first.Seq)
		assert.Equal(t, int64(2), second.Seq)
		assert.Equal(t, int64(2), bus.LastSeq())
		assert.False(t, first.Timestamp.IsZero())
	})

	t.Run("Should return only newer events", func(t *testing.T) {
		bus := New[int](10)
		for i := 1; i <= 5; i++ {
			bus.Publish(i)
		}

		got := bus.Since(3)
		require.Len(t, got, 2)
		assert.Equal(t, 4, got[0].Payload)
		assert.Equal(t, 5, got[1].Payload)
		assert.Empty(t, bus.Since(5))
	})

	t.Run("Should keep only the newest events", func(t *testing.T) {
		bus := New[int](3)
		for i := 1; i <= 5; i++ {
			bus.Publish(i)
		}

		got := bus.Since(0)
		require.Len(t, got, 3)
		assert.Equal(t, int64(3), got[0].Seq)
	})

	t.Run("Should deliver to subscribers in order until unsubscribed", func(t *testing.T) {
		bus := New[int](10)
		var got []int
		unsubscribe := bus.Subscribe(func(env Envelope[int]) {
			got = append(got, env.Payload)
		})

		bus.Publish(1)
		bus.Publish(2)
		unsubscribe()
		unsubscribe()
		bus.Publish(3)

		assert.Equal(t, []int{1, 2}, got)
	})

	t.Run("Should serialize concurrent publishers", func(t *testing.T) {
		bus := New[int](1000)
		var seen []int64
		bus.Subscribe(func(env Envelope[int]) {
			seen = append(seen, env.Seq)
		})

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				bus.Publish(i)
			}(i)
		}
		wg.Wait()

		require.Len(t, seen, 50)
		for i := 1; i < len(seen); i++ {
			assert.Less(t, seen[i-1], seen[i])
		}
	})
}
