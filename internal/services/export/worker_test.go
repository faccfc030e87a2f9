package export

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedWorker(t *testing.T) {
	t.Run("Should report increasing fractions ending at one", func(t *testing.T) {
		var fractions []float64
		err := SimulatedWorker{Tick: time.Millisecond}.Run(context.Background(),
			Stage{ID: "x", Duration: 5 * time.Millisecond}, Job{},
			func(f float64) { fractions = append(fractions, f) })

		require.NoError(t, err)
		require.Len(t, fractions, 5)
		for i := 1; i < len(fractions); i++ {
			assert.Greater(t, fractions[i], fractions[i-1])
		}
		assert.Equal(t, 1.0, fractions[len(fractions)-1])
	})

	t.Run("Should stop when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := SimulatedWorker{Tick: time.Millisecond}.Run(ctx,
			Stage{ID: "x", Duration: time.Hour}, Job{}, func(float64) {})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Should finish zero-length stages immediately", func(t *testing.T) {
		called := false
		err := SimulatedWorker{}.Run(context.Background(), Stage{ID: "x"}, Job{}, func(f float64) {
			called = f == 1
		})
		require.NoError(t, err)
		assert.True(t, called)
	})
}
