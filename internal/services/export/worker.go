package export

import (
	"context"
	"math"
	"time"
)

// StageWorker performs the work of one stage, reporting completion as a
// fraction in [0, 1]. It must return promptly once ctx is cancelled.
type StageWorker interface {
	Run(ctx context.Context, stage Stage, job Job, report func(fraction float64)) error
}

// StageWorkerFunc adapts a function to StageWorker.
type StageWorkerFunc func(ctx context.Context, stage Stage, job Job, report func(fraction float64)) error

func (f StageWorkerFunc) Run(ctx context.Context, stage Stage, job Job, report func(fraction float64)) error {
	return f(ctx, stage, job, report)
}

// SimulatedWorker spends each stage's nominal duration in fixed ticks.
type SimulatedWorker struct {
	Tick time.Duration
}

func (w SimulatedWorker) Run(ctx context.Context, stage Stage, _ Job, report func(fraction float64)) error {
	tick := w.Tick
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	if stage.Duration <= 0 {
		report(1)
		return ctx.Err()
	}

	steps := int(math.Ceil(float64(stage.Duration) / float64(tick)))
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report(float64(i) / float64(steps))
		}
	}
	return nil
}
