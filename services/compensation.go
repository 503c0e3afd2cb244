package services

import (
	"context"

	"go.uber.org/zap"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// compensationLog records undo steps for writes made outside a database
// transaction and replays them newest first.
type compensationLog struct {
	steps []compensation
}

func (l *compensationLog) add(name string, undo func(ctx context.Context) error) {
	l.steps = append(l.steps, compensation{name: name, undo: undo})
}

func (l *compensationLog) reset() {
	l.steps = l.steps[:0]
}

// rollback runs every step even if earlier ones fail and returns how many
// failed. Failures are logged since there is nobody left to return them to.
func (l *compensationLog) rollback(ctx context.Context, log *zap.Logger) int {
	failed := 0
	for i := len(l.steps) - 1; i >= 0; i-- {
		step := l.steps[i]
		if err := step.undo(ctx); err != nil {
			failed++
			log.Error("compensation failed", zap.String("step", step.name), zap.Error(err))
		}
	}
	l.steps = nil
	return failed
}
