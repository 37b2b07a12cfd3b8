package invitation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) SweepExpired(_ context.Context) (int64, error) {
	e.calls.Add(1)
	return 0, e.err
}

func TestSweeper_RunsImmediatelyAndOnInterval(t *testing.T) {
	expirer := &countingExpirer{}
	s := NewSweeper(expirer, 10*time.Millisecond, zap.NewNop())

	s.Start()
	assert.Eventually(t, func() bool { return expirer.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := expirer.calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, expirer.calls.Load())
}

func TestSweeper_StopIsIdempotent(t *testing.T) {
	s := NewSweeper(&countingExpirer{}, time.Hour, zap.NewNop())
	s.Start()
	s.Stop()
	assert.NotPanics(t, s.Stop)
}

func TestSweeper_SurvivesErrors(t *testing.T) {
	expirer := &countingExpirer{err: errors.New("db down")}
	s := NewSweeper(expirer, 5*time.Millisecond, zap.NewNop())

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return expirer.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	s := NewSweeper(&countingExpirer{}, 0, zap.NewNop())
	assert.Equal(t, DefaultSweepInterval, s.interval)
}
