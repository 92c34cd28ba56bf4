package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/dropboxlog/pkg/logging"
)

func noop(context.Context) error { return nil }

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{"daily", "0 3 * * *", true, false},
		{"descriptor", "@hourly", true, false},
		{"every", "@every 10m", true, false},
		{"empty schedule", "", false, false},
		{"invalid schedule", "invalid cron", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.schedule, noop, logging.Discard())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := s.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if s.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", s.IsRunning(), tt.wantRunning)
			}

			if tt.wantRunning {
				next := s.NextRun()
				if next == nil {
					t.Error("NextRun() returned nil for running scheduler")
				} else if !next.After(time.Now()) {
					t.Errorf("NextRun() = %v, want time in future", next)
				}
			}

			s.Stop()
			if s.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	var runs atomic.Int32
	s := New("@every 1s", func(context.Context) error {
		runs.Add(1)
		return errors.New("logged, not fatal")
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}

func TestScheduler_GracefulShutdown(t *testing.T) {
	s := New("0 3 * * *", noop, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestScheduler_NextRunBeforeStart(t *testing.T) {
	s := New("0 3 * * *", noop, nil)
	assert.Nil(t, s.NextRun())
}

func TestScheduler_MultipleStartStop(t *testing.T) {
	s := New("0 * * * *", noop, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Start(ctx))
		require.NoError(t, s.Start(ctx), "second Start while running is a no-op")
		assert.True(t, s.IsRunning())
		s.Stop()
		assert.False(t, s.IsRunning())
	}
}
