package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestTrigger_SkipsOverlappingRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0

	svc := NewService(func(ctx context.Context) error {
		calls++
		close(started)
		<-release
		return nil
	}, time.UTC, arbor.NewLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.True(t, svc.Trigger())
	}()

	<-started
	assert.True(t, svc.Status().Processing)
	assert.False(t, svc.Trigger(), "overlapping trigger must be skipped")

	close(release)
	wg.Wait()

	assert.Equal(t, 1, calls)
	st := svc.Status()
	assert.False(t, st.Processing)
	require.NotNil(t, st.LastRun)
	assert.Empty(t, st.LastError)
}

func TestTrigger_RecordsError(t *testing.T) {
	svc := NewService(func(ctx context.Context) error {
		return errors.New("krx unavailable")
	}, time.UTC, arbor.NewLogger())

	assert.True(t, svc.Trigger())
	assert.Equal(t, "krx unavailable", svc.Status().LastError)
}

func TestTrigger_RecoversPanic(t *testing.T) {
	svc := NewService(func(ctx context.Context) error {
		panic("boom")
	}, time.UTC, arbor.NewLogger())

	assert.True(t, svc.Trigger())
	assert.Contains(t, svc.Status().LastError, "panicked")

	// The processing flag is released after a panic
	assert.True(t, svc.Trigger())
}

func TestStartStop(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	svc := NewService(func(ctx context.Context) error { return nil }, loc, arbor.NewLogger())

	require.NoError(t, svc.Start("0 18 * * 1-5"))
	assert.True(t, svc.IsRunning())
	assert.Error(t, svc.Start("0 18 * * 1-5"), "already running")

	st := svc.Status()
	require.NotNil(t, st.NextRun)
	assert.Equal(t, 18, st.NextRun.In(loc).Hour())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
	assert.False(t, svc.IsRunning())
}

func TestStart_InvalidSchedule(t *testing.T) {
	svc := NewService(func(ctx context.Context) error { return nil }, time.UTC, arbor.NewLogger())
	assert.Error(t, svc.Start("every day"))
	assert.False(t, svc.IsRunning())
}

func TestStop_CancelsRunContext(t *testing.T) {
	cancelled := make(chan struct{})
	svc := NewService(func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}, time.UTC, arbor.NewLogger())

	go svc.Trigger()
	require.Eventually(t, func() bool { return svc.Status().Processing }, time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Stop(context.Background()))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("run context was not cancelled")
	}
}
