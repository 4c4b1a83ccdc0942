package framework

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsFirstIterationImmediately(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour
	ran := make(chan uint64, 1)
	loop.AddController(ControlFunc(func(cc ControlContext) error {
		select {
		case ran <- cc.Iteration():
		default:
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	select {
	case n := <-ran:
		assert.Equal(t, uint64(0), n)
	case <-time.After(time.Second):
		t.Fatal("first iteration not executed")
	}
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestLoopTriggerNext(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour
	var count int32
	loop.AddController(ControlFunc(func(cc ControlContext) error {
		if atomic.AddInt32(&count, 1) == 1 {
			cc.TriggerNext()
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&count) >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestLoopStopsWithinInterval(t *testing.T) {
	loop := NewLoop()
	loop.Interval = 20 * time.Millisecond
	loop.AddController(ControlFunc(func(ControlContext) error {
		return errors.New("logged and ignored")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("loop did not stop")
	}
}

func TestLoopStartsRunnables(t *testing.T) {
	loop := NewLoop()
	started := make(chan struct{})
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("runnable not started")
	}
	cancel()
	<-errCh
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseAll(t *testing.T) {
	errA := errors.New("a")
	err := CloseAll(
		closerFunc(func() error { return nil }),
		nil,
		closerFunc(func() error { return errA }),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.Equal(t, "a", err.Error())

	assert.NoError(t, CloseAll())
}

func TestRunnerWaitIgnoresCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx)
	r.Go(NamedRun("blocker", RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))
	cancel()
	assert.NoError(t, r.Wait())
}

func TestRunnerAggregatesErrors(t *testing.T) {
	errPort := errors.New("port busy")
	r := NewRunner().Go(
		NamedRun("ok", RunFunc(func(context.Context) error { return nil })),
		NamedRun("failing", RunFunc(func(context.Context) error { return errPort })),
	)
	err := r.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, errPort)
}

func TestRunWithContextCancel(t *testing.T) {
	release := make(chan struct{})
	canceled := false
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunWithContextCancel(ctx, func() {
			canceled = true
			close(release)
		}, func() error {
			<-release
			return errors.New("server closed")
		})
	}()
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.True(t, canceled)

	errDone := errors.New("done")
	assert.Equal(t, errDone, RunWithContextCancel(context.Background(), nil, func() error { return errDone }))
}
