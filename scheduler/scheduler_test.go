package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hostmesh/hostrt/scheduler"
)

func TestScheduler_SubmitExecutesOnWorker(t *testing.T) {
	s := scheduler.New(2, 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop(time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	s.Submit(func() { wg.Done() })

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submitted callback never ran")
	}
}

func TestScheduler_RemoveTaskDetachesAll(t *testing.T) {
	s := scheduler.New(1, 8, nil)

	detached := 0
	s.RegisterTask("node-a", func() { detached++ })
	s.RegisterTask("node-a", func() { detached++ })
	s.RegisterTask("node-b", func() { detached++ })

	s.RemoveTask("node-a")
	require.Equal(t, 2, detached)

	s.RemoveTask("node-b")
	require.Equal(t, 3, detached)

	// Removing again is a no-op, not a double-detach.
	s.RemoveTask("node-a")
	require.Equal(t, 3, detached)
}

func TestScheduler_InstanceInitShutdown(t *testing.T) {
	scheduler.Init(1, 8, nil)
	first := scheduler.Instance()
	require.Same(t, first, scheduler.Instance())

	scheduler.Shutdown()
	second := scheduler.Instance()
	require.NotSame(t, first, second)
}
