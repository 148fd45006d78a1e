package hotkey

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestListenDispatchesToggles(t *testing.T) {
	hk := NewFake()
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(3)
	stopped := make(chan struct{})
	go func() {
		Listen(ctx, hk, wg.Done)
		close(stopped)
	}()

	for range 3 {
		hk.SimKeydown()
	}
	waitOrFail(t, &wg)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestListenDoesNotBlockOnSlowToggle(t *testing.T) {
	hk := NewFake()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go Listen(ctx, hk, func() {
		wg.Done()
		<-release
	})

	hk.SimKeydown()
	hk.SimKeydown()
	waitOrFail(t, &wg)
	close(release)
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("toggles were not dispatched")
	}
}
