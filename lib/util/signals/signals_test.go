package signals

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRunsInOrder(t *testing.T) {
	r := newRegistry("test")
	var calls []int
	r.add(func() { calls = append(calls, 1) })
	id := r.add(func() { calls = append(calls, 2) })
	r.add(func() { calls = append(calls, 3) })

	r.run()
	assert.Equal(t, []int{1, 2, 3}, calls)

	calls = nil
	r.remove(id)
	r.remove(id)
	r.run()
	assert.Equal(t, []int{1, 3}, calls)
}

func TestRegistryIgnoresNil(t *testing.T) {
	r := newRegistry("test")
	assert.Equal(t, HandlerID(-1), r.add(nil))
	assert.Empty(t, r.order)
}

func TestRegistryRecoversFromPanic(t *testing.T) {
	r := newRegistry("test")
	after := false
	r.add(func() { panic("boom") })
	r.add(func() { after = true })

	assert.NotPanics(t, r.run)
	assert.True(t, after)
}

func TestInterruptDispatch(t *testing.T) {
	defer interrupters.reset()

	called := make(chan struct{}, 1)
	RegisterInterruptHandler(func() { called <- struct{}{} })

	dispatch(os.Interrupt)
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("interrupt handler not called")
	}
}

func TestHandleReturnsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Handle(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Handle did not return")
	}
}

func TestDeregisterHandlers(t *testing.T) {
	defer interrupters.reset()
	defer reloaders.reset()

	interrupted, reloaded := false, false
	interruptID := RegisterInterruptHandler(func() { interrupted = true })
	reloadID := RegisterReloadHandler(func() { reloaded = true })

	DeregisterInterruptHandler(interruptID)
	DeregisterReloadHandler(reloadID)

	interrupters.run()
	reloaders.run()
	assert.False(t, interrupted)
	assert.False(t, reloaded)
}
