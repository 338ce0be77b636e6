package h2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowWindowTakeClampsToAvailable(t *testing.T) {
	fw := newFlowWindow(100)

	got, err := fw.take(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)
	assert.Equal(t, int64(0), fw.current())
}

func TestFlowWindowBlocksUntilCredit(t *testing.T) {
	fw := newFlowWindow(0)

	resultCh := make(chan int64, 1)
	go func() {
		got, err := fw.take(10)
		require.NoError(t, err)
		resultCh <- got
	}()

	select {
	case <-resultCh:
		t.Fatal("take should have blocked with no credit")
	case <-time.After(20 * time.Millisecond):
	}

	fw.add(10)

	select {
	case got := <-resultCh:
		assert.Equal(t, int64(10), got)
	case <-time.After(time.Second):
		t.Fatal("take never woke after add")
	}
}

func TestFlowWindowCloseWakesWaiters(t *testing.T) {
	fw := newFlowWindow(0)

	errCh := make(chan error, 1)
	go func() {
		_, err := fw.take(1)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	fw.closeFlow()

	select {
	case err := <-errCh:
		assert.Equal(t, ErrConnClosed, err)
	case <-time.After(time.Second):
		t.Fatal("take never woke after closeFlow")
	}
}

func TestFlowWindowAddRejectsOverflow(t *testing.T) {
	fw := newFlowWindow(maxWindowSize - 5)

	err := fw.add(10)
	ce := asConnError(t, err)
	assert.Equal(t, FlowControlError, ce.Code)
	assert.Equal(t, int64(maxWindowSize-5), fw.current(), "size must be unchanged on a rejected add")
}

func TestRecvWindowRefillThreshold(t *testing.T) {
	rw := newRecvWindow(100)

	grant := rw.consume(40)
	assert.Equal(t, int64(0), grant, "above half of the window, no refill yet")

	grant = rw.consume(20)
	assert.Equal(t, int64(60), grant, "dropped to half, refill back to max")
}
