package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	name     string
	critical bool
	calls    atomic.Int64
	err      error
	delay    time.Duration
}

func (f *fakeHandler) Name() string     { return f.name }
func (f *fakeHandler) IsCritical() bool { return f.critical }
func (f *fakeHandler) Handle(_ context.Context, _ FmcdEvent) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.calls.Add(1)
	return f.err
}

func TestPublishAwaitsCriticalHandlers(t *testing.T) {
	bus := NewBus(10)
	critical := &fakeHandler{name: "critical", critical: true, delay: 20 * time.Millisecond}
	bus.RegisterHandler(critical)

	bus.Publish(context.Background(), InvoicePaid{Base: NewBase("c1", "f1")})

	assert.EqualValues(t, 1, critical.calls.Load())
}

func TestPublishDoesNotWaitForNonCriticalHandlers(t *testing.T) {
	bus := NewBus(10)
	nonCritical := &fakeHandler{name: "async", critical: false, delay: 100 * time.Millisecond}
	bus.RegisterHandler(nonCritical)

	start := time.Now()
	bus.Publish(context.Background(), InvoicePaid{Base: NewBase("c1", "f1")})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 50*time.Millisecond)
	require.Eventually(t, func() bool { return nonCritical.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestFailingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus(10)
	failing := &fakeHandler{name: "failing", critical: true, err: errors.New("boom")}
	ok := &fakeHandler{name: "ok", critical: true}
	bus.RegisterHandler(failing)
	bus.RegisterHandler(ok)

	bus.Publish(context.Background(), InvoicePaid{Base: NewBase("c1", "f1")})

	assert.EqualValues(t, 1, failing.calls.Load())
	assert.EqualValues(t, 1, ok.calls.Load())
}

func TestPublishTwiceInvokesHandlerTwiceNoDedup(t *testing.T) {
	bus := NewBus(10)
	h := &fakeHandler{name: "h", critical: true}
	bus.RegisterHandler(h)

	evt := InvoicePaid{Base: NewBase("c1", "f1")}
	bus.Publish(context.Background(), evt)
	bus.Publish(context.Background(), evt)

	assert.EqualValues(t, 2, h.calls.Load())
}

func TestSubscribeReceivesBroadcastEvents(t *testing.T) {
	bus := NewBus(10)
	sub := bus.Subscribe()
	defer sub.Close()

	evt := InvoicePaid{Base: NewBase("c1", "f1"), OperationID: "op1"}
	bus.Publish(context.Background(), evt)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, ok := sub.Recv(ctx)
	require.True(t, ok)
	assert.Equal(t, "invoice_paid", msg.Event.EventType())
	assert.Zero(t, msg.Dropped)
}

func TestPublishTwiceBroadcastsTwice(t *testing.T) {
	bus := NewBus(10)
	sub := bus.Subscribe()
	defer sub.Close()

	evt := InvoicePaid{Base: NewBase("c1", "f1")}
	bus.Publish(context.Background(), evt)
	bus.Publish(context.Background(), evt)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, ok1 := sub.Recv(ctx)
	_, ok2 := sub.Recv(ctx)
	require.True(t, ok1)
	require.True(t, ok2)
}

func TestSlowSubscriberReportsDropped(t *testing.T) {
	bus := NewBus(2)
	sub := bus.Subscribe()
	defer sub.Close()

	for i := 0; i < 5; i++ {
		bus.Publish(context.Background(), InvoicePaid{Base: NewBase("c1", "f1")})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var lastDropped uint64
	for {
		msg, ok := sub.Recv(ctx)
		if !ok {
			break
		}
		lastDropped = msg.Dropped
		select {
		case <-ctx.Done():
			break
		default:
		}
		if len(sub.ch) == 0 {
			break
		}
	}
	assert.Positive(t, lastDropped)
}

func TestMarshalJSONIncludesTypeField(t *testing.T) {
	evt := InvoicePaid{Base: NewBase("c1", "f1"), OperationID: "op1", AmountReceivedMsat: 50000}
	raw, err := MarshalJSON(evt)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"invoice_paid"`)
	assert.Contains(t, string(raw), `"amountReceivedMsat":50000`)
}
