package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishSync_DeliversToSubscribers(t *testing.T) {
	b := New()
	var got atomic.Int32

	b.Subscribe(EventMouthChanged, func(e Event) {
		if e.Data["mouth"] == "mouth_o" {
			got.Add(1)
		}
	})
	b.SubscribeMultiple([]EventType{EventMouthChanged, EventBlinkStarted}, func(Event) {
		got.Add(10)
	})

	b.PublishSync(Event{Type: EventMouthChanged, Data: map[string]any{"mouth": "mouth_o"}})
	assert.Equal(t, int32(11), got.Load())

	b.PublishSync(Event{Type: EventBlinkStarted})
	assert.Equal(t, int32(21), got.Load())
}

func TestPublish_Async(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	wg.Add(1)
	b.Subscribe(EventNotification, func(Event) { wg.Done() })

	b.Publish(Event{Type: EventNotification})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
}

func TestClear(t *testing.T) {
	b := New()
	called := false
	b.Subscribe(EventRunStarted, func(Event) { called = true })
	b.Clear()
	b.PublishSync(Event{Type: EventRunStarted})
	assert.False(t, called)
}

func TestAllEvents_Unique(t *testing.T) {
	seen := map[EventType]bool{}
	for _, e := range AllEvents {
		assert.False(t, seen[e], e)
		seen[e] = true
	}
}

func TestSubscribeOrdered_KeepsPublishOrder(t *testing.T) {
	b := New()
	var (
		mu  sync.Mutex
		got []EventType
	)
	stop := b.SubscribeOrdered([]EventType{EventTriggerDisabled, EventMouthChanged, EventTriggerEnabled}, func(e Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
	})

	var want []EventType
	for i := 0; i < 200; i++ {
		for _, et := range []EventType{EventTriggerDisabled, EventMouthChanged, EventTriggerEnabled} {
			b.Publish(Event{Type: et})
			want = append(want, et)
		}
	}
	stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, got)
}

func TestSubscribeOrdered_StopDropsLaterEvents(t *testing.T) {
	b := New()
	var n atomic.Int32
	stop := b.SubscribeOrdered([]EventType{EventNotification}, func(Event) { n.Add(1) })

	b.PublishSync(Event{Type: EventNotification})
	stop()
	b.Publish(Event{Type: EventNotification})
	stop()

	assert.Equal(t, int32(1), n.Load())
}
