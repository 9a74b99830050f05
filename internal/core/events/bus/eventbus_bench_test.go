package bus

import (
	"strconv"
	"sync/atomic"
	"testing"
)

// helper to make a simple event quickly
func benchEvt(t string) Event {
	return NewEvent(t, "bench", 0, nil)
}

// no-op handler that increments a counter to avoid compiler eliminating logic
func makeHandler(c *int64) EventHandler {
	return func(e Event) error {
		atomic.AddInt64(c, 1)
		return nil
	}
}

type nopObserver struct{}

func (nopObserver) OnPublish(string, Event)        {}
func (nopObserver) OnDelivered(string, int, error) {}

func BenchmarkPublishSingleSubscriber(b *testing.B) {
	bus := New()
	var c int64
	_, _ = bus.Subscribe(TypeCollision, makeHandler(&c))
	e := benchEvt(TypeCollision)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(e)
	}
}

func BenchmarkPublishManySubscribers(b *testing.B) {
	for _, subs := range []int{1, 4, 16, 64} {
		b.Run("subs="+strconv.Itoa(subs), func(b *testing.B) {
			bus := New()
			var c int64
			for i := 0; i < subs; i++ {
				_, _ = bus.Subscribe(TypeCollision, makeHandler(&c))
			}
			e := benchEvt(TypeCollision)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = bus.Publish(e)
			}
		})
	}
}

func BenchmarkObserverOverhead(b *testing.B) {
	bus := New()
	var c int64
	_, _ = bus.Subscribe(TypeEffectSpawned, makeHandler(&c))
	bus.AddObserver(nopObserver{})
	e := benchEvt(TypeEffectSpawned)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(e)
	}
}
