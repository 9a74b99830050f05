package bus

import (
	"errors"
	"testing"
)

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_ string, _ Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_ string, handlers int, err error) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got EnemyCountChanged
	_, err := b.Subscribe(TypeEnemyCountChanged, func(e Event) error {
		got = e.Data().(EnemyCountChanged)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err = b.Publish(NewEvent(TypeEnemyCountChanged, "spawner", 1.5, EnemyCountChanged{Count: 3})); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.Count != 3 {
		t.Fatalf("handler not called: %+v", got)
	}
}

func TestDeliveryFollowsSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	for i := 0; i < 8; i++ {
		i := i
		_, _ = b.Subscribe("ev", func(Event) error { order = append(order, i); return nil })
	}
	_ = b.Publish(NewEvent("ev", "src", 0, nil))
	for i, v := range order {
		if v != i {
			t.Fatalf("out of order delivery: %v", order)
		}
	}
	if len(order) != 8 {
		t.Fatalf("expected 8 deliveries, got %d", len(order))
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	sub, _ := b.Subscribe("ev", func(Event) error { count++; return nil })
	_ = b.Publish(NewEvent("ev", "src", 0, nil))
	if err := b.Unsubscribe(sub); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	_ = b.Publish(NewEvent("ev", "src", 0, nil))
	if count != 1 || sub.IsActive() {
		t.Fatalf("subscription still active: count=%d active=%v", count, sub.IsActive())
	}
	if err := b.Unsubscribe(nil); err != nil {
		t.Fatalf("nil unsubscribe: %v", err)
	}
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	e1, e2 := errors.New("one"), errors.New("two")
	_, _ = b.Subscribe("x", func(Event) error { return e1 })
	_, _ = b.Subscribe("x", func(Event) error { return e2 })
	err := b.PublishBatch(NewEvent("x", "src", 0, nil), NewEvent("y", "src", 0, nil))
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("expected joined error, got %v", err)
	}
}

func TestFiltersDropEvents(t *testing.T) {
	b := New()
	count := 0
	_, _ = b.Subscribe("ev", func(Event) error { count++; return nil })
	obs := &testObserver{}
	b.AddObserver(obs)

	late := func(e Event) bool { return e.Time() >= 1 }
	_ = b.PublishWithFilters(NewEvent("ev", "src", 0.5, nil), late)
	_ = b.PublishWithFilters(NewEvent("ev", "src", 1.5, nil), late)
	if count != 1 {
		t.Fatalf("filter not applied: %d", count)
	}
	if m := b.GetMetrics(); m.DroppedByFilters != 1 {
		t.Fatalf("drop not counted: %+v", m)
	}
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	// without observer, metrics should remain zero despite activity
	_, _ = b.Subscribe("e", func(e Event) error { return nil })
	_ = b.Publish(NewEvent("e", "s", 0, nil))
	m := b.GetMetrics()
	if m.Published != 0 || m.DeliveredHandlers != 0 {
		t.Fatalf("metrics should be zero without observers: %+v", m)
	}
	// now add observer and expect metrics to update
	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Publish(NewEvent("e", "s", 0, nil))
	m2 := b.GetMetrics()
	if m2.Published != 1 || m2.DeliveredHandlers != 1 || m2.SubscribersActive != 1 {
		t.Fatalf("metrics should update with observer: %+v", m2)
	}
	if obs.publishCount == 0 || obs.deliveredCount == 0 {
		t.Fatalf("observer not called: %+v", obs)
	}
	b.RemoveObserver(obs)
	_ = b.Publish(NewEvent("e", "s", 0, nil))
	if obs.publishCount != 1 {
		t.Fatalf("removed observer still called: %+v", obs)
	}
}
