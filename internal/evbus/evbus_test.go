package evbus

import "testing"

func TestRetainedDeliveredToLateSubscriber(t *testing.T) {
	b := New(4)
	b.Publish(T("connected"), "desc-1", true)

	sub := b.Subscribe(T("connected"))
	defer b.Unsubscribe(sub)

	select {
	case m := <-sub.Channel():
		if m.Payload != "desc-1" {
			t.Fatalf("got %v, want desc-1", m.Payload)
		}
	default:
		t.Fatal("expected retained message to be delivered on subscribe")
	}
}

func TestWildcardMatch(t *testing.T) {
	b := New(4)
	sub := b.Subscribe(T("input", wildcard))
	defer b.Unsubscribe(sub)

	b.Publish(T("input", "4"), 1, false)
	select {
	case m := <-sub.Channel():
		if m.Payload != 1 {
			t.Fatalf("got %v, want 1", m.Payload)
		}
	default:
		t.Fatal("expected wildcard delivery")
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	b := New(1)
	sub := b.Subscribe(T("x"))
	defer b.Unsubscribe(sub)

	b.Publish(T("x"), "first", false)
	b.Publish(T("x"), "second", false)

	m := <-sub.Channel()
	if m.Payload != "second" {
		t.Fatalf("got %v, want second (oldest dropped)", m.Payload)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New(1)
	sub := b.Subscribe(T("x"))
	b.Unsubscribe(sub)

	_, ok := <-sub.Channel()
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}
