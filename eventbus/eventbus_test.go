package eventbus

import (
	"testing"
	"time"

	"github.com/hocy1609/spybot/model"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := New()
	ch1 := b.Subscribe("run1")
	ch2 := b.Subscribe("run1")
	other := b.Subscribe("run2")

	b.Publish(&model.Event{Topic: "run1", Type: "status", Data: "running"})

	for i, ch := range []chan *model.Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Data != "running" {
				t.Errorf("subscriber %d got %q", i, e.Data)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d received nothing", i)
		}
	}

	select {
	case e := <-other:
		t.Errorf("wrong-topic subscriber got %+v", e)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch := b.Subscribe("run1")
	b.Unsubscribe("run1", ch)

	if _, ok := <-ch; ok {
		t.Error("channel not closed after Unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	b.Publish(&model.Event{Topic: "run1", Type: "status"})
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	b := New()
	ch := b.Subscribe("run1")

	for i := 0; i < 100; i++ {
		b.Publish(&model.Event{Topic: "run1", Type: "progress"})
	}

	// Buffered at 64; the rest are dropped, not blocking the publisher.
	if n := len(ch); n != 64 {
		t.Errorf("buffered %d events, want 64", n)
	}
}
