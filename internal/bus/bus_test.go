package bus_test

import (
	"testing"

	"github.com/abarreto/stagevote/internal/bus"
	"github.com/abarreto/stagevote/internal/logger"
)

func drain(sub *bus.Subscription) []bus.Notice {
	var notices []bus.Notice
	for {
		select {
		case n := <-sub.C:
			notices = append(notices, n)
		default:
			return notices
		}
	}
}

func TestPublish_ReachesMatchingKey(t *testing.T) {
	feed := bus.NewMemory(logger.New())
	sub := feed.Subscribe(bus.TableLiveEvents, 7)
	defer sub.Cancel()

	feed.Publish(bus.TableLiveEvents, 7, "payload")
	feed.Publish(bus.TableLiveEvents, 8, "other")

	notices := drain(sub)
	if len(notices) != 1 {
		t.Fatalf("expected 1 notice, got %d", len(notices))
	}
	if notices[0].Key != 7 || notices[0].Payload != "payload" {
		t.Errorf("unexpected notice %+v", notices[0])
	}
}

func TestPublish_KeyAllSeesEverything(t *testing.T) {
	feed := bus.NewMemory(logger.New())
	sub := feed.Subscribe(bus.TableLiveEvents, bus.KeyAll)
	defer sub.Cancel()

	feed.Publish(bus.TableLiveEvents, 1, "a")
	feed.Publish(bus.TableLiveEvents, 2, "b")
	feed.Publish(bus.TableLiveVotes, 1, "wrong table")

	notices := drain(sub)
	if len(notices) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(notices))
	}
}

func TestCancel_ClosesChannelAndDetaches(t *testing.T) {
	feed := bus.NewMemory(logger.New())
	sub := feed.Subscribe(bus.TableLiveEvents, 1)

	sub.Cancel()
	sub.Cancel() // idempotent

	if _, ok := <-sub.C; ok {
		t.Error("expected closed channel after Cancel")
	}

	// Publishing after cancel must not panic
	feed.Publish(bus.TableLiveEvents, 1, "late")
}

func TestPublish_FullSubscriberDropsNotices(t *testing.T) {
	feed := bus.NewMemory(logger.New())
	sub := feed.Subscribe(bus.TableLiveEvents, 1)
	defer sub.Cancel()

	// Channel buffer is 64; overfill without draining
	for i := 0; i < 100; i++ {
		feed.Publish(bus.TableLiveEvents, 1, i)
	}

	notices := drain(sub)
	if len(notices) != 64 {
		t.Errorf("expected buffer-limited 64 notices, got %d", len(notices))
	}
	// The earliest notices survive; late ones are the dropped ones
	if notices[0].Payload != 0 {
		t.Errorf("expected oldest notice first, got %v", notices[0].Payload)
	}
}

func TestSubscribers_AreIndependent(t *testing.T) {
	feed := bus.NewMemory(logger.New())
	a := feed.Subscribe(bus.TableLiveVotes, 1)
	b := feed.Subscribe(bus.TableLiveVotes, 1)
	defer a.Cancel()
	defer b.Cancel()

	feed.Publish(bus.TableLiveVotes, 1, "x")

	if len(drain(a)) != 1 || len(drain(b)) != 1 {
		t.Error("expected both subscribers to receive the notice")
	}
}
