package heartbeat

import (
	"context"
	"testing"
	"time"

	"mcucode-go/bus"
)

func TestBeatsArriveInSequence(t *testing.T) {
	b := bus.New(8)
	svc := &Service{Interval: 10 * time.Millisecond}

	sub := b.NewConnection("watch").Subscribe(topicBeat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, b.NewConnection("heartbeat"))

	var last uint64
	for i := 0; i < 3; i++ {
		select {
		case msg := <-sub.Channel():
			beat := msg.Payload.(Beat)
			if beat.Seq <= last {
				t.Fatalf("beat sequence went backwards: %d after %d", beat.Seq, last)
			}
			last = beat.Seq
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for heartbeat")
		}
	}
}

func TestIntervalReconfiguredOverBus(t *testing.T) {
	b := bus.New(8)
	svc := &Service{Interval: time.Hour} // effectively never

	conn := b.NewConnection("test")
	sub := conn.Subscribe(topicBeat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, b.NewConnection("heartbeat"))

	conn.Publish(&bus.Message{Topic: topicConfig, Payload: 5 * time.Millisecond})

	select {
	case <-sub.Channel():
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not pick up the new interval")
	}
}
