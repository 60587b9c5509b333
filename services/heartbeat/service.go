// Package heartbeat publishes a periodic liveness beat on the bus, so a
// console or test attached to the bus can tell the demo loop is alive.
package heartbeat

import (
	"context"
	"time"

	"mcucode-go/bus"
)

var (
	topicBeat   = bus.T("status/heartbeat")
	topicConfig = bus.T("config/heartbeat")
)

// Beat is the published payload.
type Beat struct {
	Seq  uint64
	Time time.Time
}

type Service struct {
	// Interval between beats; one second when zero.
	Interval time.Duration
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, cfgSub *bus.Subscription) {
	defer conn.Unsubscribe(cfgSub)

	interval := s.Interval
	if interval <= 0 {
		interval = time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-tick.C:
			seq++
			conn.Publish(&bus.Message{
				Topic:    topicBeat,
				Payload:  Beat{Seq: seq, Time: t},
				Retained: true,
			})
		case msg := <-cfgSub.Channel():
			if d, ok := msg.Payload.(time.Duration); ok && d > 0 {
				tick.Reset(d)
			}
		}
	}
}

// Start launches the beat loop. The configuration subscription is made
// before Start returns, so a reconfiguration published immediately after is
// not lost.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	go s.serviceLoop(ctx, conn, cfgSub)
}
