package app

import (
	"context"
	"testing"
	"time"
)

func TestReaperCancelsIdleConnections(t *testing.T) {
	r := NewRegistry()
	cancelled := make(chan struct{})
	c, _ := testConn("c1", "alice", "room-1", func() { close(cancelled) })
	r.Add(c, 4)

	rp := &Reaper{Registry: r, Interval: 10 * time.Millisecond, MaxIdle: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rp.Run(ctx)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("reaper never evicted the idle connection")
	}
}

func TestReaperLeavesActiveConnectionsAlone(t *testing.T) {
	r := NewRegistry()
	cancelled := make(chan struct{})
	c, _ := testConn("c1", "alice", "room-1", func() { close(cancelled) })
	r.Add(c, 4)

	rp := &Reaper{Registry: r, Interval: 5 * time.Millisecond, MaxIdle: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rp.Run(ctx)

	select {
	case <-cancelled:
		t.Fatal("active connection must not be evicted")
	case <-time.After(50 * time.Millisecond):
	}
}
