package proccache

import (
	"context"
	"testing"
	"time"

	"github.com/procscope/procscope/pkg/types"
)

func TestPollerDeliversInitialFullRefresh(t *testing.T) {
	clock := time.Unix(4000, 0)
	intr := &fakeIntrospect{enumerated: []types.ProcessRecord{{Pid: 1, Name: "a"}}}
	m := newTestManager(nil, intr, &clock)

	p := NewPoller(m, 50*time.Millisecond, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case records := <-p.Updates():
		if len(records) != 1 || records[0].Pid != 1 {
			t.Fatalf("unexpected initial generation: %+v", records)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no update delivered")
	}
}

func TestPollerSingleSlotKeepsLatest(t *testing.T) {
	clock := time.Unix(4000, 0)
	m := newTestManager(nil, &fakeIntrospect{}, &clock)
	p := NewPoller(m, time.Second, quietLogger())

	p.deliver([]types.ProcessRecord{{Pid: 1}})
	p.deliver([]types.ProcessRecord{{Pid: 2}})

	select {
	case records := <-p.Updates():
		if len(records) != 1 || records[0].Pid != 2 {
			t.Fatalf("stale generation not replaced: %+v", records)
		}
	default:
		t.Fatalf("expected a pending generation")
	}

	select {
	case records := <-p.Updates():
		t.Fatalf("only the latest generation should be buffered, got %+v", records)
	default:
	}
}

func TestPollerForceFullUpgradesPendingQuickTick(t *testing.T) {
	clock := time.Unix(4000, 0)
	m := newTestManager(nil, &fakeIntrospect{}, &clock)
	p := NewPoller(m, time.Second, quietLogger())

	p.ticks <- false // a regular tick is already waiting
	p.ForceFull()

	select {
	case force := <-p.ticks:
		if !force {
			t.Fatalf("pending tick was not upgraded: full refresh request lost")
		}
	default:
		t.Fatalf("expected a pending tick")
	}
}

func TestPollerForceFullCoalesces(t *testing.T) {
	clock := time.Unix(4000, 0)
	m := newTestManager(nil, &fakeIntrospect{}, &clock)
	p := NewPoller(m, time.Second, quietLogger())

	p.ForceFull()
	p.ForceFull() // second request coalesces into the pending one

	select {
	case force := <-p.ticks:
		if !force {
			t.Fatalf("pending request should be a full refresh")
		}
	default:
		t.Fatalf("expected a pending tick")
	}
	select {
	case <-p.ticks:
		t.Fatalf("requests must coalesce to one")
	default:
	}
}
