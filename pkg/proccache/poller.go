package proccache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/procscope/procscope/pkg/types"
)

// Poller drives Manager.Refresh on a dedicated goroutine so a slow backend
// never stalls the consumer. Results travel through a single-slot handoff:
// a generation the consumer has not picked up yet is replaced, never queued.
// Ticks that land while a refresh is in flight are coalesced into one.
type Poller struct {
	manager  *Manager
	interval time.Duration
	log      logrus.FieldLogger

	ticks   chan bool // pending request; true forces a full refresh
	updates chan []types.ProcessRecord
}

// NewPoller returns a poller ticking at interval. A non-positive interval
// falls back to one second.
func NewPoller(manager *Manager, interval time.Duration, log logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Poller{
		manager:  manager,
		interval: interval,
		log:      log,
		ticks:    make(chan bool, 1),
		updates:  make(chan []types.ProcessRecord, 1),
	}
}

// Updates returns the channel on which refreshed record lists arrive.
func (p *Poller) Updates() <-chan []types.ProcessRecord {
	return p.updates
}

// ForceFull requests a full re-enumeration on the next worker cycle. If a
// request is already pending it is upgraded at most to one full refresh.
// Only Run and ForceFull send on ticks, so the swap loop terminates.
func (p *Poller) ForceFull() {
	for {
		select {
		case p.ticks <- true:
			return
		default:
		}
		select {
		case <-p.ticks:
		default:
		}
	}
}

// Run blocks until ctx is cancelled. The first refresh is a full one and
// runs immediately. An in-flight refresh result is discarded on shutdown.
func (p *Poller) Run(ctx context.Context) {
	go p.worker(ctx)

	p.ForceFull()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case p.ticks <- false:
			default:
				// refresh still in flight, coalesce this tick
			}
		}
	}
}

func (p *Poller) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case force := <-p.ticks:
			records := p.manager.Refresh(ctx, force)
			if ctx.Err() != nil {
				return
			}
			p.deliver(records)
		}
	}
}

// deliver replaces any stale undelivered generation. Only the worker sends
// on updates, so drain-then-send cannot block.
func (p *Poller) deliver(records []types.ProcessRecord) {
	select {
	case p.updates <- records:
	default:
		select {
		case <-p.updates:
		default:
		}
		p.updates <- records
	}
}
