package proccache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/procscope/procscope/pkg/types"
)

// defaultStatus is what an unenriched record reports until the introspection
// backend says otherwise.
const defaultStatus = "running"

// BulkSource is the cheap platform-native enumeration backend. It may be
// absent entirely, and it may stop responding at any point in the run.
type BulkSource interface {
	Snapshot(ctx context.Context) ([]types.BulkRow, error)
}

// Introspect is the per-PID process introspection backend, assumed always
// available.
type Introspect interface {
	Dynamic(ctx context.Context, pid int32) (types.DynamicSample, error)
	Enrich(ctx context.Context, pid int32) (types.Enrichment, error)
	Enumerate(ctx context.Context) ([]types.ProcessRecord, error)
	Detail(ctx context.Context, pid int32) (types.ProcessDetail, error)
	Terminate(ctx context.Context, pid int32) error
}

// Manager owns the current record list and drives the two backends through
// the cache and the refresh policy. A mutex guards the record list shared by
// the background poller and consumers; Terminate and Detail hold no state
// and go straight to the backend.
type Manager struct {
	mu     sync.Mutex
	bulk   BulkSource
	intr   Introspect
	cache  *Cache
	policy RefreshPolicy
	log    logrus.FieldLogger

	procs      []types.ProcessRecord
	lastFull   time.Time
	bulkBroken bool

	now func() time.Time
}

// NewManager wires the backends to a cache and policy. bulk may be nil when
// the platform has no native enumeration path. A nil logger falls back to
// the logrus standard logger.
func NewManager(bulk BulkSource, intr Introspect, cache *Cache, policy RefreshPolicy, log logrus.FieldLogger) *Manager {
	if cache == nil {
		cache = NewCache(0, 0)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		bulk:   bulk,
		intr:   intr,
		cache:  cache,
		policy: policy,
		log:    log,
		now:    time.Now,
	}
}

// Refresh brings the record list up to date and returns it in enumeration
// order. When forceFull is set, the list is empty, or the policy says the
// identity sets drifted too far, a full re-enumeration runs; otherwise only
// dynamic fields of already-known records are re-read.
func (m *Manager) Refresh(ctx context.Context, forceFull bool) []types.ProcessRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.now()
	full := forceFull || len(m.procs) == 0 ||
		m.policy.NeedsFullUpdate(m.cache.Pids(), pidSet(m.procs), start, m.lastFull)

	if full {
		m.fullRefresh(ctx)
		m.log.WithField("took", m.now().Sub(start)).Debug("full refresh")
	} else {
		m.quickRefresh(ctx)
		m.log.WithField("took", m.now().Sub(start)).Debug("quick refresh")
	}

	return m.snapshotLocked()
}

// Records returns a copy of the current record list without refreshing.
func (m *Manager) Records() []types.ProcessRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Terminate issues a termination request for the PID. Failures are returned
// with their cause; there is no retry and no escalation to a forceful kill.
func (m *Manager) Terminate(ctx context.Context, pid int32) error {
	if err := m.intr.Terminate(ctx, pid); err != nil {
		return fmt.Errorf("terminating pid %d: %w", pid, err)
	}
	return nil
}

// Detail reads the full attribute set for one PID, bypassing the cache.
func (m *Manager) Detail(ctx context.Context, pid int32) (types.ProcessDetail, error) {
	return m.intr.Detail(ctx, pid)
}

// fullRefresh re-enumerates everything. The bulk backend goes first; once it
// fails or returns nothing it is abandoned for the rest of the run and the
// introspection backend enumerates alone.
func (m *Manager) fullRefresh(ctx context.Context) {
	if m.bulk != nil && !m.bulkBroken {
		rows, err := m.bulk.Snapshot(ctx)
		switch {
		case err != nil:
			m.bulkBroken = true
			m.log.WithError(err).Warn("bulk backend failed, introspection-only from now on")
		case len(rows) == 0:
			m.bulkBroken = true
			m.log.Warn("bulk backend returned no data, introspection-only from now on")
		default:
			m.commit(m.enrich(ctx, rows))
			return
		}
	}

	records, err := m.intr.Enumerate(ctx)
	if err != nil {
		// Keep serving the previous generation rather than blanking the view.
		m.log.WithError(err).Error("process enumeration failed")
		return
	}
	m.commit(records)
}

// enrich layers per-PID introspection data over bulk rows. A row whose
// process vanished or denied access keeps the documented defaults instead of
// failing the whole refresh.
func (m *Manager) enrich(ctx context.Context, rows []types.BulkRow) []types.ProcessRecord {
	records := make([]types.ProcessRecord, 0, len(rows))
	for _, row := range rows {
		rec := types.ProcessRecord{
			Pid:      row.Pid,
			Name:     row.Name,
			MemoryKB: row.MemoryKB,
			Status:   defaultStatus,
		}
		if enr, err := m.intr.Enrich(ctx, row.Pid); err == nil {
			rec.CPUPercent = enr.CPUPercent
			rec.Status = enr.Status
			rec.User = enr.User
			rec.CreateTime = enr.CreateTime
			rec.Fields |= types.FieldCPU | types.FieldStatus | types.FieldUser | types.FieldCreateTime
		}
		records = append(records, rec)
	}
	return records
}

// quickRefresh re-reads dynamic fields for the records already held. It never
// discovers new processes and never drops exited ones; a PID that fails to
// answer keeps last poll's values.
func (m *Manager) quickRefresh(ctx context.Context) {
	for i := range m.procs {
		sample, err := m.intr.Dynamic(ctx, m.procs[i].Pid)
		if err != nil {
			continue
		}
		m.procs[i].MemoryKB = sample.MemoryKB
		m.procs[i].CPUPercent = sample.CPUPercent
		m.procs[i].Status = sample.Status
		m.procs[i].Fields |= types.FieldCPU | types.FieldStatus
		if sample.NumThreads > 0 {
			m.procs[i].NumThreads = sample.NumThreads
			m.procs[i].Fields |= types.FieldThreads
		}
	}
}

// commit runs a full enumeration result through the cache and marks the
// generation as the new full-refresh baseline.
func (m *Manager) commit(records []types.ProcessRecord) {
	m.procs = m.cache.Update(records)
	m.lastFull = m.cache.LastUpdate()
}

func (m *Manager) snapshotLocked() []types.ProcessRecord {
	out := make([]types.ProcessRecord, len(m.procs))
	copy(out, m.procs)
	return out
}

func pidSet(records []types.ProcessRecord) map[int32]struct{} {
	pids := make(map[int32]struct{}, len(records))
	for _, rec := range records {
		pids[rec.Pid] = struct{}{}
	}
	return pids
}
