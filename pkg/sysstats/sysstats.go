// Package sysstats samples host-wide CPU, memory, disk, and network usage on
// its own cadence, independent of the per-process cache.
package sysstats

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	gnet "github.com/shirou/gopsutil/v4/net"
)

// HistoryLen bounds the CPU and memory history rings used for sparklines.
const HistoryLen = 60

// Stub points so tests can run without touching the host.
var (
	cpuPercent    = cpu.PercentWithContext
	virtualMemory = mem.VirtualMemoryWithContext
	diskUsage     = disk.UsageWithContext
	netIOCounters = gnet.IOCountersWithContext
)

// Snapshot is one aggregate sample.
type Snapshot struct {
	CPUPercent float64
	MemUsed    uint64
	MemTotal   uint64
	MemPercent float64
	DiskUsed   uint64
	DiskTotal  uint64
	NetSent    uint64
	NetRecv    uint64
}

// Sampler collects snapshots and keeps bounded histories for charting.
type Sampler struct {
	diskPath   string
	cpuHistory []float64
	memHistory []float64
}

// NewSampler returns a sampler reporting disk usage for diskPath
// (defaulting to the root filesystem).
func NewSampler(diskPath string) *Sampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Sampler{diskPath: diskPath}
}

// Collect takes one aggregate sample and appends it to the histories.
// CPU and memory are mandatory; disk and network failures degrade to zeros.
func (s *Sampler) Collect(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	percents, err := cpuPercent(ctx, 0, false)
	if err != nil {
		return snap, fmt.Errorf("sampling cpu: %w", err)
	}
	if len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	vm, err := virtualMemory(ctx)
	if err != nil {
		return snap, fmt.Errorf("sampling memory: %w", err)
	}
	snap.MemUsed = vm.Used
	snap.MemTotal = vm.Total
	snap.MemPercent = vm.UsedPercent

	if usage, err := diskUsage(ctx, s.diskPath); err == nil {
		snap.DiskUsed = usage.Used
		snap.DiskTotal = usage.Total
	}
	if counters, err := netIOCounters(ctx, false); err == nil && len(counters) > 0 {
		snap.NetSent = counters[0].BytesSent
		snap.NetRecv = counters[0].BytesRecv
	}

	s.cpuHistory = push(s.cpuHistory, snap.CPUPercent)
	s.memHistory = push(s.memHistory, float64(snap.MemUsed)/(1024*1024))
	return snap, nil
}

// CPUHistory returns up to HistoryLen recent CPU percentages, oldest first.
func (s *Sampler) CPUHistory() []float64 {
	return append([]float64(nil), s.cpuHistory...)
}

// MemHistory returns up to HistoryLen recent used-memory values in MB.
func (s *Sampler) MemHistory() []float64 {
	return append([]float64(nil), s.memHistory...)
}

func push(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > HistoryLen {
		history = history[len(history)-HistoryLen:]
	}
	return history
}
