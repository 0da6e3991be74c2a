package sysstats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	gnet "github.com/shirou/gopsutil/v4/net"
)

func stubAll(t *testing.T) {
	t.Cleanup(func() {
		cpuPercent = cpu.PercentWithContext
		virtualMemory = mem.VirtualMemoryWithContext
		diskUsage = disk.UsageWithContext
		netIOCounters = gnet.IOCountersWithContext
	})
}

func TestCollectAggregates(t *testing.T) {
	stubAll(t)
	cpuPercent = func(context.Context, time.Duration, bool) ([]float64, error) {
		return []float64{37.5}, nil
	}
	virtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 8 << 30, Used: 2 << 30, UsedPercent: 25}, nil
	}
	diskUsage = func(_ context.Context, path string) (*disk.UsageStat, error) {
		if path != "/data" {
			t.Fatalf("unexpected disk path %q", path)
		}
		return &disk.UsageStat{Total: 100 << 30, Used: 40 << 30}, nil
	}
	netIOCounters = func(context.Context, bool) ([]gnet.IOCountersStat, error) {
		return []gnet.IOCountersStat{{BytesSent: 111, BytesRecv: 222}}, nil
	}

	s := NewSampler("/data")
	snap, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CPUPercent != 37.5 || snap.MemPercent != 25 {
		t.Fatalf("unexpected cpu/mem: %+v", snap)
	}
	if snap.DiskUsed != 40<<30 || snap.NetRecv != 222 {
		t.Fatalf("unexpected disk/net: %+v", snap)
	}
	if len(s.CPUHistory()) != 1 || s.CPUHistory()[0] != 37.5 {
		t.Fatalf("cpu history not recorded: %v", s.CPUHistory())
	}
	if got := s.MemHistory()[0]; got != 2048 {
		t.Fatalf("mem history should be in MB, got %v", got)
	}
}

func TestCollectDegradesDiskAndNet(t *testing.T) {
	stubAll(t)
	cpuPercent = func(context.Context, time.Duration, bool) ([]float64, error) {
		return []float64{1}, nil
	}
	virtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 1, Used: 1}, nil
	}
	diskUsage = func(context.Context, string) (*disk.UsageStat, error) {
		return nil, errors.New("no such filesystem")
	}
	netIOCounters = func(context.Context, bool) ([]gnet.IOCountersStat, error) {
		return nil, errors.New("no counters")
	}

	snap, err := NewSampler("").Collect(context.Background())
	if err != nil {
		t.Fatalf("disk/net failures must not fail the sample: %v", err)
	}
	if snap.DiskTotal != 0 || snap.NetSent != 0 {
		t.Fatalf("expected zeroed disk/net, got %+v", snap)
	}
}

func TestHistoryBounded(t *testing.T) {
	stubAll(t)
	cpuPercent = func(context.Context, time.Duration, bool) ([]float64, error) {
		return []float64{5}, nil
	}
	virtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{}, nil
	}
	diskUsage = func(context.Context, string) (*disk.UsageStat, error) {
		return nil, errors.New("skip")
	}
	netIOCounters = func(context.Context, bool) ([]gnet.IOCountersStat, error) {
		return nil, errors.New("skip")
	}

	s := NewSampler("")
	for i := 0; i < HistoryLen+10; i++ {
		if _, err := s.Collect(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(s.CPUHistory()) != HistoryLen || len(s.MemHistory()) != HistoryLen {
		t.Fatalf("history must stay bounded, got %d/%d", len(s.CPUHistory()), len(s.MemHistory()))
	}
}
