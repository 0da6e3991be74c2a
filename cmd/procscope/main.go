package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/procscope/procscope/pkg/config"
	"github.com/procscope/procscope/pkg/proccache"
	"github.com/procscope/procscope/pkg/report"
	"github.com/procscope/procscope/pkg/snapshot"
	"github.com/procscope/procscope/pkg/sysstats"
	"github.com/procscope/procscope/pkg/types"
	"github.com/procscope/procscope/pkg/ui"
)

const sparkWidth = 30

// oneShot holds the flags that run a single query and exit instead of
// starting the live view.
type oneShot struct {
	killPid   int32
	detailPid int32
}

func parseConfig(logger *logrus.Logger) (config.Config, oneShot) {
	cfgPath := flag.String("config", "", "optional YAML config file")
	interval := flag.Duration("interval", 0, "polling interval (e.g. 2s)")
	topK := flag.Int("topk", 0, "number of process rows to display")
	match := flag.String("match", "", "substring filter over pid, name, and user")
	filterExpr := flag.String("filter", "", "expression filter, e.g. 'memoryKB > 10000 && cpu > 1.0'")
	sortCol := flag.String("sort", "", "sort column: pid, name, memory, cpu, status, user")
	sortAsc := flag.Bool("asc", false, "sort ascending instead of descending")
	kill := flag.Int("kill", 0, "terminate the given PID and exit")
	detail := flag.Int("detail", 0, "print the full attribute set for the given PID and exit")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}
	if *interval > 0 {
		cfg.Interval = config.Duration(*interval)
	}
	if *topK > 0 {
		cfg.TopK = *topK
	}
	if *match != "" {
		cfg.Match = *match
	}
	if *filterExpr != "" {
		cfg.Filter = *filterExpr
	}
	if *sortCol != "" {
		cfg.Sort = *sortCol
	}
	if *sortAsc {
		cfg.SortDesc = false
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	return cfg, oneShot{killPid: int32(*kill), detailPid: int32(*detail)}
}

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	cfg, ops := parseConfig(logger)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	filter, err := report.NewFilter(cfg.Match, cfg.Filter)
	if err != nil {
		logger.Fatalf("invalid filter: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bulk proccache.BulkSource
	if native, err := snapshot.NewNative(); err != nil {
		logger.Warnf("native enumeration unavailable: %v", err)
	} else {
		bulk = native
	}
	intr := snapshot.NewIntrospector()
	cache := proccache.NewCache(cfg.CacheCapacity, cfg.StalenessWindow.Std())
	policy := proccache.RefreshPolicy{
		ChurnThreshold: cfg.ChurnThreshold,
		MaxQuickAge:    cfg.FullInterval.Std(),
	}
	manager := proccache.NewManager(bulk, intr, cache, policy, logger)

	if ops.killPid > 0 {
		if err := manager.Terminate(ctx, ops.killPid); err != nil {
			logger.Fatalf("%v", err)
		}
		logger.Infof("termination requested for pid %d", ops.killPid)
		return
	}
	if ops.detailPid > 0 {
		det, err := manager.Detail(ctx, ops.detailPid)
		if err != nil {
			logger.Fatalf("reading details for pid %d: %v", ops.detailPid, err)
		}
		printDetail(det)
		return
	}

	sampler := sysstats.NewSampler(cfg.DiskPath)

	restoreTerminal := ui.EnterAltScreen()
	defer restoreTerminal()

	poller := proccache.NewPoller(manager, cfg.Interval.Std(), logger)
	go poller.Run(ctx)

	statsTicker := time.NewTicker(cfg.StatsInterval.Std())
	defer statsTicker.Stop()

	v := view{
		filter:     filter,
		sortKey:    report.SortKey(cfg.Sort),
		descending: cfg.SortDesc,
		topK:       cfg.TopK,
		interval:   cfg.Interval.Std(),
	}
	var latest []types.ProcessRecord
	var stats sysstats.Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case records := <-poller.Updates():
			latest = records
			v.render(latest, stats, sampler)
		case <-statsTicker.C:
			snap, err := sampler.Collect(ctx)
			if err != nil {
				logger.Debugf("sampling system stats: %v", err)
				continue
			}
			stats = snap
			v.render(latest, stats, sampler)
		}
	}
}

func printDetail(det types.ProcessDetail) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "PID:\t%d\n", det.Pid)
	fmt.Fprintf(tw, "Name:\t%s\n", det.Name)
	user := det.User
	if user == "" {
		user = "N/A"
	}
	fmt.Fprintf(tw, "User:\t%s\n", user)
	fmt.Fprintf(tw, "Status:\t%s\n", det.Status)
	fmt.Fprintf(tw, "Executable:\t%s\n", det.Exe)
	fmt.Fprintf(tw, "Working dir:\t%s\n", det.Cwd)
	if det.Fields.Has(types.FieldCreateTime) {
		fmt.Fprintf(tw, "Started:\t%s\n", time.UnixMilli(det.CreateTime).Format(time.RFC3339))
	}
	fmt.Fprintf(tw, "Threads:\t%d\n", det.NumThreads)
	fmt.Fprintf(tw, "CPU:\t%.1f%%\n", det.CPUPercent)
	fmt.Fprintf(tw, "Resident:\t%s\n", humanize.IBytes(det.MemoryKB*1024))
	fmt.Fprintf(tw, "Virtual:\t%s\n", humanize.IBytes(det.VirtualKB*1024))
	fmt.Fprintf(tw, "Open files:\t%d\n", det.OpenFiles)
	fmt.Fprintf(tw, "Connections:\t%d\n", det.Connections)
	tw.Flush()
}

type view struct {
	filter     *report.Filter
	sortKey    report.SortKey
	descending bool
	topK       int
	interval   time.Duration
}

func (v view) render(records []types.ProcessRecord, stats sysstats.Snapshot, sampler *sysstats.Sampler) {
	var buf bytes.Buffer
	buf.WriteString(ui.Banner())
	fmt.Fprintf(&buf, "procscope (press Ctrl+C to exit)\n")
	fmt.Fprintf(&buf, "Updated: %s | Interval: %v\n\n", time.Now().Format(time.RFC3339), v.interval)

	if stats.MemTotal > 0 {
		fmt.Fprintf(&buf, "CPU:  %5.1f%%  %s\n", stats.CPUPercent, ui.Sparkline(sampler.CPUHistory(), sparkWidth))
		fmt.Fprintf(&buf, "Mem:  %5.1f%%  %s  %s / %s\n",
			stats.MemPercent, ui.Sparkline(sampler.MemHistory(), sparkWidth),
			humanize.IBytes(stats.MemUsed), humanize.IBytes(stats.MemTotal))
		fmt.Fprintf(&buf, "Disk: %s / %s | Net: up %s down %s\n\n",
			humanize.IBytes(stats.DiskUsed), humanize.IBytes(stats.DiskTotal),
			humanize.IBytes(stats.NetSent), humanize.IBytes(stats.NetRecv))
	}

	filtered := v.filter.Apply(records)
	report.Sort(filtered, v.sortKey, v.descending)
	rows := report.BuildRows(filtered, v.topK)

	fmt.Fprintf(&buf, "[%d of %d processes, top %d by %s]\n", len(filtered), len(records), v.topK, v.sortKey)
	if len(rows) == 0 {
		fmt.Fprintln(&buf, "No processes matched current filters")
	} else {
		tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PID\tNAME\tMEMORY\tCPU(%)\tSTATUS\tUSER")
		for _, row := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", row.Pid, row.Name, row.Memory, row.CPU, row.Status, row.User)
		}
		tw.Flush()
	}

	ui.ClearScreen()
	fmt.Print(buf.String())
}
