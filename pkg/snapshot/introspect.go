package snapshot

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/procscope/procscope/pkg/types"
)

// Introspector answers per-PID queries and full enumerations through
// gopsutil. It is stateless; every call hits the OS.
type Introspector struct{}

// NewIntrospector returns the gopsutil-backed introspection backend.
func NewIntrospector() *Introspector {
	return &Introspector{}
}

// open resolves a PID or reports ErrVanished.
func (in *Introspector) open(ctx context.Context, pid int32) (*process.Process, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, classify(err)
	}
	return proc, nil
}

// Dynamic re-reads the per-poll attributes for one PID. Memory is the one
// mandatory field: if it cannot be read the whole sample is rejected so a
// quick refresh leaves the record untouched.
func (in *Introspector) Dynamic(ctx context.Context, pid int32) (types.DynamicSample, error) {
	var sample types.DynamicSample

	proc, err := in.open(ctx, pid)
	if err != nil {
		return sample, err
	}

	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return sample, classify(err)
	}
	sample.MemoryKB = mem.RSS / 1024

	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		sample.CPUPercent = cpu
	}
	sample.Status = statusString(ctx, proc)
	if threads, err := proc.NumThreadsWithContext(ctx); err == nil {
		sample.NumThreads = threads
	}
	return sample, nil
}

// Enrich reads the fields layered onto a bulk row during a full refresh.
func (in *Introspector) Enrich(ctx context.Context, pid int32) (types.Enrichment, error) {
	var enr types.Enrichment

	proc, err := in.open(ctx, pid)
	if err != nil {
		return enr, err
	}

	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		enr.CPUPercent = cpu
	}
	enr.Status = statusString(ctx, proc)
	if user, err := proc.UsernameWithContext(ctx); err == nil {
		enr.User = user
	}
	if created, err := proc.CreateTimeWithContext(ctx); err == nil {
		enr.CreateTime = created
	}
	return enr, nil
}

// Enumerate lists every visible process in one pass, reading the same field
// set the bulk backend plus enrichment would have produced. Processes that
// vanish or deny access mid-pass are skipped.
func (in *Introspector) Enumerate(ctx context.Context) ([]types.ProcessRecord, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, classify(err)
	}

	records := make([]types.ProcessRecord, 0, len(procs))
	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		rec := types.ProcessRecord{
			Pid:    proc.Pid,
			Name:   name,
			Status: process.Running,
		}
		if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
			rec.MemoryKB = mem.RSS / 1024
		}
		if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
			rec.CPUPercent = cpu
			rec.Fields |= types.FieldCPU
		}
		rec.Status = statusString(ctx, proc)
		rec.Fields |= types.FieldStatus
		if user, err := proc.UsernameWithContext(ctx); err == nil {
			rec.User = user
			rec.Fields |= types.FieldUser
		}
		if created, err := proc.CreateTimeWithContext(ctx); err == nil {
			rec.CreateTime = created
			rec.Fields |= types.FieldCreateTime
		}
		records = append(records, rec)
	}
	return records, nil
}

// Detail reads the full attribute set for the per-process detail view,
// including the fields too expensive for the polling paths.
func (in *Introspector) Detail(ctx context.Context, pid int32) (types.ProcessDetail, error) {
	var det types.ProcessDetail
	det.Pid = pid

	proc, err := in.open(ctx, pid)
	if err != nil {
		return det, err
	}

	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return det, classify(err)
	}
	det.Name = name
	det.Status = statusString(ctx, proc)
	det.Fields |= types.FieldStatus

	if user, err := proc.UsernameWithContext(ctx); err == nil {
		det.User = user
		det.Fields |= types.FieldUser
	}
	if exe, err := proc.ExeWithContext(ctx); err == nil {
		det.Exe = exe
		det.Fields |= types.FieldExe
	}
	if cwd, err := proc.CwdWithContext(ctx); err == nil {
		det.Cwd = cwd
		det.Fields |= types.FieldCwd
	}
	if created, err := proc.CreateTimeWithContext(ctx); err == nil {
		det.CreateTime = created
		det.Fields |= types.FieldCreateTime
	}
	if threads, err := proc.NumThreadsWithContext(ctx); err == nil {
		det.NumThreads = threads
		det.Fields |= types.FieldThreads
	}
	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		det.CPUPercent = cpu
		det.Fields |= types.FieldCPU
	}
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
		det.MemoryKB = mem.RSS / 1024
		det.VirtualKB = mem.VMS / 1024
	}
	if files, err := proc.OpenFilesWithContext(ctx); err == nil {
		det.OpenFiles = len(files)
	}
	if conns, err := proc.ConnectionsWithContext(ctx); err == nil {
		det.Connections = len(conns)
	}
	return det, nil
}

// Terminate asks the process to exit (SIGTERM semantics). The failure is
// returned as-is; escalation to a forceful kill is the caller's call.
func (in *Introspector) Terminate(ctx context.Context, pid int32) error {
	proc, err := in.open(ctx, pid)
	if err != nil {
		return err
	}
	if err := proc.TerminateWithContext(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// statusString flattens gopsutil's status list to the single label the
// record model carries, defaulting to running when unreadable.
func statusString(ctx context.Context, proc *process.Process) string {
	statuses, err := proc.StatusWithContext(ctx)
	if err != nil || len(statuses) == 0 {
		return process.Running
	}
	return statuses[0]
}
