// Package report turns process records into the filtered, sorted rows the
// terminal view renders. It is purely a consumer of the cache engine.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/procscope/procscope/pkg/types"
)

// Row is one rendered table line.
type Row struct {
	Pid    int32
	Name   string
	Memory string
	CPU    string
	Status string
	User   string
}

// Filter narrows the record list. Substring matches PID, name, or user
// case-insensitively (the classic filter box); Expression is an optional
// expr program evaluated per record.
type Filter struct {
	substring string
	program   *vm.Program
}

// exprScaffold is the environment the expression is type-checked against.
var exprScaffold = map[string]interface{}{
	"pid":      0,
	"name":     "",
	"user":     "",
	"status":   "",
	"memoryKB": uint64(0),
	"cpu":      0.0,
	"threads":  0,
}

// NewFilter compiles the optional expression up front so a bad filter fails
// at startup, not per tick. Both arguments may be empty.
func NewFilter(substring, expression string) (*Filter, error) {
	f := &Filter{substring: strings.ToLower(strings.TrimSpace(substring))}
	if expression = strings.TrimSpace(expression); expression != "" {
		program, err := expr.Compile(expression, expr.Env(exprScaffold), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compiling filter expression: %w", err)
		}
		f.program = program
	}
	return f, nil
}

// Apply returns the records passing both filters, preserving order.
func (f *Filter) Apply(records []types.ProcessRecord) []types.ProcessRecord {
	if f == nil || (f.substring == "" && f.program == nil) {
		return records
	}
	kept := make([]types.ProcessRecord, 0, len(records))
	for _, rec := range records {
		if f.matches(rec) {
			kept = append(kept, rec)
		}
	}
	return kept
}

func (f *Filter) matches(rec types.ProcessRecord) bool {
	if f.substring != "" {
		pid := strconv.FormatInt(int64(rec.Pid), 10)
		if !strings.Contains(pid, f.substring) &&
			!strings.Contains(strings.ToLower(rec.Name), f.substring) &&
			!strings.Contains(strings.ToLower(rec.User), f.substring) {
			return false
		}
	}
	if f.program != nil {
		out, err := expr.Run(f.program, map[string]interface{}{
			"pid":      int(rec.Pid),
			"name":     rec.Name,
			"user":     rec.User,
			"status":   rec.Status,
			"memoryKB": rec.MemoryKB,
			"cpu":      rec.CPUPercent,
			"threads":  int(rec.NumThreads),
		})
		if err != nil {
			return false
		}
		keep, ok := out.(bool)
		return ok && keep
	}
	return true
}

// SortKey names a sortable column.
type SortKey string

const (
	SortPid    SortKey = "pid"
	SortName   SortKey = "name"
	SortMemory SortKey = "memory"
	SortCPU    SortKey = "cpu"
	SortStatus SortKey = "status"
	SortUser   SortKey = "user"
)

// Sort orders records by the given column in place. An unknown key leaves
// the enumeration order untouched.
func Sort(records []types.ProcessRecord, key SortKey, descending bool) {
	var less func(a, b types.ProcessRecord) bool
	switch key {
	case SortPid:
		less = func(a, b types.ProcessRecord) bool { return a.Pid < b.Pid }
	case SortName:
		less = func(a, b types.ProcessRecord) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case SortMemory:
		less = func(a, b types.ProcessRecord) bool { return a.MemoryKB < b.MemoryKB }
	case SortCPU:
		less = func(a, b types.ProcessRecord) bool { return a.CPUPercent < b.CPUPercent }
	case SortStatus:
		less = func(a, b types.ProcessRecord) bool { return a.Status < b.Status }
	case SortUser:
		less = func(a, b types.ProcessRecord) bool { return a.User < b.User }
	default:
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		if descending {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}

// BuildRows formats records for the table, truncated to topK when positive.
func BuildRows(records []types.ProcessRecord, topK int) []Row {
	if topK > 0 && len(records) > topK {
		records = records[:topK]
	}
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		user := rec.User
		if user == "" {
			user = "N/A"
		}
		rows = append(rows, Row{
			Pid:    rec.Pid,
			Name:   rec.Name,
			Memory: humanize.IBytes(rec.MemoryKB * 1024),
			CPU:    fmt.Sprintf("%.1f", rec.CPUPercent),
			Status: rec.Status,
			User:   user,
		})
	}
	return rows
}
