package report

import (
	"testing"

	"github.com/procscope/procscope/pkg/types"
)

func sampleRecords() []types.ProcessRecord {
	return []types.ProcessRecord{
		{Pid: 1, Name: "systemd", User: "root", Status: "sleep", MemoryKB: 10240, CPUPercent: 0.1},
		{Pid: 420, Name: "chrome", User: "alice", Status: "running", MemoryKB: 524288, CPUPercent: 42.0},
		{Pid: 421, Name: "chrome-renderer", User: "alice", Status: "running", MemoryKB: 262144, CPUPercent: 12.0},
		{Pid: 999, Name: "sshd", User: "root", Status: "sleep", MemoryKB: 2048, CPUPercent: 0.0},
	}
}

func TestFilterSubstring(t *testing.T) {
	cases := []struct {
		name      string
		substring string
		wantPids  []int32
	}{
		{"byName", "chrome", []int32{420, 421}},
		{"byUser", "ALICE", []int32{420, 421}},
		{"byPid", "99", []int32{999}},
		{"noMatch", "zzz", nil},
		{"empty", "", []int32{1, 420, 421, 999}},
	}
	for _, tc := range cases {
		f, err := NewFilter(tc.substring, "")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		got := f.Apply(sampleRecords())
		if len(got) != len(tc.wantPids) {
			t.Fatalf("%s: expected %d records, got %d", tc.name, len(tc.wantPids), len(got))
		}
		for i, pid := range tc.wantPids {
			if got[i].Pid != pid {
				t.Fatalf("%s: expected pid %d at %d, got %d", tc.name, pid, i, got[i].Pid)
			}
		}
	}
}

func TestFilterExpression(t *testing.T) {
	f, err := NewFilter("", `memoryKB > 100000 && user == "alice"`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	got := f.Apply(sampleRecords())
	if len(got) != 2 || got[0].Pid != 420 || got[1].Pid != 421 {
		t.Fatalf("expression filter wrong result: %+v", got)
	}
}

func TestFilterExpressionAndSubstringCombine(t *testing.T) {
	f, err := NewFilter("chrome", `cpu > 20.0`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	got := f.Apply(sampleRecords())
	if len(got) != 1 || got[0].Pid != 420 {
		t.Fatalf("combined filters wrong result: %+v", got)
	}
}

func TestFilterRejectsBadExpression(t *testing.T) {
	if _, err := NewFilter("", "memoryKB >"); err == nil {
		t.Fatalf("malformed expression must fail at construction")
	}
	if _, err := NewFilter("", "name"); err == nil {
		t.Fatalf("non-boolean expression must fail at construction")
	}
}

func TestSortColumns(t *testing.T) {
	records := sampleRecords()
	Sort(records, SortMemory, true)
	if records[0].Pid != 420 || records[3].Pid != 999 {
		t.Fatalf("memory sort descending wrong: %+v", records)
	}

	Sort(records, SortName, false)
	if records[0].Name != "chrome" || records[3].Name != "systemd" {
		t.Fatalf("name sort ascending wrong: %+v", records)
	}

	before := append([]types.ProcessRecord(nil), records...)
	Sort(records, SortKey("bogus"), false)
	for i := range records {
		if records[i].Pid != before[i].Pid {
			t.Fatalf("unknown sort key must not reorder")
		}
	}
}

func TestBuildRows(t *testing.T) {
	records := []types.ProcessRecord{
		{Pid: 7, Name: "svc", MemoryKB: 1024, CPUPercent: 3.14159, Status: "running"},
		{Pid: 8, Name: "other", User: "bob", MemoryKB: 2048, Status: "sleep"},
	}
	rows := BuildRows(records, 0)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].User != "N/A" {
		t.Fatalf("empty user must render as N/A, got %q", rows[0].User)
	}
	if rows[0].Memory != "1.0 MiB" {
		t.Fatalf("unexpected memory formatting: %q", rows[0].Memory)
	}
	if rows[0].CPU != "3.1" {
		t.Fatalf("unexpected cpu formatting: %q", rows[0].CPU)
	}

	if got := BuildRows(records, 1); len(got) != 1 || got[0].Pid != 7 {
		t.Fatalf("topK truncation wrong: %+v", got)
	}
}
