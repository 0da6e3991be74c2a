package types

// DefaultTopK controls how many process rows the terminal view shows.
const DefaultTopK = 20

// FieldSet marks which optional attributes a backend actually populated,
// so "absent" is distinguishable from a zero value.
type FieldSet uint16

const (
	FieldCPU FieldSet = 1 << iota
	FieldStatus
	FieldUser
	FieldExe
	FieldCwd
	FieldCreateTime
	FieldThreads
)

// StaticFields covers the optional attributes assumed immutable for one
// process instance.
const StaticFields = FieldUser | FieldExe | FieldCwd | FieldCreateTime

// Has reports whether every field in f is populated.
func (fs FieldSet) Has(f FieldSet) bool { return fs&f == f }

// ProcessRecord is the unit of cached per-process information.
//
// Name, User, Exe, Cwd and CreateTime are static: they do not change for
// the lifetime of one process instance and may be carried forward from a
// previous cache generation. MemoryKB, CPUPercent, Status and NumThreads
// are dynamic and re-read on every poll.
type ProcessRecord struct {
	Pid        int32
	Name       string
	User       string
	Exe        string
	Cwd        string
	CreateTime int64 // milliseconds since epoch, 0 when unknown

	MemoryKB   uint64
	CPUPercent float64
	Status     string
	NumThreads int32

	Fields FieldSet
}

// CopyStaticFrom overwrites the static attributes with the values held for a
// previous observation of the same process instance. Name is always carried;
// the optional attributes only when the previous record populated them.
func (r *ProcessRecord) CopyStaticFrom(prev ProcessRecord) {
	r.Name = prev.Name
	if prev.Fields.Has(FieldUser) {
		r.User = prev.User
	}
	if prev.Fields.Has(FieldExe) {
		r.Exe = prev.Exe
	}
	if prev.Fields.Has(FieldCwd) {
		r.Cwd = prev.Cwd
	}
	if prev.Fields.Has(FieldCreateTime) {
		r.CreateTime = prev.CreateTime
	}
	r.Fields |= prev.Fields & StaticFields
}

// BulkRow is the coarse entry produced by the native bulk backend.
type BulkRow struct {
	Pid      int32
	Name     string
	MemoryKB uint64
}

// DynamicSample carries the attributes a quick refresh re-reads per PID.
type DynamicSample struct {
	MemoryKB   uint64
	CPUPercent float64
	Status     string
	NumThreads int32
}

// Enrichment carries the fields layered onto bulk rows during a full
// refresh. CreateTime rides along as the process-instance identity check.
type Enrichment struct {
	CPUPercent float64
	Status     string
	User       string
	CreateTime int64
}

// ProcessDetail extends a record with the expensive fields shown only in the
// per-process detail view.
type ProcessDetail struct {
	ProcessRecord
	VirtualKB   uint64
	OpenFiles   int
	Connections int
}
