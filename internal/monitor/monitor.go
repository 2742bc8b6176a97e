// Package monitor is the in-memory job registry the scheduler consults and
// updates: id -> kind/status/progress/error. Kept as a pure data sink here
// since the HTTP status-surface itself is out of the core's scope
// (generalized from the teacher's internal/api/handler/queue_handler.go
// status shape, which serves the same data over gin). Also samples system
// resource pressure via gopsutil as an optional advisory signal the
// scheduler may consult before starting an expensive transcode
// (SPEC_FULL.md §4.8 dropped-feature supplement, generalized from
// internal/utils/memory/memory_monitor.go's available-memory check).
package monitor

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
)

// JobRecord is one entry in the registry.
type JobRecord struct {
	ID       string
	Kind     string
	Status   Status
	Progress float64 // 0..1, best-effort
	Err      string  // "" unless Status == StatusFailed
	StartedAt time.Time
	EndedAt  time.Time
}

// Monitor is the job registry. Safe for concurrent use; the scheduler is
// its only writer but reads may come from an eventual status surface.
type Monitor struct {
	mu   sync.RWMutex
	jobs map[string]JobRecord
}

func New() *Monitor {
	return &Monitor{jobs: make(map[string]JobRecord)}
}

// Register records a newly-dispatched job (scheduler's
// JobRegisteredWithMonitor event, spec.md §4.6).
func (m *Monitor) Register(id, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id] = JobRecord{ID: id, Kind: kind, Status: StatusRunning, StartedAt: time.Now()}
}

// Progress updates a running job's best-effort completion fraction.
func (m *Monitor) Progress(id string, frac float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return
	}
	j.Progress = frac
	m.jobs[id] = j
}

// Complete marks id finished successfully.
func (m *Monitor) Complete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return
	}
	j.Status, j.EndedAt, j.Progress = StatusComplete, time.Now(), 1
	m.jobs[id] = j
}

// Fail marks id finished with err.
func (m *Monitor) Fail(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return
	}
	j.Status, j.EndedAt = StatusFailed, time.Now()
	if err != nil {
		j.Err = err.Error()
	}
	m.jobs[id] = j
}

// Remove drops id from the registry, e.g. once the scheduler has finished
// reacting to its completion and no caller needs the record any longer.
func (m *Monitor) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// Get returns id's current record, if present.
func (m *Monitor) Get(id string) (JobRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	return j, ok
}

// RunningOfKind reports whether any job of kind is currently running
// (scheduler's "at most one job of a given kind in flight" invariant,
// spec.md §4.6).
func (m *Monitor) RunningOfKind(kind string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.jobs {
		if j.Kind == kind && j.Status == StatusRunning {
			return true
		}
	}
	return false
}

// SystemPressure is an advisory resource-headroom gauge: high CPU or memory
// pressure is a hint, not a hard gate (SPEC_FULL.md §4.8 deliberately keeps
// this optional to avoid scope creep into a full resource scheduler).
type SystemPressure struct {
	MemoryUsedPercent float64
	CPUUsedPercent    float64
}

// ReadSystemPressure samples current memory and CPU usage. Errors from
// either gopsutil call are swallowed and reported as zero pressure - this
// signal is advisory, and a monitoring hiccup must never block dispatch.
func ReadSystemPressure() SystemPressure {
	var p SystemPressure
	if vm, err := mem.VirtualMemory(); err == nil {
		p.MemoryUsedPercent = vm.UsedPercent
	}
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		p.CPUUsedPercent = pcts[0]
	}
	return p
}
