package monitoring

import (
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"gonum.org/v1/gonum/stat"
)

// Milestone labels for the four sampling points of a run. No sampling occurs
// between milestones; this is point sampling, not background monitoring.
const (
	MilestoneStart      = "experiment_start"
	MilestoneProcessing = "processing_complete"
	MilestoneAnalysis   = "analysis_complete"
	MilestoneReports    = "report_complete"
)

// MemorySnapshot is one labeled point-in-time memory sample.
type MemorySnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	Label       string    `json:"label"`
	UsedGB      float64   `json:"used_gb"`
	AvailableGB float64   `json:"available_gb"`
	PercentUsed float64   `json:"percent_used"`
}

// MemoryReport aggregates the snapshots of one run.
type MemoryReport struct {
	Snapshots     []MemorySnapshot `json:"snapshots"`
	PeakUsage     MemorySnapshot   `json:"peak_usage"`
	MinimumUsage  MemorySnapshot   `json:"minimum_usage"`
	MemoryDeltaGB float64          `json:"memory_delta_gb"`
	AverageUsedGB float64          `json:"average_used_gb"`
}

// MemoryMonitor records labeled memory snapshots at pipeline milestones.
type MemoryMonitor struct {
	snapshots []MemorySnapshot
	sample    func() (*mem.VirtualMemoryStat, error)
	now       func() time.Time
}

// NewMemoryMonitor creates a monitor sampling real system memory.
func NewMemoryMonitor() *MemoryMonitor {
	return &MemoryMonitor{
		sample: mem.VirtualMemory,
		now:    time.Now,
	}
}

const bytesPerGB = 1024 * 1024 * 1024

// TakeSnapshot records one labeled sample. Sampling failures are logged and
// skipped; a run never fails because memory could not be read.
func (m *MemoryMonitor) TakeSnapshot(label string) {
	vm, err := m.sample()
	if err != nil {
		Logf("monitoring: memory snapshot %q failed: %v", label, err)
		return
	}

	m.snapshots = append(m.snapshots, MemorySnapshot{
		Timestamp:   m.now(),
		Label:       label,
		UsedGB:      round3(float64(vm.Used) / bytesPerGB),
		AvailableGB: round3(float64(vm.Available) / bytesPerGB),
		PercentUsed: vm.UsedPercent,
	})
}

// Report aggregates the recorded snapshots. Returns nil when none were taken.
func (m *MemoryMonitor) Report() *MemoryReport {
	if len(m.snapshots) == 0 {
		return nil
	}

	peak, minimum := m.snapshots[0], m.snapshots[0]
	used := make([]float64, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		if s.UsedGB > peak.UsedGB {
			peak = s
		}
		if s.UsedGB < minimum.UsedGB {
			minimum = s
		}
		used = append(used, s.UsedGB)
	}

	report := &MemoryReport{
		Snapshots:     append([]MemorySnapshot(nil), m.snapshots...),
		PeakUsage:     peak,
		MinimumUsage:  minimum,
		MemoryDeltaGB: round3(peak.UsedGB - minimum.UsedGB),
		AverageUsedGB: round3(stat.Mean(used, nil)),
	}
	return report
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}
