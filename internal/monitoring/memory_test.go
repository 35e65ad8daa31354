package monitoring

import (
	"errors"
	"log"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gb = uint64(1024 * 1024 * 1024)

func stubbedMonitor(samples []*mem.VirtualMemoryStat) *MemoryMonitor {
	i := 0
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return &MemoryMonitor{
		sample: func() (*mem.VirtualMemoryStat, error) {
			s := samples[i%len(samples)]
			i++
			return s, nil
		},
		now: func() time.Time {
			base = base.Add(time.Minute)
			return base
		},
	}
}

func TestMemoryMonitorReport(t *testing.T) {
	m := stubbedMonitor([]*mem.VirtualMemoryStat{
		{Used: 4 * gb, Available: 12 * gb, UsedPercent: 25},
		{Used: 8 * gb, Available: 8 * gb, UsedPercent: 50},
		{Used: 6 * gb, Available: 10 * gb, UsedPercent: 37.5},
		{Used: 6 * gb, Available: 10 * gb, UsedPercent: 37.5},
	})

	for _, label := range []string{MilestoneStart, MilestoneProcessing, MilestoneAnalysis, MilestoneReports} {
		m.TakeSnapshot(label)
	}

	report := m.Report()
	require.NotNil(t, report)
	require.Len(t, report.Snapshots, 4)

	assert.Equal(t, MilestoneStart, report.Snapshots[0].Label)
	assert.Equal(t, MilestoneProcessing, report.PeakUsage.Label)
	assert.Equal(t, 8.0, report.PeakUsage.UsedGB)
	assert.Equal(t, MilestoneStart, report.MinimumUsage.Label)
	assert.Equal(t, 4.0, report.MinimumUsage.UsedGB)
	assert.InDelta(t, 4.0, report.MemoryDeltaGB, 1e-9)
	assert.InDelta(t, 6.0, report.AverageUsedGB, 1e-9)
}

func TestMemoryMonitorEmptyReport(t *testing.T) {
	m := NewMemoryMonitor()
	assert.Nil(t, m.Report())
}

func TestMemoryMonitorSampleFailureSkipped(t *testing.T) {
	m := &MemoryMonitor{
		sample: func() (*mem.VirtualMemoryStat, error) { return nil, errors.New("no procfs") },
		now:    time.Now,
	}

	m.TakeSnapshot(MilestoneStart)

	// A failed sample never fails the run and leaves no snapshot behind.
	assert.Nil(t, m.Report())
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(log.Printf) })

	var captured string
	SetLogger(func(format string, v ...interface{}) { captured = format })
	Logf("hello %s", "world")
	assert.Equal(t, "hello %s", captured)

	// nil installs a no-op, not a panic.
	SetLogger(nil)
	Logf("ignored")
}
