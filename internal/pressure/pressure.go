// Package pressure samples host memory usage and classifies it into the
// level that drives cleanup aggressiveness.
package pressure

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/aatumaykin/memtier/internal/config"
)

// Level classifies current memory pressure. Levels are ordered; the
// cleanup actions of a higher level are a superset of a lower one's.
type Level int

const (
	Maintenance Level = iota
	Warning
	Critical
	Emergency
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case Maintenance:
		return "maintenance"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	case Emergency:
		return "emergency"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Sample is one point-in-time memory reading.
type Sample struct {
	UsedPercent float64 // system-wide memory usage
	ProcessRSS  uint64  // this process's resident set, bytes
}

// Monitor reads host and process memory state. It holds no cached state;
// every Sample call hits the OS.
type Monitor struct {
	thresholds config.PressureConfig
	pid        int32
}

// NewMonitor builds a monitor with the configured escalation thresholds.
func NewMonitor(thresholds config.PressureConfig) *Monitor {
	return &Monitor{
		thresholds: thresholds,
		pid:        int32(os.Getpid()),
	}
}

// Sample reads system-wide usage and the current process RSS.
func (m *Monitor) Sample(ctx context.Context) (Sample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read system memory: %w", err)
	}

	s := Sample{UsedPercent: vm.UsedPercent}

	proc, err := process.NewProcessWithContext(ctx, m.pid)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to open process %d: %w", m.pid, err)
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read process memory: %w", err)
	}
	s.ProcessRSS = info.RSS

	return s, nil
}

// ProcessRSS reads only the current process resident set. Used by the
// cleanup engine to estimate bytes freed by a forced GC.
func (m *Monitor) ProcessRSS(ctx context.Context) (uint64, error) {
	proc, err := process.NewProcessWithContext(ctx, m.pid)
	if err != nil {
		return 0, fmt.Errorf("failed to open process %d: %w", m.pid, err)
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read process memory: %w", err)
	}
	return info.RSS, nil
}

// Classify maps a usage percentage to its pressure level. Pure function
// over the configured threshold table.
func (m *Monitor) Classify(usedPercent float64) Level {
	switch {
	case usedPercent >= m.thresholds.EmergencyPercent:
		return Emergency
	case usedPercent >= m.thresholds.CriticalPercent:
		return Critical
	case usedPercent >= m.thresholds.WarningPercent:
		return Warning
	default:
		return Maintenance
	}
}
