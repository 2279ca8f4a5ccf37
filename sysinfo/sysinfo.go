// Package sysinfo reports the gateway host's own vitals for the dashboard's
// system page.
package sysinfo

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/c360/pulseboard/errors"
)

// Snapshot is one sample of host state.
type Snapshot struct {
	Hostname      string    `json:"hostname"`
	OS            string    `json:"os"`
	Platform      string    `json:"platform"`
	UptimeSeconds uint64    `json:"uptimeSeconds"`
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryPercent float64   `json:"memoryPercent"`
	MemoryUsedMB  uint64    `json:"memoryUsedMb"`
	MemoryTotalMB uint64    `json:"memoryTotalMb"`
	DiskPercent   float64   `json:"diskPercent"`
	Timestamp     time.Time `json:"timestamp"`
}

// Collect samples the host. CPU usage is measured over a short window, so
// this call takes around 200ms.
func Collect() (Snapshot, error) {
	snap := Snapshot{Timestamp: time.Now()}

	info, err := host.Info()
	if err != nil {
		return snap, errors.Wrap(err, "SysInfo", "Collect", "read host info")
	}
	snap.Hostname = info.Hostname
	snap.OS = info.OS
	snap.Platform = info.Platform
	snap.UptimeSeconds = info.Uptime

	if percents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vm.UsedPercent
		snap.MemoryUsedMB = vm.Used / (1 << 20)
		snap.MemoryTotalMB = vm.Total / (1 << 20)
	}

	if usage, err := disk.Usage("/"); err == nil {
		snap.DiskPercent = usage.UsedPercent
	}

	return snap, nil
}
