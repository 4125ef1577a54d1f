// internal/core/health.go
package core

import (
	"log"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

const (
	cpuBusyPercent = 90.0
	memBusyPercent = 90.0
)

// systemHealthy reports whether the host has headroom for background work.
// The pulse skips a cycle rather than compete with a loaded machine. Probe
// failures count as healthy; a broken probe should not stall the pulse.
func systemHealthy() bool {
	percents, err := cpu.Percent(200*time.Millisecond, false)
	if err == nil && len(percents) > 0 && percents[0] > cpuBusyPercent {
		log.Printf("[Core] CPU at %.0f%%, skipping pulse cycle", percents[0])
		return false
	}

	vm, err := mem.VirtualMemory()
	if err == nil && vm.UsedPercent > memBusyPercent {
		log.Printf("[Core] Memory at %.0f%%, skipping pulse cycle", vm.UsedPercent)
		return false
	}
	return true
}
