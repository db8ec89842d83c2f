package observability

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// SystemInfo describes the host an import runs on.
type SystemInfo struct {
	LogicalCPUs     int
	TotalMemory     uint64
	AvailableMemory uint64
	UsedPercent     float64
}

// ProbeSystem reads CPU and memory figures. Values that cannot be read are
// left zero, except the CPU count which falls back to the Go runtime.
func ProbeSystem(ctx context.Context) (SystemInfo, error) {
	info := SystemInfo{LogicalCPUs: runtime.NumCPU()}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		info.LogicalCPUs = n
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return info, err
	}
	info.TotalMemory = vm.Total
	info.AvailableMemory = vm.Available
	info.UsedPercent = vm.UsedPercent
	return info, nil
}

// LogSystemInfo logs the host figures at info level.
func LogSystemInfo(ctx context.Context, logger *zap.Logger) SystemInfo {
	info, err := ProbeSystem(ctx)
	if err != nil {
		logger.Debug("memory statistics unavailable", zap.Error(err))
	}
	logger.Info("system resources",
		zap.Int("logical_cpus", info.LogicalCPUs),
		zap.Uint64("total_memory_bytes", info.TotalMemory),
		zap.Uint64("available_memory_bytes", info.AvailableMemory),
		zap.Float64("memory_used_percent", info.UsedPercent))
	return info
}
