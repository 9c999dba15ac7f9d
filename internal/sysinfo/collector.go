// 本文件用于主机资源快照采集
package sysinfo

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"salon-agent/internal/models"
)

const defaultCacheTTL = 1 * time.Second

// Collector 负责采集系统资源快照
// 带短缓存，面板高频刷新时不会反复打采集接口
type Collector struct {
	mu             sync.Mutex
	cacheTTL       time.Duration
	lastSnapshot   models.SystemSnapshot
	lastSnapshotAt time.Time
}

// NewCollector 创建系统信息采集器
func NewCollector() *Collector {
	return &Collector{cacheTTL: defaultCacheTTL}
}

// Snapshot 返回系统资源快照
func (c *Collector) Snapshot() (models.SystemSnapshot, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSnapshotAt) < c.cacheTTL {
		return c.lastSnapshot, nil
	}

	var snapshot models.SystemSnapshot
	if info, err := host.Info(); err == nil {
		snapshot.Hostname = info.Hostname
		snapshot.UptimeSeconds = info.Uptime
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snapshot.MemUsedPercent = vm.UsedPercent
	}
	if avg, err := load.Avg(); err == nil {
		snapshot.Load1 = avg.Load1
	}

	c.lastSnapshot = snapshot
	c.lastSnapshotAt = now
	return snapshot, nil
}
