// Package metrics periodically logs process resource usage alongside the
// progress of the running batch.
package metrics

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Counters is the batch progress a Collector reports
type Counters interface {
	Processed() int64
	Dropped() int64
	Elements() int64
}

// Snapshot is one collected sample
type Snapshot struct {
	CPUPercent        float64 // system-wide, 0-100
	ProcessCPUPercent float64 // can exceed 100 on multi-core
	ProcessRSSMB      float64
	MemoryPercent     float64
	Processed         int64
	Dropped           int64
	Elements          int64
	RecordsPerSec     float64
	Timestamp         time.Time
}

// Collector periodically samples and logs metrics
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process
	counters Counters

	mu            sync.RWMutex
	last          *Snapshot
	lastProcessed int64
	lastTime      time.Time
}

// NewCollector creates a collector; counters may be nil
func NewCollector(interval time.Duration, logger *zap.Logger, counters Counters) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}

	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
		counters: counters,
	}
}

// Start samples on every tick until ctx is cancelled
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.Collect()
		}
	}
}

// Last returns the most recent snapshot, nil before the first sample
func (c *Collector) Last() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Collect takes one sample and logs it
func (c *Collector) Collect() *Snapshot {
	s := &Snapshot{Timestamp: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil && info != nil {
			s.ProcessRSSMB = float64(info.RSS) / (1024 * 1024)
		}
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vmem.UsedPercent
	}

	c.mu.Lock()
	if c.counters != nil {
		s.Processed = c.counters.Processed()
		s.Dropped = c.counters.Dropped()
		s.Elements = c.counters.Elements()
		if !c.lastTime.IsZero() {
			if elapsed := s.Timestamp.Sub(c.lastTime).Seconds(); elapsed > 0 {
				s.RecordsPerSec = float64(s.Processed-c.lastProcessed) / elapsed
			}
		}
		c.lastProcessed = s.Processed
		c.lastTime = s.Timestamp
	}
	c.last = s
	c.mu.Unlock()

	c.logger.Info("Metrics",
		zap.Float64("sys_cpu", s.CPUPercent),
		zap.Float64("proc_cpu", s.ProcessCPUPercent),
		zap.String("rss", formatMB(s.ProcessRSSMB)),
		zap.Float64("mem_pct", s.MemoryPercent),
		zap.Int64("processed", s.Processed),
		zap.Int64("dropped", s.Dropped),
		zap.Int64("elements", s.Elements),
		zap.Float64("records_per_sec", s.RecordsPerSec),
	)
	return s
}

// formatMB formats megabytes with one decimal place
func formatMB(mb float64) string {
	return strconv.FormatFloat(mb, 'f', 1, 64) + " MB"
}
