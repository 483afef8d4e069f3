package perf

import (
	"context"
	"sync"
	"time"

	gopsutilcpu "github.com/shirou/gopsutil/v4/cpu"
	gopsutilmem "github.com/shirou/gopsutil/v4/mem"
	gopsutilnet "github.com/shirou/gopsutil/v4/net"
)

// Collectors is a pure-reader set over OS-exposed counters per spec
// §4.8. CPU and network collectors are stateful across ticks (they
// report deltas against the previous read); the first read yields zero
// by definition.
type Collectors struct {
	mu          sync.Mutex
	lastNet     *gopsutilnet.IOCountersStat
	lastNetTime time.Time
}

// NewCollectors creates a Collectors instance with cold state. An Engine
// shares one instance across all its sessions and snapshots, so only the
// first read through that instance is cold, per spec §4.8 ("first read
// yields zero by definition").
func NewCollectors() *Collectors {
	return &Collectors{}
}

// CPU reports system and process CPU percentage, computed by gopsutil
// from the difference of cumulative totals between consecutive reads.
func (c *Collectors) CPU(ctx context.Context) (CPUSample, error) {
	systemPercents, err := gopsutilcpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return CPUSample{}, err
	}
	perCore, err := gopsutilcpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return CPUSample{}, err
	}

	sample := CPUSample{PerCorePercent: perCore}
	if len(systemPercents) > 0 {
		sample.SystemPercent = systemPercents[0]
	}
	// Process-specific percentage requires PID-scoped accounting that
	// this core does not track (target process is identified by package
	// name, an Android concept with no portable PID mapping here); left
	// at zero, matching the "unknown" sentinel spec §4.8 allows.
	return sample, nil
}

// Memory reports system totals from an OS-exposed memory summary.
// Target-process PSS breakdown is left zero: gopsutil has no portable
// equivalent to an Android diagnostic report's native/Dalvik/other split.
func (c *Collectors) Memory(ctx context.Context) (MemorySample, error) {
	vm, err := gopsutilmem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemorySample{}, err
	}
	return MemorySample{
		TotalRAMBytes:     vm.Total,
		AvailableRAMBytes: vm.Available,
	}, nil
}

// Network reports cumulative bytes summed across non-loopback interfaces
// and the instantaneous speed as a divided difference against the prior
// sample.
func (c *Collectors) Network(ctx context.Context) (NetworkSample, error) {
	counters, err := gopsutilnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return NetworkSample{}, err
	}

	var totalRx, totalTx uint64
	for _, iface := range counters {
		if iface.Name == "lo" || iface.Name == "lo0" {
			continue
		}
		totalRx += iface.BytesRecv
		totalTx += iface.BytesSent
	}

	now := time.Now()
	sample := NetworkSample{RxBytes: totalRx, TxBytes: totalTx}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastNet != nil {
		elapsed := now.Sub(c.lastNetTime).Seconds()
		if elapsed > 0 {
			sample.RxBytesPerSec = float64(totalRx-c.lastNet.BytesRecv) / elapsed
			sample.TxBytesPerSec = float64(totalTx-c.lastNet.BytesSent) / elapsed
		}
	}
	c.lastNet = &gopsutilnet.IOCountersStat{BytesRecv: totalRx, BytesSent: totalTx}
	c.lastNetTime = now

	return sample, nil
}

// Battery has no portable cross-OS sysfs-like tree the way spec §4.8
// describes; this core reports the sentinel zero sample, the documented
// "unknown value" fallback for a collector with no available source on
// the host platform.
func (c *Collectors) Battery(ctx context.Context) (BatterySample, error) {
	return BatterySample{}, nil
}

// FrameSource supplies the raw presentation-timestamp sequence a real
// frame-timing collector reads from a surface-flinger-equivalent. No
// such source exists on a generic host; FPS() accepts an optional
// pluggable FrameSource and otherwise reports the sentinel zero sample.
type FrameSource interface {
	RecentFrameIntervalsMS() []float64
}

// FPS reports instantaneous/average fps and jank counts derived from
// frame intervals, per the jank/big-jank thresholds in spec §4.8.
func (c *Collectors) FPS(source FrameSource) FPSSample {
	if source == nil {
		return FPSSample{}
	}
	intervals := source.RecentFrameIntervalsMS()
	if len(intervals) == 0 {
		return FPSSample{}
	}

	const jankThresholdMS = 33.34
	const bigJankThresholdMS = 66.68

	var total float64
	jank, bigJank := 0, 0
	for _, ms := range intervals {
		total += ms
		if ms > bigJankThresholdMS {
			bigJank++
		} else if ms > jankThresholdMS {
			jank++
		}
	}
	avgIntervalMS := total / float64(len(intervals))
	avgFPS := 0.0
	if avgIntervalMS > 0 {
		avgFPS = 1000.0 / avgIntervalMS
	}
	lastIntervalMS := intervals[len(intervals)-1]
	instantFPS := 0.0
	if lastIntervalMS > 0 {
		instantFPS = 1000.0 / lastIntervalMS
	}

	return FPSSample{
		InstantFPS:       instantFPS,
		AverageFPS:       avgFPS,
		JankCount:        jank,
		BigJankCount:     bigJank,
		RecentIntervalMS: intervals,
	}
}
