// Package perf implements the Performance Session Engine (spec §4.8):
// collectors, session lifecycle, bounded ring buffers, and sample
// broadcast to the event channel.
package perf

import "time"

// Metric names the closed subset of collectible metric kinds.
type Metric string

const (
	MetricCPU     Metric = "cpu"
	MetricMemory  Metric = "memory"
	MetricFPS     Metric = "fps"
	MetricNetwork Metric = "network"
	MetricBattery Metric = "battery"
)

// CPUSample is system/process/per-core CPU percentage.
type CPUSample struct {
	SystemPercent  float64   `json:"systemPercent"`
	ProcessPercent float64   `json:"processPercent"`
	PerCorePercent []float64 `json:"perCorePercent,omitempty"`
}

// MemorySample is system and target-process memory usage.
type MemorySample struct {
	TotalRAMBytes     uint64 `json:"totalRamBytes"`
	AvailableRAMBytes uint64 `json:"availableRamBytes"`
	ProcessPSSBytes   uint64 `json:"processPssBytes"`
	NativeHeapBytes   uint64 `json:"nativeHeapBytes"`
	DalvikHeapBytes   uint64 `json:"dalvikHeapBytes"`
	OtherHeapBytes    uint64 `json:"otherHeapBytes"`
	RuntimeHeapUsed   uint64 `json:"runtimeHeapUsed"`
	RuntimeHeapMax    uint64 `json:"runtimeHeapMax"`
}

// FPSSample is frame-timing data. Jank threshold is 33.34ms, big-jank is
// 66.68ms (spec §4.8).
type FPSSample struct {
	InstantFPS       float64   `json:"instantFps"`
	AverageFPS       float64   `json:"averageFps"`
	JankCount        int       `json:"jankCount"`
	BigJankCount     int       `json:"bigJankCount"`
	RecentIntervalMS []float64 `json:"recentIntervalMs,omitempty"`
}

// NetworkSample is cumulative and instantaneous network throughput.
type NetworkSample struct {
	RxBytes      uint64  `json:"rxBytes"`
	TxBytes      uint64  `json:"txBytes"`
	RxBytesPerSec float64 `json:"rxBytesPerSec"`
	TxBytesPerSec float64 `json:"txBytesPerSec"`
}

// BatterySample is device power state.
type BatterySample struct {
	LevelPercent   float64 `json:"levelPercent"`
	TemperatureC   float64 `json:"temperatureC"`
	VoltageMV      float64 `json:"voltageMv"`
	Charging       bool    `json:"charging"`
	InstantCurrent float64 `json:"instantCurrent"`
}

// Sample is a single collection tick's result; each sub-object is
// present only if its metric was requested.
type Sample struct {
	Timestamp int64          `json:"timestamp"`
	CPU       *CPUSample     `json:"cpu,omitempty"`
	Memory    *MemorySample  `json:"memory,omitempty"`
	FPS       *FPSSample     `json:"fps,omitempty"`
	Network   *NetworkSample `json:"network,omitempty"`
	Battery   *BatterySample `json:"battery,omitempty"`
}

// Summary is the stop-time aggregate computed over a session's buffer.
type Summary struct {
	AvgCPUPercent    float64 `json:"avgCpuPercent"`
	MaxCPUPercent    float64 `json:"maxCpuPercent"`
	AvgMemoryPSS     float64 `json:"avgMemoryPss"`
	MaxMemoryPSS     float64 `json:"maxMemoryPss"`
	AvgFPS           float64 `json:"avgFps"`
	MinFPS           float64 `json:"minFps"`
	TotalJankCount   int     `json:"totalJankCount"`
}

// StartParams are the accepted parameters for perf.start and perf.snapshot.
type StartParams struct {
	PackageName string        `json:"packageName,omitempty"`
	Metrics     []Metric      `json:"metrics"`
	IntervalMS  int           `json:"intervalMs,omitempty"`
}

const defaultIntervalMS = 1000
const ringBufferCapacity = 1000
