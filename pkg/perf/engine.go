package perf

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrSessionNotFound is returned by Stop for an unknown session id.
var ErrSessionNotFound = errors.New("perf session not found")

// ErrNoMetricsRequested is returned when Start/Snapshot is called with an
// empty metric set.
var ErrNoMetricsRequested = errors.New("perf session requires a non-empty metric set")

// session is the engine's internal per-session state.
type session struct {
	id          string
	packageName string
	metrics     []Metric
	interval    time.Duration
	startedAt   time.Time

	mu      sync.Mutex
	samples []Sample // FIFO ring buffer, bounded to ringBufferCapacity

	cancel context.CancelFunc
	done   chan struct{}
}

func (s *session) append(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	if len(s.samples) > ringBufferCapacity {
		s.samples = s.samples[len(s.samples)-ringBufferCapacity:]
	}
}

func (s *session) snapshot() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Engine orchestrates per-metric collectors into discrete sampling
// sessions (spec §4.8).
type Engine struct {
	collectors *Collectors

	mu       sync.Mutex
	sessions map[string]*session

	broadcastMu sync.RWMutex
	subscribers map[chan SampleEvent]struct{}

	newID func() (string, error)
}

// SampleEvent is published on the engine's broadcast stream on every
// tick, for delivery over the transport's event channel.
type SampleEvent struct {
	SessionID string
	Sample    Sample
}

// NewEngine creates a perf engine with cold collector state.
func NewEngine(newSessionID func() (string, error)) *Engine {
	return &Engine{
		collectors:  NewCollectors(),
		sessions:    make(map[string]*session),
		subscribers: make(map[chan SampleEvent]struct{}),
		newID:       newSessionID,
	}
}

// Subscribe registers a channel to receive every emitted sample. The
// returned unsubscribe func must be called to release it. Delivery is
// non-blocking: slow subscribers miss samples rather than stall
// collection.
func (e *Engine) Subscribe(buffer int) (ch chan SampleEvent, unsubscribe func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch = make(chan SampleEvent, buffer)
	e.broadcastMu.Lock()
	e.subscribers[ch] = struct{}{}
	e.broadcastMu.Unlock()

	return ch, func() {
		e.broadcastMu.Lock()
		delete(e.subscribers, ch)
		e.broadcastMu.Unlock()
		close(ch)
	}
}

func (e *Engine) publish(ev SampleEvent) {
	e.broadcastMu.RLock()
	defer e.broadcastMu.RUnlock()
	for ch := range e.subscribers {
		select {
		case ch <- ev:
		default:
			// slow consumer misses this sample, never blocks the collector
		}
	}
}

// Start begins a repeating session per spec §4.8.
func (e *Engine) Start(p StartParams) (string, error) {
	if len(p.Metrics) == 0 {
		return "", ErrNoMetricsRequested
	}
	interval := time.Duration(p.IntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = defaultIntervalMS * time.Millisecond
	}

	id, err := e.newID()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:          id,
		packageName: p.PackageName,
		metrics:     p.Metrics,
		interval:    interval,
		startedAt:   time.Now(),
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	e.mu.Lock()
	e.sessions[id] = sess
	e.mu.Unlock()

	go e.run(ctx, sess)

	return id, nil
}

func (e *Engine) run(ctx context.Context, sess *session) {
	defer close(sess.done)
	ticker := time.NewTicker(sess.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := e.collectOnce(ctx, sess.metrics)
			if err != nil {
				continue
			}
			sess.append(sample)
			e.publish(SampleEvent{SessionID: sess.id, Sample: sample})
		}
	}
}

// collectOnce runs the requested collectors in parallel into a single
// sample, per spec §4.8 ("collects the requested metrics in parallel").
func (e *Engine) collectOnce(ctx context.Context, metrics []Metric) (Sample, error) {
	sample := Sample{Timestamp: time.Now().UnixMilli()}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range metrics {
		m := m
		g.Go(func() error {
			switch m {
			case MetricCPU:
				v, err := e.collectors.CPU(gctx)
				if err != nil {
					return err
				}
				mu.Lock()
				sample.CPU = &v
				mu.Unlock()
			case MetricMemory:
				v, err := e.collectors.Memory(gctx)
				if err != nil {
					return err
				}
				mu.Lock()
				sample.Memory = &v
				mu.Unlock()
			case MetricFPS:
				v := e.collectors.FPS(nil)
				mu.Lock()
				sample.FPS = &v
				mu.Unlock()
			case MetricNetwork:
				v, err := e.collectors.Network(gctx)
				if err != nil {
					return err
				}
				mu.Lock()
				sample.Network = &v
				mu.Unlock()
			case MetricBattery:
				v, err := e.collectors.Battery(gctx)
				if err != nil {
					return err
				}
				mu.Lock()
				sample.Battery = &v
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Sample{}, err
	}
	return sample, nil
}

// Snapshot runs the same collection logic as a single tick, synchronously,
// with no session created.
func (e *Engine) Snapshot(p StartParams) (Sample, error) {
	if len(p.Metrics) == 0 {
		return Sample{}, ErrNoMetricsRequested
	}
	return e.collectOnce(context.Background(), p.Metrics)
}

// StopResult is the response shape for perf.stop.
type StopResult struct {
	SessionID   string
	DurationMS  int64
	SampleCount int
	Summary     Summary
	LastSamples []Sample
}

// Stop signals the session task to stop at the next tick and computes
// the closing summary over its buffer.
func (e *Engine) Stop(id string) (StopResult, error) {
	e.mu.Lock()
	sess, ok := e.sessions[id]
	if ok {
		delete(e.sessions, id)
	}
	e.mu.Unlock()
	if !ok {
		return StopResult{}, ErrSessionNotFound
	}

	sess.cancel()
	<-sess.done

	samples := sess.snapshot()
	return StopResult{
		SessionID:   id,
		DurationMS:  time.Since(sess.startedAt).Milliseconds(),
		SampleCount: len(samples),
		Summary:     summarize(samples),
		LastSamples: samples,
	}, nil
}

func summarize(samples []Sample) Summary {
	var sum Summary
	var cpuSum, memSum, fpsSum float64
	var cpuN, memN, fpsN int
	sum.MinFPS = -1

	for _, s := range samples {
		if s.CPU != nil {
			cpuSum += s.CPU.SystemPercent
			cpuN++
			if s.CPU.SystemPercent > sum.MaxCPUPercent {
				sum.MaxCPUPercent = s.CPU.SystemPercent
			}
		}
		if s.Memory != nil {
			pss := float64(s.Memory.ProcessPSSBytes)
			memSum += pss
			memN++
			if pss > sum.MaxMemoryPSS {
				sum.MaxMemoryPSS = pss
			}
		}
		if s.FPS != nil {
			fpsSum += s.FPS.AverageFPS
			fpsN++
			if sum.MinFPS < 0 || s.FPS.AverageFPS < sum.MinFPS {
				sum.MinFPS = s.FPS.AverageFPS
			}
			sum.TotalJankCount += s.FPS.JankCount + s.FPS.BigJankCount
		}
	}

	if cpuN > 0 {
		sum.AvgCPUPercent = cpuSum / float64(cpuN)
	}
	if memN > 0 {
		sum.AvgMemoryPSS = memSum / float64(memN)
	}
	if fpsN > 0 {
		sum.AvgFPS = fpsSum / float64(fpsN)
	} else {
		sum.MinFPS = 0
	}
	if sum.MinFPS < 0 {
		sum.MinFPS = 0
	}

	return sum
}
