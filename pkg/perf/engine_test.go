package perf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialID() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return "sess-" + string(rune('0'+n)), nil
	}
}

func TestSnapshotReturnsOnlyRequestedMetrics(t *testing.T) {
	e := NewEngine(sequentialID())

	sample, err := e.Snapshot(StartParams{PackageName: "com.x", Metrics: []Metric{MetricCPU, MetricMemory}})
	require.NoError(t, err)

	assert.NotNil(t, sample.CPU)
	assert.NotNil(t, sample.Memory)
	assert.Nil(t, sample.FPS)
	assert.Nil(t, sample.Network)
	assert.Nil(t, sample.Battery)
	assert.NotZero(t, sample.Timestamp)
}

func TestSnapshotRejectsEmptyMetrics(t *testing.T) {
	e := NewEngine(sequentialID())
	_, err := e.Snapshot(StartParams{})
	assert.ErrorIs(t, err, ErrNoMetricsRequested)
}

func TestStartStopLifecycle(t *testing.T) {
	e := NewEngine(sequentialID())

	id, err := e.Start(StartParams{Metrics: []Metric{MetricCPU}, IntervalMS: 20})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	time.Sleep(70 * time.Millisecond)

	result, err := e.Stop(id)
	require.NoError(t, err)
	assert.Equal(t, id, result.SessionID)
	assert.GreaterOrEqual(t, result.SampleCount, 1)
}

func TestStopUnknownSession(t *testing.T) {
	e := NewEngine(sequentialID())
	_, err := e.Stop("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubscribeReceivesSamples(t *testing.T) {
	e := NewEngine(sequentialID())
	ch, unsub := e.Subscribe(4)
	defer unsub()

	id, err := e.Start(StartParams{Metrics: []Metric{MetricCPU}, IntervalMS: 20})
	require.NoError(t, err)
	defer e.Stop(id)

	select {
	case ev := <-ch:
		assert.Equal(t, id, ev.SessionID)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected a sample event")
	}
}

func TestFPSJankThresholds(t *testing.T) {
	c := NewCollectors()
	sample := c.FPS(fixedFrameSource{intervals: []float64{16, 40, 70}})
	assert.Equal(t, 1, sample.JankCount)
	assert.Equal(t, 1, sample.BigJankCount)
}

type fixedFrameSource struct{ intervals []float64 }

func (f fixedFrameSource) RecentFrameIntervalsMS() []float64 { return f.intervals }
