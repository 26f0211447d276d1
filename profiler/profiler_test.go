package profiler

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProfilerRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := New(Options{MaxSamples: 2, Registerer: reg, Namespace: "test"})
	require.NoError(t, err)

	p.record("decode", 10*time.Millisecond)
	p.record("decode", 30*time.Millisecond)
	p.record("decode", 20*time.Millisecond)
	p.StartOperation("nms")()

	stats := p.Snapshot()
	require.Len(t, stats, 2)
	assert.Equal(t, "decode", stats[0].Name)
	assert.Equal(t, int64(3), stats[0].Count)
	assert.Equal(t, 10*time.Millisecond, stats[0].Min)
	assert.Equal(t, 30*time.Millisecond, stats[0].Max)
	// Window of the last two samples.
	assert.Equal(t, 25*time.Millisecond, stats[0].Avg)
	assert.Equal(t, "nms", stats[1].Name)

	assert.Equal(t, 2, testutil.CollectAndCount(p.histogram))

	p.Report(zap.NewNop().Sugar())

	p.Reset()
	assert.Empty(t, p.Snapshot())

	// Registering twice on the same registry fails.
	_, err = New(Options{Registerer: reg, Namespace: "test"})
	assert.Error(t, err)
}

func TestNilProfiler(t *testing.T) {
	var p *Profiler
	p.StartOperation("x")()
	assert.Nil(t, p.Snapshot())
	p.Reset()
	p.Report(zap.NewNop().Sugar())
}
