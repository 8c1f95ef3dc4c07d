package fixeltrack

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/fixeltrack/fixel"
	"github.com/hupe1980/fixeltrack/mapping"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordBuild is called once the fixel index build finishes.
	RecordBuild(stats fixel.BuildStats, duration time.Duration, err error)

	// RecordMapping is called after each MapStreamlines call.
	RecordMapping(stats mapping.Stats, duration time.Duration, err error)

	// RecordEncode is called after contribution lists are serialized.
	RecordEncode(lists int, bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(fixel.BuildStats, time.Duration, error) {}
func (NoopMetricsCollector) RecordMapping(mapping.Stats, time.Duration, error)  {}
func (NoopMetricsCollector) RecordEncode(int, int64, time.Duration, error)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	BuildCount        atomic.Int64
	BuildErrors       atomic.Int64
	BuildTotalNanos   atomic.Int64
	Fixels            atomic.Int64
	SkippedVoxels     atomic.Int64
	MappingCount      atomic.Int64
	MappingErrors     atomic.Int64
	MappingTotalNanos atomic.Int64
	Streamlines       atomic.Int64
	Records           atomic.Int64
	Splits            atomic.Int64
	PeakMemoryBytes   atomic.Int64
	EncodeCount       atomic.Int64
	EncodeErrors      atomic.Int64
	EncodedBytes      atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(stats fixel.BuildStats, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.Fixels.Add(int64(stats.Fixels))
	b.SkippedVoxels.Add(int64(stats.Skipped))
}

// RecordMapping implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMapping(stats mapping.Stats, duration time.Duration, err error) {
	b.MappingCount.Add(1)
	b.MappingTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MappingErrors.Add(1)
		return
	}
	b.Streamlines.Add(stats.Streamlines)
	b.Records.Add(stats.Records)
	b.Splits.Add(stats.Splits)
	for {
		p := b.PeakMemoryBytes.Load()
		if stats.PeakBytes <= p || b.PeakMemoryBytes.CompareAndSwap(p, stats.PeakBytes) {
			return
		}
	}
}

// RecordEncode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEncode(_ int, bytes int64, _ time.Duration, err error) {
	b.EncodeCount.Add(1)
	if err != nil {
		b.EncodeErrors.Add(1)
		return
	}
	b.EncodedBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:      b.BuildCount.Load(),
		BuildErrors:     b.BuildErrors.Load(),
		Fixels:          b.Fixels.Load(),
		SkippedVoxels:   b.SkippedVoxels.Load(),
		MappingCount:    b.MappingCount.Load(),
		MappingErrors:   b.MappingErrors.Load(),
		MappingAvgNanos: avg(b.MappingTotalNanos.Load(), b.MappingCount.Load()),
		Streamlines:     b.Streamlines.Load(),
		Records:         b.Records.Load(),
		Splits:          b.Splits.Load(),
		PeakMemoryBytes: b.PeakMemoryBytes.Load(),
		EncodeCount:     b.EncodeCount.Load(),
		EncodeErrors:    b.EncodeErrors.Load(),
		EncodedBytes:    b.EncodedBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount      int64
	BuildErrors     int64
	Fixels          int64
	SkippedVoxels   int64
	MappingCount    int64
	MappingErrors   int64
	MappingAvgNanos int64
	Streamlines     int64
	Records         int64
	Splits          int64
	PeakMemoryBytes int64
	EncodeCount     int64
	EncodeErrors    int64
	EncodedBytes    int64
}
