package output

import (
	"math"
	"sync/atomic"
	"time"
)

// Stats describes the health of a sink.
type Stats struct {
	Buffers   int64
	Underruns int64
	// time spent producing the last buffer relative to its duration
	Load float64
}

type statsCounter struct {
	buffers   atomic.Int64
	underruns atomic.Int64
	load      atomic.Uint64 // math.Float64bits
}

func (s *statsCounter) record(elapsed, period time.Duration) {
	s.buffers.Add(1)
	if period > 0 {
		s.load.Store(math.Float64bits(float64(elapsed) / float64(period)))
	}
}

func (s *statsCounter) underrun() int64 {
	return s.underruns.Add(1)
}

func (s *statsCounter) snapshot() Stats {
	return Stats{
		Buffers:   s.buffers.Load(),
		Underruns: s.underruns.Load(),
		Load:      math.Float64frombits(s.load.Load()),
	}
}

func bufferPeriod(frames, sampleRate int) time.Duration {
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}
