package output

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// ----- Headless ----- //

// Headless pulls a Source at real-time cadence and discards the frames. It
// stands in for the device when no audio hardware is available.
type Headless struct {
	src          Source
	meter        *Meter
	sampleRate   int
	bufferFrames int
	floats       []float32
	stats        statsCounter
}

var _ Sink = (*Headless)(nil)

// NewHeadless returns a sink without a device. meter may be nil.
func NewHeadless(src Source, sampleRate, bufferFrames int, meter *Meter) *Headless {
	return &Headless{
		src:          src,
		meter:        meter,
		sampleRate:   sampleRate,
		bufferFrames: bufferFrames,
		floats:       make([]float32, bufferFrames*channelNum),
	}
}

// Pull renders one buffer.
func (h *Headless) Pull() []float32 {
	start := time.Now()
	h.src.Process(h.floats, h.bufferFrames)
	if h.meter != nil {
		h.meter.Write(h.floats)
	}
	h.stats.record(time.Since(start), bufferPeriod(h.bufferFrames, h.sampleRate))
	return h.floats
}

// Start blocks until ctx is cancelled.
func (h *Headless) Start(ctx context.Context) error {
	period := bufferPeriod(h.bufferFrames, h.sampleRate)
	t := time.NewTicker(period)
	defer t.Stop()
	log.WithFields(log.Fields{
		"sampleRate": h.sampleRate,
		"frames":     h.bufferFrames,
		"period":     period,
	}).Info("headless sink started")
	for {
		select {
		case <-ctx.Done():
			log.Println("Headless.Start() ended.")
			return nil
		case <-t.C:
			h.Pull()
		}
	}
}

func (h *Headless) Stats() Stats {
	return h.stats.snapshot()
}

func (h *Headless) Close() error {
	return nil
}
