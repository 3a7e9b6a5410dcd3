package output

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/oto"
	log "github.com/sirupsen/logrus"
)

// minimum buffer accepted by oto on every platform
const minBufferSizeInBytes = 4096

// a read this late after the previous one means the device starved
const lateReadFactor = 1.5

// Sink pulls frames from a Source until its context is cancelled.
type Sink interface {
	Start(ctx context.Context) error
	Stats() Stats
	Close() error
}

// ----- Device ----- //

// Device plays a Source on the default audio device through oto.
type Device struct {
	ctx          context.Context
	otoContext   *oto.Context
	src          Source
	meter        *Meter
	sampleRate   int
	bufferFrames int
	floats       []float32
	lastRead     time.Time
	stats        statsCounter
}

var _ io.Reader = (*Device)(nil)
var _ Sink = (*Device)(nil)

// NewDevice opens the audio device. meter may be nil.
func NewDevice(src Source, sampleRate, bufferFrames int, meter *Meter) (*Device, error) {
	bufferSizeInBytes := bufferFrames * bytesPerFrame * 2
	if bufferSizeInBytes < minBufferSizeInBytes {
		bufferSizeInBytes = minBufferSizeInBytes
	}
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	return &Device{
		ctx:          context.Background(),
		otoContext:   otoContext,
		src:          src,
		meter:        meter,
		sampleRate:   sampleRate,
		bufferFrames: bufferFrames,
		floats:       make([]float32, bufferFrames*channelNum),
	}, nil
}

func (d *Device) Read(buf []byte) (int, error) {
	select {
	case <-d.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
	}
	frames := len(buf) / bytesPerFrame
	if frames > d.bufferFrames {
		frames = d.bufferFrames
	}
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}
	start := time.Now()
	period := bufferPeriod(frames, d.sampleRate)
	if !d.lastRead.IsZero() {
		if gap := start.Sub(d.lastRead); gap > time.Duration(float64(period)*lateReadFactor) {
			n := d.stats.underrun()
			log.WithFields(log.Fields{
				"gap":       gap,
				"period":    period,
				"underruns": n,
			}).Warn("audio device underrun")
		}
	}
	out := d.floats[:frames*channelNum]
	d.src.Process(out, frames)
	writeBuffer(out, buf[:frames*bytesPerFrame])
	if d.meter != nil {
		d.meter.Write(out)
	}
	d.lastRead = time.Now()
	d.stats.record(d.lastRead.Sub(start), period)
	return frames * bytesPerFrame, nil
}

// Start blocks until ctx is cancelled.
func (d *Device) Start(ctx context.Context) error {
	p := d.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Errorf("failed to close player: %v", err)
		}
	}()
	d.ctx = ctx

	if _, err := io.CopyBuffer(p, d, make([]byte, d.bufferFrames*bytesPerFrame)); err != nil {
		return fmt.Errorf("audio device stopped: %w", err)
	}
	log.Println("Device.Start() ended.")
	return nil
}

func (d *Device) Stats() Stats {
	return d.stats.snapshot()
}

func (d *Device) Close() error {
	log.Println("Closing audio device...")
	return d.otoContext.Close()
}
