package output

import (
	"math"
	"sync"
)

const DefaultMeterSize = 2048

// ----- Meter ----- //

// Meter keeps the last few thousand output samples for level and spectrum
// displays. Write is called by the sink after each buffer; the readers run on
// the control side.
type Meter struct {
	sync.Mutex
	sampleRate int
	ring       []float64 // mono
	pos        int
	taps       []*PeakTap

	analysis sync.Mutex
	window   Window
	fft      *FFT
	result   []float64
}

// NewMeter ... size must be a power of two.
func NewMeter(sampleRate, size int, window Window) *Meter {
	if window == nil {
		window = Han
	}
	return &Meter{
		sampleRate: sampleRate,
		window:     window,
		fft:        NewFFT(size, false),
		ring:       make([]float64, size),
		result:     make([]float64, size),
	}
}

// Write appends interleaved stereo frames.
func (m *Meter) Write(frames []float32) {
	m.Lock()
	defer m.Unlock()
	peak := 0.0
	for i := 0; i+1 < len(frames); i += channelNum {
		v := float64(frames[i]+frames[i+1]) / 2
		m.ring[m.pos] = v
		m.pos++
		if m.pos >= len(m.ring) {
			m.pos = 0
		}
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	for _, t := range m.taps {
		if peak > t.peak {
			t.peak = peak
		}
	}
}

// ----- Peak Tap ----- //

// PeakTap holds the peak level for one reader. Readers do not reset each
// other's peaks.
type PeakTap struct {
	meter *Meter
	peak  float64
}

// Tap registers a new reader. Only writes made after Tap are seen.
func (m *Meter) Tap() *PeakTap {
	m.Lock()
	defer m.Unlock()
	t := &PeakTap{meter: m}
	m.taps = append(m.taps, t)
	return t
}

// Peak returns the highest absolute level written since the previous call on
// this tap.
func (t *PeakTap) Peak() float64 {
	t.meter.Lock()
	defer t.meter.Unlock()
	peak := t.peak
	t.peak = 0
	return peak
}

// Close unregisters the tap.
func (t *PeakTap) Close() {
	m := t.meter
	m.Lock()
	defer m.Unlock()
	for i, other := range m.taps {
		if other == t {
			m.taps = append(m.taps[:i], m.taps[i+1:]...)
			return
		}
	}
}

// Spectrum returns the magnitudes of the lower half of the bins, scaled so a
// full scale sine reads about 1 before windowing.
func (m *Meter) Spectrum() []float64 {
	m.analysis.Lock()
	defer m.analysis.Unlock()

	m.Lock()
	// ring:   | 4 | 1 | 2 | 3 |
	// pos:        ^
	// result: | 1 | 2 | 3 | 4 |
	n := len(m.ring)
	copy(m.result, m.ring[m.pos:])
	copy(m.result[n-m.pos:], m.ring[:m.pos])
	m.Unlock()

	m.window(m.result)
	m.fft.CalcAbs(m.result)
	spectrum := make([]float64, n/2)
	for i := range spectrum {
		spectrum[i] = m.result[i] * 2 / float64(n)
	}
	return spectrum
}

// DominantFrequency returns the centre frequency of the strongest bin above
// DC, or 0 for silence.
func (m *Meter) DominantFrequency() float64 {
	spectrum := m.Spectrum()
	if len(spectrum) < 2 {
		return 0
	}
	best := 1
	for i := 2; i < len(spectrum); i++ {
		if spectrum[i] > spectrum[best] {
			best = i
		}
	}
	if spectrum[best] < 1e-6 {
		return 0
	}
	return float64(best) * float64(m.sampleRate) / float64(len(m.ring))
}
