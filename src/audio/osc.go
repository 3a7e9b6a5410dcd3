package audio

import (
	"fmt"
	"math"
)

// ----- Waveform ----- //

// Waveform is the closed set of shapes shared by the oscillator and the LFO.
type Waveform int

// The order matches the index used by the control surface.
const (
	Sine Waveform = iota
	Square
	Saw
	Triangle
	numWaveforms
)

// NumWaveforms is the size of the closed waveform set.
const NumWaveforms = int(numWaveforms)

var waveformNames = [numWaveforms]string{"sine", "square", "saw", "triangle"}

func (w Waveform) String() string {
	if w < 0 || w >= numWaveforms {
		return "unknown"
	}
	return waveformNames[w]
}

// WaveformFromIndex maps any integer onto the closed set, wrapping in both
// directions. It only exists for UI cycling.
func WaveformFromIndex(index int) Waveform {
	n := int(numWaveforms)
	return Waveform(((index % n) + n) % n)
}

// ParseWaveform returns the waveform with the given name.
func ParseWaveform(name string) (Waveform, error) {
	for i, n := range waveformNames {
		if n == name {
			return Waveform(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q", name)
}

// ----- OSC ----- //

const twoPi = 2.0 * math.Pi

type osc struct {
	kind       Waveform
	sampleRate float64
	freq       float64
	phase      float64 // [0, 2π)
}

func newOsc(sampleRate float64, freq float64) *osc {
	return &osc{
		kind:       Sine,
		sampleRate: sampleRate,
		freq:       freq,
	}
}

func (o *osc) setFrequency(freq float64) {
	o.freq = freq
}

func (o *osc) setWaveform(kind Waveform) {
	if kind < 0 || kind >= numWaveforms {
		return
	}
	o.kind = kind
}

func (o *osc) resetPhase() {
	o.phase = 0
}

func (o *osc) generateSample() float64 {
	value := 0.0
	switch o.kind {
	case Sine:
		value = math.Sin(o.phase)
	case Square:
		if o.phase < math.Pi {
			value = 1
		} else {
			value = -1
		}
	case Saw:
		value = o.phase/math.Pi - 1
	case Triangle:
		p := o.phase / twoPi
		if p < 0.5 {
			value = p*4 - 1
		} else {
			value = p*(-4) + 3
		}
	}
	o.phase += twoPi * o.freq / o.sampleRate
	if o.phase >= twoPi {
		o.phase = math.Mod(o.phase, twoPi)
	}
	return value
}

func (o *osc) generate(out []float64) {
	for i := range out {
		out[i] = o.generateSample()
	}
}
