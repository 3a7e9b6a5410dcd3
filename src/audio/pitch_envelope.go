package audio

import (
	"fmt"
	"math"
)

// ----- Pitch Envelope Mode ----- //

// PitchEnvelopeMode selects the sweep applied to the oscillator on trigger.
type PitchEnvelopeMode int

const (
	PitchNone PitchEnvelopeMode = iota
	PitchUp
	PitchDown
	numPitchEnvelopeModes
)

var pitchEnvelopeModeNames = [numPitchEnvelopeModes]string{"none", "up", "down"}

func (m PitchEnvelopeMode) String() string {
	if m < 0 || m >= numPitchEnvelopeModes {
		return "unknown"
	}
	return pitchEnvelopeModeNames[m]
}

// Next returns the mode after m in the cycle none, up, down.
func (m PitchEnvelopeMode) Next() PitchEnvelopeMode {
	n := int(numPitchEnvelopeModes)
	return PitchEnvelopeMode(((int(m)+1)%n + n) % n)
}

// ParsePitchEnvelopeMode returns the mode with the given name.
func ParsePitchEnvelopeMode(name string) (PitchEnvelopeMode, error) {
	for i, n := range pitchEnvelopeModeNames {
		if n == name {
			return PitchEnvelopeMode(i), nil
		}
	}
	return PitchNone, fmt.Errorf("unknown pitch envelope mode %q", name)
}

// ----- Pitch Envelope ----- //

const (
	pitchSweepTime    = 0.5 // s
	pitchSweepOctaves = 1.0
)

// pitchEnvelope sweeps the oscillator by one octave over pitchSweepTime after
// each trigger and then holds the end ratio. A mode change is latched by the
// next trigger; the sweep of a held note keeps the mode it started with.
type pitchEnvelope struct {
	mode    PitchEnvelopeMode
	pending PitchEnvelopeMode
	pos     int
	length  int
}

func newPitchEnvelope(sampleRate float64) *pitchEnvelope {
	length := int(pitchSweepTime * sampleRate)
	return &pitchEnvelope{
		mode:    PitchNone,
		pending: PitchNone,
		pos:     length,
		length:  length,
	}
}

func (p *pitchEnvelope) setMode(mode PitchEnvelopeMode) {
	if mode < 0 || mode >= numPitchEnvelopeModes {
		return
	}
	p.pending = mode
}

func (p *pitchEnvelope) trigger() {
	p.mode = p.pending
	p.pos = 0
}

// step returns the frequency ratio for the current sample.
func (p *pitchEnvelope) step() float64 {
	if p.mode == PitchNone {
		return 1
	}
	progress := 1.0
	if p.pos < p.length {
		progress = float64(p.pos) / float64(p.length)
		p.pos++
	}
	if p.mode == PitchDown {
		return math.Exp2(-progress * pitchSweepOctaves)
	}
	return math.Exp2(progress * pitchSweepOctaves)
}
