package audio

// ----- LFO ----- //

const (
	minLfoRate = 0.01
	maxLfoRate = 50.0
)

// lfo runs independently of the main oscillator. Its output lies in
// [-depth, depth].
type lfo struct {
	osc   *osc
	depth float64 // 0-1
}

func newLfo(sampleRate float64) *lfo {
	return &lfo{
		osc:   newOsc(sampleRate, 4.0),
		depth: 0,
	}
}

func (l *lfo) setRate(rate float64) {
	l.osc.setFrequency(clamp(rate, minLfoRate, maxLfoRate))
}

func (l *lfo) setDepth(depth float64) {
	l.depth = clamp(depth, 0, 1)
}

func (l *lfo) setWaveform(kind Waveform) {
	l.osc.setWaveform(kind)
}

func (l *lfo) generateSample() float64 {
	return l.osc.generateSample() * l.depth
}

func (l *lfo) generate(out []float64) {
	for i := range out {
		out[i] = l.generateSample()
	}
}
