package audio

import "math"

// ----- Delay Line ----- //

// delayLine is a circular buffer read at a fractional distance behind the
// write cursor. Its length is fixed at construction.
type delayLine struct {
	cursor int
	past   []float64
}

func newDelayLine(length int) *delayLine {
	return &delayLine{past: make([]float64, length)}
}

func (d *delayLine) write(in float64) {
	d.past[d.cursor] = in
	d.cursor++
	if d.cursor >= len(d.past) {
		d.cursor = 0
	}
}

// read returns the sample written `samples` steps ago, linearly interpolated.
// samples must lie in [1, len-1].
func (d *delayLine) read(samples float64) float64 {
	n := len(d.past)
	whole := int(samples)
	frac := samples - float64(whole)
	i0 := d.cursor - whole
	if i0 < 0 {
		i0 += n
	}
	i1 := i0 - 1
	if i1 < 0 {
		i1 += n
	}
	return d.past[i0]*(1-frac) + d.past[i1]*frac
}

func (d *delayLine) clear() {
	for i := range d.past {
		d.past[i] = 0
	}
	d.cursor = 0
}

// ----- Echo ----- //

const (
	maxDelayTime     = 2.0   // s
	minDelayTime     = 0.001 // s
	maxDelayFeedback = 0.95
	delayFadeTime    = 20.0 // ms
	maxWobbleDepth   = 0.01 // s
)

// DelayCharacter shapes the feedback path of the delay. Out of range values
// are clamped when applied.
type DelayCharacter struct {
	Saturation  float64 // [0, 1]
	HighPass    float64 // Hz
	LowPass     float64 // Hz
	WobbleDepth float64 // s
	WobbleRate  float64 // Hz
}

func DefaultDelayCharacter() DelayCharacter {
	return DelayCharacter{
		Saturation:  0.2,
		HighPass:    80,
		LowPass:     8000,
		WobbleDepth: 0.002,
		WobbleRate:  0.5,
	}
}

// echo is a single feedback delay. The feedback path is shaped like a tape
// echo: a high-pass and low-pass pair, soft saturation and a slow wobble of
// the read position. Changing the delay time crossfades between the old and
// new read positions; the line is sized for maxDelayTime so it never shrinks.
type echo struct {
	sampleRate float64
	line       *delayLine

	delaySamples float64
	prevSamples  float64
	fadePos      int
	fadeLength   int

	feedback   float64 // [0, 0.95]
	mix        float64 // [0, 1]
	saturation float64 // [0, 1]

	highPass   onePole
	lowPass    onePole
	highPassHz float64
	lowPassHz  float64

	wobbleDepth float64 // samples
	wobbleRate  float64 // Hz
	wobblePhase float64
}

func newEcho(sampleRate float64) *echo {
	wobbleMargin := maxWobbleDepth * sampleRate
	e := &echo{
		sampleRate: sampleRate,
		line:       newDelayLine(int(maxDelayTime*sampleRate+wobbleMargin) + 2),
		fadeLength: int(delayFadeTime / 1000 * sampleRate),
		feedback:   0.5,
		mix:        0.3,
	}
	e.delaySamples = e.toSamples(0.5)
	e.prevSamples = e.delaySamples
	e.fadePos = e.fadeLength
	e.setCharacter(DefaultDelayCharacter())
	return e
}

func (e *echo) toSamples(seconds float64) float64 {
	return clamp(seconds, minDelayTime, maxDelayTime) * e.sampleRate
}

func (e *echo) setDelayTime(seconds float64) {
	samples := e.toSamples(seconds)
	if samples == e.delaySamples {
		return
	}
	e.prevSamples = e.currentSamples()
	e.delaySamples = samples
	e.fadePos = 0
}

func (e *echo) getDelayTime() float64 {
	return e.delaySamples / e.sampleRate
}

func (e *echo) setFeedback(feedback float64) {
	e.feedback = clamp(feedback, 0, maxDelayFeedback)
}

func (e *echo) setDryWet(mix float64) {
	e.mix = clamp(mix, 0, 1)
}

func (e *echo) setSaturation(amount float64) {
	e.saturation = clamp(amount, 0, 1)
}

func (e *echo) setHighPass(freq float64) {
	freq = clamp(freq, 20, 2000)
	if freq == e.highPassHz {
		return
	}
	e.highPassHz = freq
	e.highPass.setCutoff(freq, e.sampleRate)
}

func (e *echo) setLowPass(freq float64) {
	freq = clamp(freq, 200, math.Min(20000, e.sampleRate*maxCutoffToRate))
	if freq == e.lowPassHz {
		return
	}
	e.lowPassHz = freq
	e.lowPass.setCutoff(freq, e.sampleRate)
}

func (e *echo) setWobble(depthSeconds float64, rate float64) {
	e.wobbleDepth = clamp(depthSeconds, 0, maxWobbleDepth) * e.sampleRate
	e.wobbleRate = clamp(rate, 0, 10)
}

func (e *echo) setCharacter(c DelayCharacter) {
	e.setSaturation(c.Saturation)
	e.setHighPass(c.HighPass)
	e.setLowPass(c.LowPass)
	e.setWobble(c.WobbleDepth, c.WobbleRate)
}

// the delay in samples the read cursor is heading to, blended while fading
func (e *echo) currentSamples() float64 {
	if e.fadePos >= e.fadeLength {
		return e.delaySamples
	}
	t := float64(e.fadePos) / float64(e.fadeLength)
	return e.prevSamples*(1-t) + e.delaySamples*t
}

func (e *echo) readAt(samples float64) float64 {
	maxSamples := float64(len(e.line.past) - 2)
	return e.line.read(clamp(samples, 1, maxSamples))
}

func (e *echo) saturate(x float64) float64 {
	if e.saturation <= 0 {
		return x
	}
	drive := 1 + e.saturation*3
	saturated := math.Tanh(x*drive) / drive
	return x*(1-e.saturation) + saturated*e.saturation
}

func (e *echo) processSample(in float64) float64 {
	wobble := e.wobbleDepth * math.Sin(e.wobblePhase)
	e.wobblePhase += twoPi * e.wobbleRate / e.sampleRate
	if e.wobblePhase >= twoPi {
		e.wobblePhase -= twoPi
	}

	var delayed float64
	if e.fadePos < e.fadeLength {
		t := float64(e.fadePos) / float64(e.fadeLength)
		delayed = e.readAt(e.prevSamples+wobble)*(1-t) + e.readAt(e.delaySamples+wobble)*t
		e.fadePos++
	} else {
		delayed = e.readAt(e.delaySamples + wobble)
	}

	fb := e.lowPass.lowPass(e.highPass.highPass(delayed))
	fb = e.saturate(fb)
	e.line.write(flushDenormal(in + fb*e.feedback))

	return in*(1-e.mix) + delayed*e.mix
}

func (e *echo) clear() {
	e.line.clear()
	e.highPass.z1 = 0
	e.lowPass.z1 = 0
}

func (e *echo) process(in []float64, out []float64) {
	for i := range in {
		out[i] = e.processSample(in[i])
	}
}
