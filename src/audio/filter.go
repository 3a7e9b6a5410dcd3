package audio

import "math"

// ----- Low Pass Filter ----- //

const (
	minCutoff       = 20.0
	maxCutoff       = 20000.0
	maxResonance    = 0.95
	maxCutoffToRate = 0.45
)

// lowPassFilter is a topology-preserving state variable filter (Simper's
// trapezoidal SVF) used in lowpass mode. k = 2(1 - resonance) stays above
// 0.1, so the filter never self-oscillates.
type lowPassFilter struct {
	sampleRate float64
	cutoff     float64
	resonance  float64

	// cached coefficients for effCutoff
	effCutoff float64
	k         float64
	a1        float64
	a2        float64
	a3        float64

	// integrator memory
	ic1eq float64
	ic2eq float64
}

func newLowPassFilter(sampleRate float64) *lowPassFilter {
	f := &lowPassFilter{
		sampleRate: sampleRate,
		cutoff:     2000,
		resonance:  0,
	}
	f.updateCoefficients(f.cutoff)
	return f
}

func (f *lowPassFilter) maxCutoff() float64 {
	return math.Min(maxCutoff, f.sampleRate*maxCutoffToRate)
}

func (f *lowPassFilter) setCutoff(cutoff float64) {
	f.cutoff = clamp(cutoff, minCutoff, f.maxCutoff())
	f.updateCoefficients(f.cutoff)
}

func (f *lowPassFilter) getCutoff() float64 {
	return f.cutoff
}

func (f *lowPassFilter) setResonance(resonance float64) {
	resonance = clamp(resonance, 0, maxResonance)
	if resonance == f.resonance {
		return
	}
	f.resonance = resonance
	f.effCutoff = 0
	f.updateCoefficients(f.cutoff)
}

// modulate sets the cutoff used by the next samples without touching the base
// cutoff. setCutoff or restore brings the base back.
func (f *lowPassFilter) modulate(cutoff float64) {
	f.updateCoefficients(clamp(cutoff, minCutoff, f.maxCutoff()))
}

func (f *lowPassFilter) restore() {
	f.updateCoefficients(f.cutoff)
}

func (f *lowPassFilter) updateCoefficients(cutoff float64) {
	if cutoff == f.effCutoff {
		return
	}
	f.effCutoff = cutoff
	g := math.Tan(math.Pi * cutoff / f.sampleRate)
	f.k = 2 * (1 - f.resonance)
	f.a1 = 1 / (1 + g*(g+f.k))
	f.a2 = g * f.a1
	f.a3 = g * f.a2
}

func (f *lowPassFilter) processSample(in float64) float64 {
	v3 := in - f.ic2eq
	v1 := f.a1*f.ic1eq + f.a2*v3
	v2 := f.ic2eq + f.a2*f.ic1eq + f.a3*v3
	f.ic1eq = flushDenormal(2*v1 - f.ic1eq)
	f.ic2eq = flushDenormal(2*v2 - f.ic2eq)
	return v2
}

func (f *lowPassFilter) reset() {
	f.ic1eq = 0
	f.ic2eq = 0
}

// ----- One Pole ----- //

// onePole is a first order smoother used in the delay feedback path.
type onePole struct {
	coef float64
	z1   float64
}

func (p *onePole) setCutoff(cutoff float64, sampleRate float64) {
	p.coef = math.Exp(-twoPi * cutoff / sampleRate)
}

func (p *onePole) lowPass(in float64) float64 {
	p.z1 = flushDenormal(in*(1-p.coef) + p.z1*p.coef)
	return p.z1
}

func (p *onePole) highPass(in float64) float64 {
	return in - p.lowPass(in)
}

// ----- Denormal ----- //

const denormalThreshold = 1e-10

func flushDenormal(v float64) float64 {
	if v > -denormalThreshold && v < denormalThreshold {
		return 0
	}
	return v
}
