package audio

// ----- Reverb Tuning ----- //

// Freeverb tuning at 44.1kHz, scaled to the running sample rate.
var (
	combTuning    = [...]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTuning = [...]int{556, 441, 341, 225}
)

const (
	numCombs        = len(combTuning)
	numAllpasses    = len(allpassTuning)
	tuningRate      = 44100.0
	stereoSpread    = 23
	fixedGain       = 0.015
	scaleWet        = 3.0
	scaleDry        = 2.0
	scaleDamp       = 0.4
	scaleRoom       = 0.28
	offsetRoom      = 0.7
	maxRoomFeedback = 0.98
	allpassGain     = 0.5
)

// buffers of the feedback lines never hold values outside the output range
func safeWrite(v float64) float64 {
	return clamp(flushDenormal(v), -1, 1)
}

// ----- Comb ----- //

// comb is a damped feedback comb. Its delay memory is the slice
// arena[offset:offset+length] owned by the reverb.
type comb struct {
	offset      int
	length      int
	index       int
	filterStore float64
}

func (c *comb) process(arena []float64, in, feedback, damp1, damp2 float64) float64 {
	pos := c.offset + c.index
	out := arena[pos]
	c.filterStore = flushDenormal(out*damp2 + c.filterStore*damp1)
	arena[pos] = safeWrite(in + c.filterStore*feedback)
	c.index++
	if c.index >= c.length {
		c.index = 0
	}
	return out
}

// ----- Allpass ----- //

type allpass struct {
	offset int
	length int
	index  int
}

func (a *allpass) process(arena []float64, in float64) float64 {
	pos := a.offset + a.index
	bufOut := arena[pos]
	out := -in + bufOut
	arena[pos] = safeWrite(in + bufOut*allpassGain)
	a.index++
	if a.index >= a.length {
		a.index = 0
	}
	return out
}

// ----- Reverb ----- //

// reverb is the classic Schroeder/Moorer network: per channel 8 damped combs
// in parallel feeding 4 allpasses in series. The right channel lines are
// stereoSpread samples longer. The mono input is summed back to mono.
//
// All lines live in one arena allocated at construction.
type reverb struct {
	arena    []float64
	combsL   [numCombs]comb
	combsR   [numCombs]comb
	allpassL [numAllpasses]allpass
	allpassR [numAllpasses]allpass
	roomSize float64
	damping  float64
	wet      float64
	width    float64
	dry      float64
	wet1     float64
	wet2     float64
	feedback float64
	damp1    float64
	damp2    float64
}

func newReverb(sampleRate float64) *reverb {
	r := &reverb{
		roomSize: 0.5,
		damping:  0.5,
		wet:      0.35,
		width:    1.0,
	}
	scale := sampleRate / tuningRate
	total := 0
	layout := func(tuning int, spread int) (int, int) {
		length := int(float64(tuning)*scale) + spread
		if length < 1 {
			length = 1
		}
		offset := total
		total += length
		return offset, length
	}
	for i, t := range combTuning {
		r.combsL[i].offset, r.combsL[i].length = layout(t, 0)
		r.combsR[i].offset, r.combsR[i].length = layout(t, stereoSpread)
	}
	for i, t := range allpassTuning {
		r.allpassL[i].offset, r.allpassL[i].length = layout(t, 0)
		r.allpassR[i].offset, r.allpassR[i].length = layout(t, stereoSpread)
	}
	r.arena = make([]float64, total)
	r.updateCoefficients()
	return r
}

func (r *reverb) updateCoefficients() {
	r.feedback = r.roomSize*scaleRoom + offsetRoom
	if r.feedback > maxRoomFeedback {
		r.feedback = maxRoomFeedback
	}
	r.damp1 = r.damping * scaleDamp
	r.damp2 = 1 - r.damp1
	r.dry = 1 - r.wet
	r.wet1 = r.wet * (r.width/2 + 0.5)
	r.wet2 = r.wet * ((1 - r.width) / 2)
}

func (r *reverb) setSize(size float64) {
	r.roomSize = clamp(size, 0, 1)
	r.updateCoefficients()
}

func (r *reverb) setDryWet(mix float64) {
	r.wet = clamp(mix, 0, 1)
	r.updateCoefficients()
}

func (r *reverb) setDamping(damping float64) {
	r.damping = clamp(damping, 0, 1)
	r.updateCoefficients()
}

func (r *reverb) setWidth(width float64) {
	r.width = clamp(width, 0, 1)
	r.updateCoefficients()
}

func (r *reverb) processSample(in float64) float64 {
	scaled := in * fixedGain
	outL, outR := 0.0, 0.0
	for i := range r.combsL {
		outL += r.combsL[i].process(r.arena, scaled, r.feedback, r.damp1, r.damp2)
		outR += r.combsR[i].process(r.arena, scaled, r.feedback, r.damp1, r.damp2)
	}
	for i := range r.allpassL {
		outL = r.allpassL[i].process(r.arena, outL)
		outR = r.allpassR[i].process(r.arena, outR)
	}
	dry := in * r.dry * scaleDry * 0.5
	if r.wet == 0 {
		return dry
	}
	left := outL*r.wet1 + outR*r.wet2
	right := outR*r.wet1 + outL*r.wet2
	return (left+right)*0.5*scaleWet + dry
}

func (r *reverb) process(in []float64, out []float64) {
	for i := range in {
		out[i] = r.processSample(in[i])
	}
}

func (r *reverb) clear() {
	for i := range r.arena {
		r.arena[i] = 0
	}
	for i := range r.combsL {
		r.combsL[i].filterStore = 0
		r.combsR[i].filterStore = 0
	}
}
