package audio

import "math"

// ----- Transition Kind ----- //

const (
	transitionNone = iota
	transitionLinear
	transitionExponential
)

// ----- Transitive Value ----- //

// transitiveValue ramps a stepped target into a per-sample value so that
// parameter changes do not click. It is owned by the audio side.
type transitiveValue struct {
	kind         int
	sampleRate   float64
	duration     float64 // ms
	endThreshold float64
	initialValue float64
	targetValue  float64
	value        float64
	pos          int
	length       int // samples
}

func newTransitiveValue(sampleRate float64, kind int, duration float64, value float64) *transitiveValue {
	tv := &transitiveValue{
		kind:         kind,
		sampleRate:   sampleRate,
		duration:     duration,
		endThreshold: 0.001,
	}
	tv.init(value)
	return tv
}

func (tv *transitiveValue) init(value float64) {
	tv.initialValue = value
	tv.targetValue = value
	tv.value = value
	tv.pos = 0
	tv.length = 0
}

// setTarget restarts the ramp from the current value when target changed.
// Calling it every buffer with the same target is a no-op.
func (tv *transitiveValue) setTarget(target float64) {
	if target == tv.targetValue {
		return
	}
	tv.initialValue = tv.value
	tv.targetValue = target
	tv.pos = 0
	tv.length = int(tv.duration / 1000 * tv.sampleRate)
	if tv.kind == transitionNone || tv.length <= 0 {
		tv.end()
	}
}

func (tv *transitiveValue) ramping() bool {
	return tv.length > 0
}

// step advances one sample and returns the new value.
func (tv *transitiveValue) step() float64 {
	if tv.length == 0 {
		return tv.value
	}
	tv.pos++
	switch tv.kind {
	case transitionLinear:
		if tv.pos >= tv.length {
			tv.end()
		} else {
			t := float64(tv.pos) / float64(tv.length)
			tv.value = t*tv.targetValue + (1-t)*tv.initialValue
		}
	case transitionExponential:
		// five time constants across the duration
		t := float64(tv.pos) / float64(tv.length) * 5
		tv.value = setTargetAtTime(tv.initialValue, tv.targetValue, t)
		if tv.pos >= tv.length || math.Abs(tv.value-tv.targetValue) < tv.endThreshold {
			tv.end()
		}
	default:
		tv.end()
	}
	return tv.value
}

func (tv *transitiveValue) end() {
	tv.value = tv.targetValue
	tv.pos = 0
	tv.length = 0
}

// 63% closer to target when pos=1.0
func setTargetAtTime(initialValue float64, targetValue float64, pos float64) float64 {
	return targetValue + (initialValue-targetValue)*math.Exp(-pos)
}
