package audio

import "math"

// ----- Envelope State ----- //

type envelopeState int

const (
	envelopeIdle envelopeState = iota
	envelopeAttack
	envelopeSustain
	envelopeRelease
)

func (s envelopeState) String() string {
	switch s {
	case envelopeAttack:
		return "attack"
	case envelopeSustain:
		return "sustain"
	case envelopeRelease:
		return "release"
	default:
		return "idle"
	}
}

// ----- Envelope ----- //

const (
	minEnvelopeTime = 0.001 // s
	maxEnvelopeTime = 10.0  // s
	// below this level the release is considered finished
	envelopeFloor = 0.001
)

// number of time constants after which the release reaches envelopeFloor
var releaseTimeConstants = math.Log(1 / envelopeFloor)

/*
  1 +     x--------------x
    |    /                \
    |   /                  \_
    |  /                     \__
  0 +-x-----------------------------
    |a    |sustain        |release|
*/
type envelope struct {
	sampleRate     float64
	attack         float64 // s
	release        float64 // s
	value          float64
	state          envelopeState
	pos            int
	valueAtTrigger float64
	valueAtRelease float64
}

func newEnvelope(sampleRate float64) *envelope {
	return &envelope{
		sampleRate: sampleRate,
		attack:     0.01,
		release:    0.5,
	}
}

func (e *envelope) setAttack(seconds float64) {
	e.attack = clamp(seconds, minEnvelopeTime, maxEnvelopeTime)
}

func (e *envelope) setRelease(seconds float64) {
	e.release = clamp(seconds, minEnvelopeTime, maxEnvelopeTime)
}

// trigger restarts the attack from the current level, from any state.
func (e *envelope) trigger() {
	e.state = envelopeAttack
	e.pos = 0
	e.valueAtTrigger = e.value
}

func (e *envelope) noteOff() {
	if e.state != envelopeAttack && e.state != envelopeSustain {
		return
	}
	e.state = envelopeRelease
	e.pos = 0
	e.valueAtRelease = e.value
}

func (e *envelope) reset() {
	e.state = envelopeIdle
	e.pos = 0
	e.value = 0
}

func (e *envelope) isActive() bool {
	return e.state != envelopeIdle
}

func (e *envelope) step() float64 {
	switch e.state {
	case envelopeAttack:
		e.pos++
		t := float64(e.pos) / (e.attack * e.sampleRate)
		if t >= 1 {
			e.state = envelopeSustain
			e.pos = 0
			e.value = 1
		} else {
			e.value = e.valueAtTrigger + (1-e.valueAtTrigger)*t
		}
	case envelopeSustain:
		e.value = 1
	case envelopeRelease:
		e.pos++
		t := float64(e.pos) / (e.release * e.sampleRate) * releaseTimeConstants
		e.value = setTargetAtTime(e.valueAtRelease, 0, t)
		if e.value < envelopeFloor {
			e.state = envelopeIdle
			e.pos = 0
			e.value = 0
		}
	default:
		e.value = 0
	}
	return e.value
}

func (e *envelope) generate(out []float64) {
	for i := range out {
		out[i] = e.step()
	}
}
