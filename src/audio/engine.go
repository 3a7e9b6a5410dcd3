package audio

import (
	"math"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultSampleRate = 48000
	DefaultBufferSize = 256

	minSampleRate = 8000
	maxSampleRate = 192000
	minBufferSize = 16
	maxBufferSize = 8192

	minFrequency = 20.0
	maxFrequency = 20000.0

	frequencySmoothingTime = 20.0 // ms
	lfoCutoffOctaves       = 2.0
	minModulatedCutoff     = 100.0
	maxModulatedCutoff     = 8000.0

	gateQueueSize = 64
)

// ----- Config ----- //

// Config is the construction-time configuration of an Engine. Out of range
// values are clamped to the nearest valid boundary.
type Config struct {
	SampleRate int
	BufferSize int
}

func DefaultConfig() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		BufferSize: DefaultBufferSize,
	}
}

func (c Config) normalized() Config {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	c.SampleRate = clampInt(c.SampleRate, minSampleRate, maxSampleRate)
	c.BufferSize = clampInt(c.BufferSize, minBufferSize, maxBufferSize)
	return c
}

// ----- Gate ----- //

type gateEvent int

const (
	gateTrigger gateEvent = iota
	gateRelease
	gateReset
)

// ----- Scratch ----- //

// scratch holds every intermediate buffer of one chunk. A new set is only
// allocated by SetBufferSize on the control side.
type scratch struct {
	size     int
	osc      []float64
	lfo      []float64
	env      []float64
	filtered []float64
	delayed  []float64
	reverbed []float64
}

func newScratch(size int) *scratch {
	return &scratch{
		size:     size,
		osc:      make([]float64, size),
		lfo:      make([]float64, size),
		env:      make([]float64, size),
		filtered: make([]float64, size),
		delayed:  make([]float64, size),
		reverbed: make([]float64, size),
	}
}

// ----- Status ----- //

// Status is a point-in-time view of the engine for displays.
type Status struct {
	Volume          float64
	Frequency       float64
	Waveform        Waveform
	Attack          float64
	Release         float64
	LfoRate         float64
	LfoDepth        float64
	LfoWaveform     Waveform
	FilterCutoff    float64
	FilterResonance float64
	DelayTime       float64
	DelayFeedback   float64
	DelayMix        float64
	DelayCharacter  DelayCharacter
	ReverbSize      float64
	ReverbMix       float64
	ReverbDamping   float64
	PitchEnvelope   PitchEnvelopeMode
	Playing         bool
	Envelope        string
	Level           float64
	DroppedGates    int64
}

// ----- Engine ----- //

// Engine is the synthesis chain of the siren: oscillator, envelope, filter,
// delay, reverb and DC blocker, rendered as dual mono.
//
// Process belongs to the audio role and must have a single caller. Every
// other method belongs to the control role; setters publish through
// Parameter cells and Trigger/Release are queued and applied at the start of
// the next chunk, so the audio role never waits for the control role.
type Engine struct {
	sampleRate float64

	scratch atomic.Pointer[scratch]
	gate    chan gateEvent

	gateOpen     atomic.Bool
	active       atomic.Bool
	envState     atomic.Int32 // envelopeState
	level        atomic.Uint64 // math.Float64bits
	droppedGates atomic.Int64

	volume          *Parameter[float64]
	frequency       *Parameter[float64]
	waveform        *Parameter[Waveform]
	attack          *Parameter[float64]
	release         *Parameter[float64]
	lfoRate         *Parameter[float64]
	lfoDepth        *Parameter[float64]
	lfoWaveform     *Parameter[Waveform]
	filterCutoff    *Parameter[float64]
	filterResonance *Parameter[float64]
	delayTime       *Parameter[float64]
	delayFeedback   *Parameter[float64]
	delayMix        *Parameter[float64]
	delayCharacter  *Parameter[DelayCharacter]
	reverbSize      *Parameter[float64]
	reverbMix       *Parameter[float64]
	reverbDamping   *Parameter[float64]
	pitchMode       *Parameter[PitchEnvelopeMode]

	// owned by the audio role
	osc      *osc
	lfo      *lfo
	env      *envelope
	filter   *lowPassFilter
	echo     *echo
	reverb   *reverb
	dc       dcBlocker
	freq     *transitiveValue
	pitchEnv *pitchEnvelope
	gain     float64
}

func NewEngine(config Config) *Engine {
	config = config.normalized()
	sampleRate := float64(config.SampleRate)
	e := &Engine{
		sampleRate: sampleRate,
		gate:       make(chan gateEvent, gateQueueSize),

		volume:          newParameter(0.7),
		frequency:       newParameter(440.0),
		waveform:        newParameter(Sine),
		attack:          newParameter(0.01),
		release:         newParameter(0.5),
		lfoRate:         newParameter(4.0),
		lfoDepth:        newParameter(0.0),
		lfoWaveform:     newParameter(Sine),
		filterCutoff:    newParameter(2000.0),
		filterResonance: newParameter(0.0),
		delayTime:       newParameter(0.5),
		delayFeedback:   newParameter(0.5),
		delayMix:        newParameter(0.3),
		delayCharacter:  newParameter(DefaultDelayCharacter()),
		reverbSize:      newParameter(0.5),
		reverbMix:       newParameter(0.35),
		reverbDamping:   newParameter(0.5),
		pitchMode:       newParameter(PitchNone),

		osc:      newOsc(sampleRate, 440),
		lfo:      newLfo(sampleRate),
		env:      newEnvelope(sampleRate),
		filter:   newLowPassFilter(sampleRate),
		echo:     newEcho(sampleRate),
		reverb:   newReverb(sampleRate),
		freq:     newTransitiveValue(sampleRate, transitionLinear, frequencySmoothingTime, 440),
		pitchEnv: newPitchEnvelope(sampleRate),
	}
	e.scratch.Store(newScratch(config.BufferSize))
	e.applyParams()
	return e
}

func (e *Engine) SampleRate() int {
	return int(e.sampleRate)
}

func (e *Engine) BufferSize() int {
	return e.scratch.Load().size
}

// SetBufferSize replaces the scratch buffers. The audio role picks the new
// set up at its next Process call.
func (e *Engine) SetBufferSize(size int) {
	size = clampInt(size, minBufferSize, maxBufferSize)
	e.scratch.Store(newScratch(size))
	log.WithFields(log.Fields{"frames": size}).Info("engine buffer size changed")
}

// Process fills out with numFrames interleaved stereo frames in [-1, 1].
// numFrames larger than the buffer size is rendered in several chunks.
func (e *Engine) Process(out []float32, numFrames int) {
	if numFrames > len(out)/2 {
		numFrames = len(out) / 2
	}
	if numFrames <= 0 {
		return
	}
	s := e.scratch.Load()
	for offset := 0; offset < numFrames; {
		n := min(numFrames-offset, s.size)
		// params first so a trigger latches the latest pitch envelope mode
		e.applyParams()
		e.applyGates()
		e.processChunk(s, out[offset*2:(offset+n)*2], n)
		offset += n
	}
	e.publishState()
}

func (e *Engine) applyGates() {
	for {
		select {
		case g := <-e.gate:
			switch g {
			case gateTrigger:
				e.osc.resetPhase()
				e.env.trigger()
				e.pitchEnv.trigger()
			case gateRelease:
				e.env.noteOff()
			case gateReset:
				e.env.reset()
				e.filter.reset()
				e.echo.clear()
				e.reverb.clear()
				e.dc = dcBlocker{}
			}
		default:
			return
		}
	}
}

func (e *Engine) applyParams() {
	e.gain = e.volume.Get()
	e.osc.setWaveform(e.waveform.Get())
	e.env.setAttack(e.attack.Get())
	e.env.setRelease(e.release.Get())
	e.lfo.setRate(e.lfoRate.Get())
	e.lfo.setDepth(e.lfoDepth.Get())
	e.lfo.setWaveform(e.lfoWaveform.Get())
	e.filter.setCutoff(e.filterCutoff.Get())
	e.filter.setResonance(e.filterResonance.Get())
	e.echo.setDelayTime(e.delayTime.Get())
	e.echo.setFeedback(e.delayFeedback.Get())
	e.echo.setDryWet(e.delayMix.Get())
	e.echo.setCharacter(e.delayCharacter.Get())
	e.reverb.setSize(e.reverbSize.Get())
	e.reverb.setDryWet(e.reverbMix.Get())
	e.reverb.setDamping(e.reverbDamping.Get())
	e.pitchEnv.setMode(e.pitchMode.Get())
}

func (e *Engine) processChunk(s *scratch, out []float32, n int) {
	oscBuf := s.osc[:n]
	lfoBuf := s.lfo[:n]
	envBuf := s.env[:n]
	filtered := s.filtered[:n]
	delayed := s.delayed[:n]
	reverbed := s.reverbed[:n]

	e.freq.setTarget(e.frequency.Get())
	for i := range oscBuf {
		f := e.freq.step() * e.pitchEnv.step()
		e.osc.setFrequency(clamp(f, minFrequency, maxFrequency))
		oscBuf[i] = e.osc.generateSample()
	}

	e.lfo.generate(lfoBuf)
	e.env.generate(envBuf)

	base := e.filter.getCutoff()
	for i, x := range oscBuf {
		cutoff := base * math.Exp2(lfoBuf[i]*lfoCutoffOctaves)
		e.filter.modulate(clamp(cutoff, minModulatedCutoff, maxModulatedCutoff))
		filtered[i] = e.filter.processSample(x)
	}
	e.filter.restore()

	for i, amp := range envBuf {
		if amp < envelopeFloor {
			filtered[i] = 0
		} else {
			filtered[i] *= amp
		}
	}

	e.echo.process(filtered, delayed)
	e.reverb.process(delayed, reverbed)
	e.dc.process(reverbed, reverbed)

	for i, x := range reverbed {
		v := float32(clamp(x, -1, 1) * e.gain)
		out[i*2] = v
		out[i*2+1] = v
	}
}

func (e *Engine) publishState() {
	level := e.env.value
	e.level.Store(math.Float64bits(level))
	e.envState.Store(int32(e.env.state))
	e.active.Store(e.env.isActive() || level > envelopeFloor)
}

// ----- Gate Control ----- //

// sendGate reports whether the event was queued.
func (e *Engine) sendGate(g gateEvent) bool {
	select {
	case e.gate <- g:
		return true
	default:
		n := e.droppedGates.Add(1)
		log.WithFields(log.Fields{"dropped": n}).Warn("gate queue full, event dropped")
		return false
	}
}

// Trigger restarts the oscillator at phase 0 and the envelope in attack at
// the start of the next chunk.
func (e *Engine) Trigger() {
	if e.sendGate(gateTrigger) {
		e.gateOpen.Store(true)
	}
}

// Release moves the envelope into release at the start of the next chunk.
func (e *Engine) Release() {
	if e.sendGate(gateRelease) {
		e.gateOpen.Store(false)
	}
}

// Reset silences the voice and clears the delay and reverb tails at the start
// of the next chunk.
func (e *Engine) Reset() {
	if e.sendGate(gateReset) {
		e.gateOpen.Store(false)
	}
}

// CyclePitchEnvelope advances none, up, down, none and returns the new mode's
// name. The new mode takes effect at the next trigger.
func (e *Engine) CyclePitchEnvelope() string {
	next := e.pitchMode.Get().Next()
	e.pitchMode.Set(next)
	return next.String()
}

// ----- Setters ----- //

func (e *Engine) SetVolume(volume float64) {
	e.volume.Set(clamp(volume, 0, 1))
}

func (e *Engine) SetFrequency(freq float64) {
	e.frequency.Set(clamp(freq, minFrequency, maxFrequency))
}

func (e *Engine) SetWaveform(kind Waveform) {
	e.waveform.Set(WaveformFromIndex(int(kind)))
}

func (e *Engine) SetWaveformIndex(index int) {
	e.waveform.Set(WaveformFromIndex(index))
}

func (e *Engine) SetAttackTime(seconds float64) {
	e.attack.Set(clamp(seconds, minEnvelopeTime, maxEnvelopeTime))
}

func (e *Engine) SetReleaseTime(seconds float64) {
	e.release.Set(clamp(seconds, minEnvelopeTime, maxEnvelopeTime))
}

func (e *Engine) SetLfoRate(rate float64) {
	e.lfoRate.Set(clamp(rate, minLfoRate, maxLfoRate))
}

func (e *Engine) SetLfoDepth(depth float64) {
	e.lfoDepth.Set(clamp(depth, 0, 1))
}

func (e *Engine) SetLfoWaveform(kind Waveform) {
	e.lfoWaveform.Set(WaveformFromIndex(int(kind)))
}

func (e *Engine) SetLfoWaveformIndex(index int) {
	e.lfoWaveform.Set(WaveformFromIndex(index))
}

func (e *Engine) SetFilterCutoff(cutoff float64) {
	e.filterCutoff.Set(clamp(cutoff, minCutoff, maxCutoff))
}

func (e *Engine) SetFilterResonance(resonance float64) {
	e.filterResonance.Set(clamp(resonance, 0, maxResonance))
}

func (e *Engine) SetDelayTime(seconds float64) {
	e.delayTime.Set(clamp(seconds, minDelayTime, maxDelayTime))
}

func (e *Engine) SetDelayFeedback(feedback float64) {
	e.delayFeedback.Set(clamp(feedback, 0, maxDelayFeedback))
}

func (e *Engine) SetDelayMix(mix float64) {
	e.delayMix.Set(clamp(mix, 0, 1))
}

// SetDelayCharacter sets the tone, saturation and wobble of the delay
// feedback path.
func (e *Engine) SetDelayCharacter(c DelayCharacter) {
	e.delayCharacter.Set(c)
}

func (e *Engine) SetReverbSize(size float64) {
	e.reverbSize.Set(clamp(size, 0, 1))
}

func (e *Engine) SetReverbMix(mix float64) {
	e.reverbMix.Set(clamp(mix, 0, 1))
}

func (e *Engine) SetReverbDamping(damping float64) {
	e.reverbDamping.Set(clamp(damping, 0, 1))
}

func (e *Engine) SetPitchEnvelopeMode(mode PitchEnvelopeMode) {
	if mode < 0 || mode >= numPitchEnvelopeModes {
		mode = PitchNone
	}
	e.pitchMode.Set(mode)
}

// ----- Getters ----- //

func (e *Engine) GetVolume() float64 {
	return e.volume.Get()
}

func (e *Engine) GetFrequency() float64 {
	return e.frequency.Get()
}

func (e *Engine) GetPitchEnvelopeMode() PitchEnvelopeMode {
	return e.pitchMode.Get()
}

// IsPlaying reports whether the gate is held or the envelope is still
// audible.
func (e *Engine) IsPlaying() bool {
	return e.gateOpen.Load() || e.active.Load()
}

func (e *Engine) Snapshot() Status {
	return Status{
		Volume:          e.volume.Get(),
		Frequency:       e.frequency.Get(),
		Waveform:        e.waveform.Get(),
		Attack:          e.attack.Get(),
		Release:         e.release.Get(),
		LfoRate:         e.lfoRate.Get(),
		LfoDepth:        e.lfoDepth.Get(),
		LfoWaveform:     e.lfoWaveform.Get(),
		FilterCutoff:    e.filterCutoff.Get(),
		FilterResonance: e.filterResonance.Get(),
		DelayTime:       e.delayTime.Get(),
		DelayFeedback:   e.delayFeedback.Get(),
		DelayMix:        e.delayMix.Get(),
		DelayCharacter:  e.delayCharacter.Get(),
		ReverbSize:      e.reverbSize.Get(),
		ReverbMix:       e.reverbMix.Get(),
		ReverbDamping:   e.reverbDamping.Get(),
		PitchEnvelope:   e.pitchMode.Get(),
		Playing:         e.IsPlaying(),
		Envelope:        envelopeState(e.envState.Load()).String(),
		Level:           math.Float64frombits(e.level.Load()),
		DroppedGates:    e.droppedGates.Load(),
	}
}
