package audio

import (
	"math"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestConfigIsClamped(t *testing.T) {
	e := NewEngine(Config{SampleRate: 1, BufferSize: -5})
	expectEqual(t, e.SampleRate(), minSampleRate)
	expectEqual(t, e.BufferSize(), minBufferSize)

	e = NewEngine(Config{})
	expectEqual(t, e.SampleRate(), DefaultSampleRate)
	expectEqual(t, e.BufferSize(), DefaultBufferSize)

	e = NewEngine(Config{SampleRate: 1000000, BufferSize: 100000})
	expectEqual(t, e.SampleRate(), maxSampleRate)
	expectEqual(t, e.BufferSize(), maxBufferSize)
}

func TestSettersClamp(t *testing.T) {
	e := newTestEngine()
	e.SetVolume(1.5)
	expectEqual(t, e.GetVolume(), 1.0)
	e.SetVolume(-1)
	expectEqual(t, e.GetVolume(), 0.0)
	e.SetFrequency(5)
	expectEqual(t, e.GetFrequency(), 20.0)
	e.SetFrequency(50000)
	expectEqual(t, e.GetFrequency(), 20000.0)
	e.SetFilterResonance(3)
	e.SetFilterCutoff(0)
	e.SetDelayTime(-1)
	e.SetDelayFeedback(2)
	e.SetReverbSize(2)
	e.SetReverbMix(-2)
	e.SetReverbDamping(9)
	e.SetAttackTime(0)
	e.SetReleaseTime(100)
	e.SetLfoRate(1000)
	e.SetLfoDepth(-3)
	e.SetWaveformIndex(-1)
	e.SetLfoWaveformIndex(5)

	s := e.Snapshot()
	expectEqual(t, s.FilterResonance, 0.95)
	expectEqual(t, s.FilterCutoff, 20.0)
	expectEqual(t, s.DelayTime, 0.001)
	expectEqual(t, s.DelayFeedback, 0.95)
	expectEqual(t, s.ReverbSize, 1.0)
	expectEqual(t, s.ReverbMix, 0.0)
	expectEqual(t, s.ReverbDamping, 1.0)
	expectEqual(t, s.Attack, 0.001)
	expectEqual(t, s.Release, 10.0)
	expectEqual(t, s.LfoRate, 50.0)
	expectEqual(t, s.LfoDepth, 0.0)
	expectEqual(t, s.Waveform, Triangle)
	expectEqual(t, s.LfoWaveform, Square)
}

func TestVolumeBoundsOutput(t *testing.T) {
	for _, v := range []float64{0.1, 0.25, 0.5, 1} {
		e := newTestEngine()
		e.SetVolume(v)
		e.SetWaveform(Square)
		e.SetFilterCutoff(8000)
		e.SetFilterResonance(0.95)
		e.SetLfoDepth(1)
		e.SetDelayFeedback(0.95)
		e.SetDelayMix(1)
		e.SetReverbMix(1)
		e.SetReverbSize(1)
		e.Trigger()
		for _, x := range render(e, 200) {
			if math.Abs(float64(x)) > v+1e-6 {
				t.Fatalf("volume %v: sample %v out of bound", v, x)
			}
		}
	}
}

func TestVolumeZeroIsSilent(t *testing.T) {
	e := newTestEngine()
	e.SetVolume(0)
	e.SetWaveform(Saw)
	e.Trigger()
	for i, x := range render(e, 50) {
		if x != 0 {
			t.Fatalf("sample %d: expected 0, but got %v", i, x)
		}
	}
}

func TestTriggerResetsPhaseAndStartsAttack(t *testing.T) {
	e := newTestEngine()
	e.SetWaveform(Saw)
	render(e, 3)

	e.Trigger()
	render(e, 1)
	s := e.scratch.Load()
	// saw at phase 0
	expectEqual(t, s.osc[0], -1.0)
	expectEqual(t, e.env.state, envelopeAttack)
	expectTrue(t, s.env[0] > 0, "expected non-zero attack, but got %v", s.env[0])
	for i := 1; i < s.size; i++ {
		if s.env[i] <= s.env[i-1] {
			t.Fatalf("envelope is not increasing at %d: %v -> %v", i, s.env[i-1], s.env[i])
		}
	}
}

func TestReleaseDecaysToIdle(t *testing.T) {
	e := newTestEngine()
	e.SetAttackTime(0.001)
	e.SetReleaseTime(0.05)
	e.Trigger()
	render(e, 10)
	expectEqual(t, e.env.state, envelopeSustain)
	expectTrue(t, e.IsPlaying(), "expected playing while sustained")

	e.Release()
	prev := 1.0
	for n := 0; n < 100 && e.env.state != envelopeIdle; n++ {
		render(e, 1)
		s := e.scratch.Load()
		for i := 0; i < s.size; i++ {
			if s.env[i] > prev {
				t.Fatalf("envelope increased during release: %v -> %v", prev, s.env[i])
			}
			prev = s.env[i]
		}
	}
	expectEqual(t, e.env.state, envelopeIdle)
	expectEqual(t, e.env.value, 0.0)
	expectEqual(t, e.IsPlaying(), false)
}

func TestIsPlayingFollowsGate(t *testing.T) {
	e := newTestEngine()
	expectEqual(t, e.IsPlaying(), false)
	e.Trigger()
	expectEqual(t, e.IsPlaying(), true)
	render(e, 1)
	expectEqual(t, e.IsPlaying(), true)
	e.Release()
	render(e, 1)
	// still audible while releasing
	expectEqual(t, e.IsPlaying(), true)
	expectTrue(t, e.Snapshot().Level > envelopeFloor, "expected residual level")
}

func TestSettersAreIdempotent(t *testing.T) {
	once := newTestEngine()
	twice := newTestEngine()

	once.SetFilterCutoff(1200)
	once.SetFilterResonance(2)
	once.SetLfoDepth(0.3)
	once.SetDelayTime(0.25)

	twice.SetFilterCutoff(1200)
	twice.SetFilterCutoff(1200)
	twice.SetFilterResonance(0.95)
	twice.SetFilterResonance(0.95)
	twice.SetLfoDepth(0.3)
	twice.SetLfoDepth(0.3)
	twice.SetDelayTime(0.25)
	twice.SetDelayTime(0.25)

	once.Trigger()
	twice.Trigger()
	a := render(once, 40)
	b := render(twice, 40)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %v != %v", i, a[i], b[i])
		}
	}
}

func TestFrequencyConverges(t *testing.T) {
	e := newTestEngine()
	e.SetFrequency(440)
	e.SetWaveform(Sine)
	e.Trigger()
	render(e, 10)
	expectNearlyEqual(t, e.osc.freq, 440)

	e.SetFrequency(880)
	render(e, 1)
	// 20ms ramp is 960 samples long
	expectTrue(t, e.osc.freq > 440 && e.osc.freq < 880, "expected ramping frequency, but got %v", e.osc.freq)
	render(e, 4)
	expectNearlyEqual(t, e.osc.freq, 880)
}

func TestPitchEnvelopeSweepsFrequency(t *testing.T) {
	e := newTestEngine()
	e.SetPitchEnvelopeMode(PitchUp)
	e.Trigger()
	render(e, 200)
	expectNearlyEqual(t, e.osc.freq, 880)

	e.SetPitchEnvelopeMode(PitchDown)
	e.Trigger()
	render(e, 200)
	expectNearlyEqual(t, e.osc.freq, 220)

	e.SetPitchEnvelopeMode(PitchNone)
	e.Trigger()
	render(e, 1)
	expectNearlyEqual(t, e.osc.freq, 440)
}

func TestPitchEnvelopeModeChangeWaitsForTrigger(t *testing.T) {
	e := newTestEngine()
	e.Trigger()
	render(e, 200)
	expectNearlyEqual(t, e.osc.freq, 440)

	expectEqual(t, e.CyclePitchEnvelope(), "up")
	render(e, 200)
	// the held note keeps its pitch
	expectNearlyEqual(t, e.osc.freq, 440)

	e.Trigger()
	render(e, 200)
	expectNearlyEqual(t, e.osc.freq, 880)
}

func TestTriggerLatchesModeSetBeforeIt(t *testing.T) {
	e := newTestEngine()
	e.SetPitchEnvelopeMode(PitchDown)
	e.Trigger()
	out := make([]float32, 4*e.BufferSize()*2)
	// one call, four chunks
	e.Process(out, 4*e.BufferSize())
	expectTrue(t, e.osc.freq < 440, "expected a downward sweep, but got %v", e.osc.freq)
	expectEqual(t, e.pitchEnv.mode, PitchDown)
}

func TestCyclePitchEnvelope(t *testing.T) {
	e := newTestEngine()
	expectEqual(t, e.GetPitchEnvelopeMode(), PitchNone)
	expectEqual(t, e.CyclePitchEnvelope(), "up")
	expectEqual(t, e.CyclePitchEnvelope(), "down")
	expectEqual(t, e.CyclePitchEnvelope(), "none")
	expectEqual(t, e.GetPitchEnvelopeMode(), PitchNone)
}

func TestProcessInChunks(t *testing.T) {
	whole := newTestEngine()
	chunked := newTestEngine()
	chunked.SetBufferSize(64)
	expectEqual(t, chunked.BufferSize(), 64)

	whole.Trigger()
	chunked.Trigger()
	a := make([]float32, 512)
	b := make([]float32, 512)
	for n := 0; n < 20; n++ {
		whole.Process(a, 256)
		chunked.Process(b, 256)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("buffer %d sample %d differs: %v != %v", n, i, a[i], b[i])
			}
		}
	}
}

func TestProcessClampsFrameCount(t *testing.T) {
	e := newTestEngine()
	e.Trigger()
	out := make([]float32, 10)
	e.Process(out, 1000)
	e.Process(out, 0)
	e.Process(nil, 256)

	e.SetBufferSize(0)
	expectEqual(t, e.BufferSize(), minBufferSize)
}

func TestDroppedGatesAreCounted(t *testing.T) {
	e := newTestEngine()
	for i := 0; i < gateQueueSize+10; i++ {
		e.Trigger()
	}
	expectEqual(t, e.Snapshot().DroppedGates, int64(10))
	render(e, 1)
	e.Release()
	expectEqual(t, e.Snapshot().DroppedGates, int64(10))
}

func TestDroppedTriggerDoesNotOpenGate(t *testing.T) {
	e := newTestEngine()
	for i := 0; i < gateQueueSize; i++ {
		e.Release()
	}
	e.Trigger()
	expectEqual(t, e.Snapshot().DroppedGates, int64(1))
	expectEqual(t, e.IsPlaying(), false)
	render(e, 50)
	expectEqual(t, e.env.state, envelopeIdle)
	expectEqual(t, e.IsPlaying(), false)

	// the queue is drained, so the next trigger goes through
	e.Trigger()
	expectEqual(t, e.IsPlaying(), true)
	render(e, 1)
	expectEqual(t, e.Snapshot().Envelope, "attack")
}

func TestProcessDoesNotAllocate(t *testing.T) {
	e := newTestEngine()
	e.SetLfoDepth(0.5)
	e.SetFilterResonance(0.8)
	e.SetDelayMix(0.5)
	e.SetDelayTime(0.3)
	e.SetPitchEnvelopeMode(PitchUp)
	e.Trigger()
	frames := 4 * e.BufferSize()
	out := make([]float32, frames*2)
	e.Process(out, frames)

	allocs := testing.AllocsPerRun(100, func() {
		e.Process(out, frames)
	})
	expectEqual(t, allocs, 0.0)
}

func TestControlRunsConcurrentlyWithProcess(t *testing.T) {
	// dropped gates and buffer changes would flood the output
	level := log.GetLevel()
	log.SetLevel(log.ErrorLevel)
	defer log.SetLevel(level)

	e := newTestEngine()
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			f := float64(i % 100)
			e.SetVolume(f / 100)
			e.SetFrequency(220 + f)
			e.SetFilterCutoff(500 + f*10)
			e.SetFilterResonance(f / 100)
			e.SetLfoDepth(f / 200)
			e.SetLfoWaveformIndex(i)
			e.SetWaveformIndex(i)
			e.SetDelayTime(0.01 + f/1000)
			e.SetReverbSize(f / 100)
			e.CyclePitchEnvelope()
			if i%2 == 0 {
				e.Trigger()
			} else {
				e.Release()
			}
			if i%50 == 0 {
				e.SetBufferSize(64 + i%3*96)
			}
			_ = e.Snapshot()
			_ = e.IsPlaying()
			time.Sleep(50 * time.Microsecond)
		}
	}()

	out := make([]float32, 2*1024)
	for n := 0; n < 2000; n++ {
		e.Process(out, 1024)
		for i, x := range out {
			if x < -1 || x > 1 || math.IsNaN(float64(x)) {
				close(done)
				wg.Wait()
				t.Fatalf("buffer %d sample %d out of range: %v", n, i, x)
			}
		}
	}
	close(done)
	wg.Wait()
}

func TestResetClearsTails(t *testing.T) {
	e := newTestEngine()
	e.SetDelayMix(1)
	e.SetReverbMix(1)
	e.Trigger()
	render(e, 20)

	e.Reset()
	for i, x := range render(e, 5) {
		if x != 0 {
			t.Fatalf("sample %d: expected silence after reset, but got %v", i, x)
		}
	}
	expectEqual(t, e.IsPlaying(), false)
}

func TestOutputIsDualMono(t *testing.T) {
	e := newTestEngine()
	e.SetWaveform(Triangle)
	e.Trigger()
	out := render(e, 10)
	for i := 0; i < len(out); i += 2 {
		if out[i] != out[i+1] {
			t.Fatalf("frame %d: left %v != right %v", i/2, out[i], out[i+1])
		}
	}
}
