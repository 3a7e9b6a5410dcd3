package audio

import (
	"math"
	"testing"
)

func TestCombImpulseRoundTrip(t *testing.T) {
	length := 7
	arena := make([]float64, length)
	c := comb{offset: 0, length: length}

	out := c.process(arena, 1, 0, 0, 1)
	expectEqual(t, out, 0.0)
	for i := 1; i < length; i++ {
		expectEqual(t, c.process(arena, 0, 0, 0, 1), 0.0)
		expectTrue(t, c.index >= 0 && c.index < length, "index out of range: %d", c.index)
	}
	expectEqual(t, c.index, 0)
	expectEqual(t, c.process(arena, 0, 0, 0, 1), 1.0)
}

func TestAllpassImpulseRoundTrip(t *testing.T) {
	length := 5
	arena := make([]float64, length)
	a := allpass{offset: 0, length: length}

	expectEqual(t, a.process(arena, 1), -1.0)
	for i := 1; i < length; i++ {
		expectEqual(t, a.process(arena, 0), 0.0)
		expectTrue(t, a.index >= 0 && a.index < length, "index out of range: %d", a.index)
	}
	expectEqual(t, a.index, 0)
	expectEqual(t, a.process(arena, 0), 1.0)
}

func TestReverbLinesFitArena(t *testing.T) {
	for _, sampleRate := range []float64{8000, 44100, 48000, 96000, 192000} {
		r := newReverb(sampleRate)
		end := 0
		check := func(offset, length int) {
			expectEqual(t, offset, end)
			expectTrue(t, length > 0, "empty line")
			end = offset + length
		}
		for i := range r.combsL {
			check(r.combsL[i].offset, r.combsL[i].length)
			check(r.combsR[i].offset, r.combsR[i].length)
			expectEqual(t, r.combsR[i].length-r.combsL[i].length, stereoSpread)
		}
		for i := range r.allpassL {
			check(r.allpassL[i].offset, r.allpassL[i].length)
			check(r.allpassR[i].offset, r.allpassR[i].length)
		}
		expectEqual(t, end, len(r.arena))
	}
}

func TestReverbIndicesStayInRange(t *testing.T) {
	r := newReverb(48000)
	for n := 0; n < 20000; n++ {
		r.processSample(math.Sin(float64(n) * 0.01))
		for i := range r.combsL {
			c := r.combsL[i]
			if c.index < 0 || c.index >= c.length {
				t.Fatalf("comb %d index %d out of [0, %d)", i, c.index, c.length)
			}
		}
		for i := range r.allpassR {
			a := r.allpassR[i]
			if a.index < 0 || a.index >= a.length {
				t.Fatalf("allpass %d index %d out of [0, %d)", i, a.index, a.length)
			}
		}
	}
}

func TestReverbFeedbackBelowUnity(t *testing.T) {
	r := newReverb(48000)
	for i := 0; i <= 100; i++ {
		r.setSize(float64(i) / 100)
		expectTrue(t, r.feedback < 1, "size %v: feedback %v", r.roomSize, r.feedback)
	}
	r.setSize(100)
	expectEqual(t, r.roomSize, 1.0)
	expectEqual(t, r.feedback, maxRoomFeedback)
	r.setDamping(-1)
	expectEqual(t, r.damp1, 0.0)
	expectEqual(t, r.damp2, 1.0)
}

func TestReverbIsStable(t *testing.T) {
	r := newReverb(48000)
	r.setSize(1)
	r.setDamping(0)
	r.setDryWet(1)
	samples := 48000 * 10
	for n := 0; n < samples; n++ {
		in := 1.0
		if n%2 == 1 && n > samples/2 {
			in = -1
		}
		out := r.processSample(in)
		if math.IsNaN(out) || math.IsInf(out, 0) || math.Abs(out) > 100 {
			t.Fatalf("sample %d diverged: %v", n, out)
		}
	}
	for i, v := range r.arena {
		if v < -1 || v > 1 {
			t.Fatalf("arena[%d] = %v out of range", i, v)
		}
	}
}

func TestReverbDryPassThrough(t *testing.T) {
	r := newReverb(48000)
	r.setDryWet(0.8)
	for n := 0; n < 5000; n++ {
		r.processSample(math.Sin(float64(n) * 0.05))
	}
	r.setDryWet(0)
	for n := 0; n < 5000; n++ {
		in := math.Sin(float64(n)*0.031) * 0.9
		expectEqual(t, r.processSample(in), in)
	}
}

func TestReverbWidthKeepsMonoGain(t *testing.T) {
	r := newReverb(48000)
	r.setDryWet(0.5)
	for _, width := range []float64{0, 0.3, 1} {
		r.setWidth(width)
		expectNearlyEqual(t, r.wet1+r.wet2, 0.5)
	}
}

func TestReverbClear(t *testing.T) {
	r := newReverb(48000)
	r.setDryWet(1)
	for n := 0; n < 10000; n++ {
		r.processSample(1)
	}
	r.clear()
	for n := 0; n < 1000; n++ {
		expectEqual(t, r.processSample(0), 0.0)
	}
}
