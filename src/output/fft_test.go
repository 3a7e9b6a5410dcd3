package output

import (
	"math"
	"testing"
)

func TestBitreverse(t *testing.T) {
	expectEqual(t, bitReverse(0, 8), 0)
	expectEqual(t, bitReverse(1, 8), 4)
	expectEqual(t, bitReverse(2, 8), 2)
	expectEqual(t, bitReverse(3, 8), 6)
	expectEqual(t, bitReverse(4, 8), 1)
	expectEqual(t, bitReverse(5, 8), 5)
	expectEqual(t, bitReverse(6, 8), 3)
	expectEqual(t, bitReverse(7, 8), 7)
}

func TestFFT(t *testing.T) {
	fft := NewFFT(8, false)
	x := []float64{0, 0.25, 0.5, 0.75, 1, 0.75, 0.5, 0.25}
	fft.CalcReal(x)
	expectNearlyEqual(t, x[0], 4)
	expectNearlyEqual(t, x[1], -(1 + math.Sqrt(2)/2))
	expectNearlyEqual(t, x[2], 0)
	expectNearlyEqual(t, x[3], -(1 - math.Sqrt(2)/2))
	expectNearlyEqual(t, x[4], 0)
	expectNearlyEqual(t, x[5], -(1 - math.Sqrt(2)/2))
	expectNearlyEqual(t, x[6], 0)
	expectNearlyEqual(t, x[7], -(1 + math.Sqrt(2)/2))
}

func TestInverseFFT(t *testing.T) {
	forward := NewFFT(8, false)
	inverse := NewFFT(8, true)
	x := []complex128{1, 2, 3, 4, 0, -1, -2, 5}
	y := make([]complex128, len(x))
	copy(y, x)
	forward.Calc(y)
	inverse.Calc(y)
	for i := range x {
		expectNearlyEqual(t, real(y[i]), real(x[i]))
		expectNearlyEqual(t, imag(y[i]), 0)
	}
}

func TestWindows(t *testing.T) {
	data := []float64{1, 1, 1, 1}
	Han(data)
	expectNearlyEqual(t, data[0], 0)
	expectNearlyEqual(t, data[1], 0.5)
	expectNearlyEqual(t, data[2], 1)

	data = []float64{1, 1, 1, 1}
	Blackman(data)
	expectNearlyEqual(t, data[0], 0)
	expectNearlyEqual(t, data[2], 1)

	w, err := ParseWindow("rect")
	expectNoError(t, err)
	data = []float64{1, 2}
	w(data)
	expectEqual(t, data[1], 2.0)
	_, err = ParseWindow("kaiser")
	if err == nil {
		t.Error("expected an error for an unknown window")
	}
}

func TestMeterFindsDominantFrequency(t *testing.T) {
	sampleRate := 48000
	size := 2048
	m := NewMeter(sampleRate, size, Han)
	expectEqual(t, m.DominantFrequency(), 0.0)

	// exactly on bin 20
	freq := 20 * float64(sampleRate) / float64(size)
	frames := make([]float32, size*channelNum)
	for i := 0; i < size; i++ {
		v := float32(0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		frames[i*2] = v
		frames[i*2+1] = v
	}
	m.Write(frames[:1000])
	m.Write(frames[1000:])
	expectNearlyEqual(t, m.DominantFrequency(), freq)
	spectrum := m.Spectrum()
	expectEqual(t, len(spectrum), size/2)
	// Han halves the amplitude of a bin-centred sine
	expectNearlyEqual(t, math.Round(spectrum[20]*100)/100, 0.4)
}

func TestPeakTapsAreIndependent(t *testing.T) {
	m := NewMeter(48000, 256, Han)
	m.Write([]float32{0.9, 0.9})
	status := m.Tap()
	report := m.Tap()
	m.Write([]float32{0.5, 0.5, -0.8, -0.8, 0.1, 0.1})

	expectNearlyEqual(t, report.Peak(), 0.8)
	expectEqual(t, report.Peak(), 0.0)
	// the other reader still holds its peak
	expectNearlyEqual(t, status.Peak(), 0.8)

	m.Write([]float32{0.3, 0.3})
	report.Close()
	m.Write([]float32{0.6, 0.6})
	expectNearlyEqual(t, status.Peak(), 0.6)
	expectNearlyEqual(t, report.Peak(), 0.3)
}
