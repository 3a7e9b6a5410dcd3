package audio

// ----- DC Blocker ----- //

const dcBlockerR = 0.995

// y[n] = x[n] - x[n-1] + R*y[n-1]
type dcBlocker struct {
	x1 float64
	y1 float64
}

func (d *dcBlocker) processSample(in float64) float64 {
	out := in - d.x1 + dcBlockerR*d.y1
	d.x1 = in
	d.y1 = flushDenormal(out)
	return out
}

func (d *dcBlocker) process(in []float64, out []float64) {
	for i := range in {
		out[i] = d.processSample(in[i])
	}
}
