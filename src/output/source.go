package output

const (
	channelNum      = 2
	bitDepthInBytes = 2
	bytesPerFrame   = bitDepthInBytes * channelNum
)

// Source produces interleaved stereo float frames. Process must fill
// out[:numFrames*2] and must not block.
type Source interface {
	Process(out []float32, numFrames int)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(out []float32, numFrames int)

func (f SourceFunc) Process(out []float32, numFrames int) {
	f(out, numFrames)
}

// ----- Mixer ----- //

// Mixer sums several sources into one stream and clamps the sum to [-1, 1].
type Mixer struct {
	sources []Source
	scratch []float32
}

// NewMixer returns a mixer that renders its sources in chunks of at most
// maxFrames frames.
func NewMixer(maxFrames int, sources ...Source) *Mixer {
	if maxFrames < 1 {
		maxFrames = 1
	}
	return &Mixer{
		sources: sources,
		scratch: make([]float32, maxFrames*channelNum),
	}
}

func (m *Mixer) Process(out []float32, numFrames int) {
	if numFrames > len(out)/channelNum {
		numFrames = len(out) / channelNum
	}
	if numFrames <= 0 {
		return
	}
	out = out[:numFrames*channelNum]
	for i := range out {
		out[i] = 0
	}
	maxFrames := len(m.scratch) / channelNum
	for _, src := range m.sources {
		for offset := 0; offset < numFrames; {
			n := min(numFrames-offset, maxFrames)
			chunk := m.scratch[:n*channelNum]
			src.Process(chunk, n)
			dst := out[offset*channelNum:]
			for i, v := range chunk {
				dst[i] += v
			}
			offset += n
		}
	}
	for i, v := range out {
		if v > 1 {
			out[i] = 1
		} else if v < -1 {
			out[i] = -1
		}
	}
}

// ----- PCM ----- //

// writeBuffer converts interleaved float frames to 16-bit little endian PCM.
func writeBuffer(in []float32, buf []byte) {
	const max = 32767
	for i, value := range in {
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		b := int16(value * max)
		buf[bitDepthInBytes*i] = byte(b)
		buf[bitDepthInBytes*i+1] = byte(b >> 8)
	}
}
