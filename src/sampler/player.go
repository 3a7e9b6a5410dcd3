package sampler

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/go-mp3"
	log "github.com/sirupsen/logrus"
)

const channelNum = 2

// ----- Player ----- //

// Player plays one decoded sample on top of the siren. Loading and the
// transport controls run on the control side; Process runs on the audio side.
type Player struct {
	sampleRate int
	data       atomic.Pointer[[]float32] // interleaved stereo at sampleRate
	playing    atomic.Bool
	restart    atomic.Bool
	loop       atomic.Bool
	volume     atomic.Uint64 // math.Float64bits
	pos        atomic.Int64  // frames, written by Process only
}

func NewPlayer(sampleRate int) *Player {
	p := &Player{sampleRate: sampleRate}
	p.volume.Store(math.Float64bits(1))
	return p
}

// LoadMP3 decodes a file and converts it to the player's sample rate.
func (p *Player) LoadMP3(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open sample: %w", err)
	}
	defer f.Close()
	if err := p.Load(f); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load decodes MP3 data from r.
func (p *Player) Load(r io.Reader) error {
	frames, rate, err := decodeMP3(r)
	if err != nil {
		return err
	}
	p.SetData(frames, rate)
	log.WithFields(log.Fields{
		"sourceRate": rate,
		"frames":     len(frames) / channelNum,
		"duration":   p.Duration().Round(time.Millisecond),
	}).Info("sample loaded")
	return nil
}

// SetData replaces the sample with interleaved stereo frames recorded at
// rate. Playback stops.
func (p *Player) SetData(frames []float32, rate int) {
	p.playing.Store(false)
	data := resample(frames, rate, p.sampleRate)
	p.data.Store(&data)
	p.restart.Store(true)
}

func (p *Player) Trigger() {
	if p.data.Load() == nil {
		return
	}
	p.restart.Store(true)
	p.playing.Store(true)
}

func (p *Player) Stop() {
	p.playing.Store(false)
}

func (p *Player) SetVolume(volume float64) {
	volume = math.Max(0, math.Min(1, volume))
	p.volume.Store(math.Float64bits(volume))
}

func (p *Player) SetLoop(loop bool) {
	p.loop.Store(loop)
}

func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// Position returns how far playback has progressed.
func (p *Player) Position() time.Duration {
	return framesToDuration(p.pos.Load(), p.sampleRate)
}

func (p *Player) Duration() time.Duration {
	data := p.data.Load()
	if data == nil {
		return 0
	}
	return framesToDuration(int64(len(*data)/channelNum), p.sampleRate)
}

func framesToDuration(frames int64, sampleRate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// Process writes numFrames stereo frames into out, silence when stopped.
func (p *Player) Process(out []float32, numFrames int) {
	numFrames = min(numFrames, len(out)/channelNum)
	out = out[:numFrames*channelNum]
	data := p.data.Load()
	if !p.playing.Load() || data == nil || len(*data) == 0 {
		clear(out)
		return
	}
	if p.restart.Swap(false) {
		p.pos.Store(0)
	}
	samples := *data
	volume := float32(math.Float64frombits(p.volume.Load()))
	loop := p.loop.Load()
	total := len(samples) / channelNum
	pos := int(p.pos.Load())
	for i := 0; i < numFrames; i++ {
		if pos >= total {
			if !loop {
				clear(out[i*channelNum:])
				p.playing.Store(false)
				break
			}
			pos = 0
		}
		out[i*2] = samples[pos*2] * volume
		out[i*2+1] = samples[pos*2+1] * volume
		pos++
	}
	p.pos.Store(int64(pos))
}

// ----- Decoding ----- //

func decodeMP3(r io.Reader) ([]float32, int, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode mp3: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode mp3: %w", err)
	}
	return pcm16ToFloat(raw), d.SampleRate(), nil
}

// pcm16ToFloat converts 16-bit little endian samples to [-1, 1].
func pcm16ToFloat(raw []byte) []float32 {
	out := make([]float32, len(raw)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	return out
}

// resample converts interleaved stereo frames with linear interpolation.
func resample(frames []float32, from, to int) []float32 {
	n := len(frames) / channelNum
	if from <= 0 || to <= 0 || from == to || n == 0 {
		out := make([]float32, n*channelNum)
		copy(out, frames)
		return out
	}
	ratio := float64(from) / float64(to)
	m := int(float64(n) / ratio)
	out := make([]float32, m*channelNum)
	for i := 0; i < m; i++ {
		x := float64(i) * ratio
		j := int(x)
		frac := float32(x - float64(j))
		k := min(j+1, n-1)
		for ch := 0; ch < channelNum; ch++ {
			a := frames[j*channelNum+ch]
			b := frames[k*channelNum+ch]
			out[i*channelNum+ch] = a + (b-a)*frac
		}
	}
	return out
}
