package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jinjor/dub-siren/src/audio"
	"github.com/jinjor/dub-siren/src/output"
	log "github.com/sirupsen/logrus"
)

// ErrQuit is returned by Run when a quit event arrives.
var ErrQuit = errors.New("quit requested")

const NumEncoders = 5

// bank B encoders that hold a waveform index
const (
	oscWaveformEncoder = 3
	lfoWaveformEncoder = 4
)

// Target is the part of the engine the surface drives.
type Target interface {
	Trigger()
	Release()
	Reset()
	CyclePitchEnvelope() string
	SetPitchEnvelopeMode(mode audio.PitchEnvelopeMode)
	SetVolume(volume float64)
	SetFilterCutoff(cutoff float64)
	SetFilterResonance(resonance float64)
	SetDelayFeedback(feedback float64)
	SetReverbMix(mix float64)
	SetReleaseTime(seconds float64)
	SetDelayTime(seconds float64)
	SetReverbSize(size float64)
	SetWaveformIndex(index int)
	SetLfoWaveformIndex(index int)
	IsPlaying() bool
	Snapshot() audio.Status
}

// ----- Bank ----- //

type Bank int

const (
	BankA Bank = iota
	BankB
)

func (b Bank) String() string {
	if b == BankB {
		return "B"
	}
	return "A"
}

// ----- Encoder ----- //

type encoder struct {
	name  string
	value float64
	step  float64
	min   float64
	max   float64
	cycle int // when > 0 the value is an index that wraps around
	apply func(t Target, v float64)
}

func (p *encoder) turn(steps int) {
	if p.cycle > 0 {
		i := (int(p.value) + steps) % p.cycle
		if i < 0 {
			i += p.cycle
		}
		p.value = float64(i)
		return
	}
	v := p.value + float64(steps)*p.step
	if v < p.min {
		v = p.min
	}
	if v > p.max {
		v = p.max
	}
	p.value = v
}

func (p *encoder) format() string {
	if p.cycle > 0 {
		return audio.WaveformFromIndex(int(p.value)).String()
	}
	return strconv.FormatFloat(p.value, 'f', 3, 64)
}

func newBanks() [2][NumEncoders]*encoder {
	return [2][NumEncoders]*encoder{
		{
			{name: "volume", value: 0.7, step: 0.02, min: 0, max: 1,
				apply: func(t Target, v float64) { t.SetVolume(v) }},
			{name: "filter_freq", value: 2000, step: 50, min: 20, max: 20000,
				apply: func(t Target, v float64) { t.SetFilterCutoff(v) }},
			{name: "filter_res", value: 0.95, step: 0.02, min: 0, max: 0.95,
				apply: func(t Target, v float64) { t.SetFilterResonance(v) }},
			{name: "delay_feedback", value: 0.5, step: 0.02, min: 0, max: 0.95,
				apply: func(t Target, v float64) { t.SetDelayFeedback(v) }},
			{name: "reverb_mix", value: 0.35, step: 0.02, min: 0, max: 1,
				apply: func(t Target, v float64) { t.SetReverbMix(v) }},
		},
		{
			{name: "release", value: 0.5, step: 0.1, min: 0.01, max: 5,
				apply: func(t Target, v float64) { t.SetReleaseTime(v) }},
			{name: "delay_time", value: 0.2, step: 0.05, min: 0.001, max: 2,
				apply: func(t Target, v float64) { t.SetDelayTime(v) }},
			{name: "reverb_size", value: 0.5, step: 0.02, min: 0, max: 1,
				apply: func(t Target, v float64) { t.SetReverbSize(v) }},
			{name: "osc_waveform", cycle: audio.NumWaveforms,
				apply: func(t Target, v float64) { t.SetWaveformIndex(int(v)) }},
			{name: "lfo_waveform", cycle: audio.NumWaveforms,
				apply: func(t Target, v float64) { t.SetLfoWaveformIndex(int(v)) }},
		},
	}
}

// ----- Surface ----- //

// Surface maps encoder turns and button presses onto the target. It is not
// safe for concurrent use; Run owns it.
type Surface struct {
	target  Target
	banks   [2][NumEncoders]*encoder
	bank    Bank
	out     io.Writer
	meter   *output.Meter
	peaks   *output.PeakTap
	stats   func() output.Stats
	samples SampleTrigger
}

// SampleTrigger is an optional one-shot player fired alongside the siren.
type SampleTrigger interface {
	Trigger()
	Stop()
}

func NewSurface(target Target, out io.Writer) *Surface {
	if out == nil {
		out = io.Discard
	}
	return &Surface{
		target: target,
		banks:  newBanks(),
		out:    out,
	}
}

// Monitor attaches the level meter and sink statistics shown by the status
// panel. Either may be nil.
func (s *Surface) Monitor(meter *output.Meter, stats func() output.Stats) {
	if s.peaks != nil {
		s.peaks.Close()
		s.peaks = nil
	}
	s.meter = meter
	if meter != nil {
		s.peaks = meter.Tap()
	}
	s.stats = stats
}

// Samples attaches a player that starts on trigger press and stops on reset.
func (s *Surface) Samples(p SampleTrigger) {
	s.samples = p
}

func (s *Surface) Bank() Bank {
	return s.bank
}

// Value returns the current value held by an encoder of a bank.
func (s *Surface) Value(bank Bank, index int) float64 {
	return s.banks[bank][index].value
}

// Init pushes every encoder value to the target.
func (s *Surface) Init() {
	for _, bank := range s.banks {
		for _, p := range bank {
			p.apply(s.target, p.value)
		}
	}
	log.WithFields(log.Fields{"bank": s.bank.String()}).Info("control surface ready")
}

// Run handles events until the context is done, the channel is closed or a
// quit event arrives.
func (s *Surface) Run(ctx context.Context, events <-chan Event) error {
	s.Init()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.Handle(ev); err != nil {
				return err
			}
		}
	}
}

// Handle applies a single event.
func (s *Surface) Handle(ev Event) error {
	switch ev.Kind {
	case EncoderTurn:
		if ev.Encoder < 0 || ev.Encoder >= NumEncoders || ev.Steps == 0 {
			return nil
		}
		p := s.banks[s.bank][ev.Encoder]
		p.turn(ev.Steps)
		s.push(s.bank, p)
	case WaveformSelect:
		s.selectWaveform(oscWaveformEncoder, ev.Value)
	case LfoWaveformSelect:
		s.selectWaveform(lfoWaveformEncoder, ev.Value)
	case PitchEnvelopeSelect:
		mode := audio.PitchEnvelopeMode(ev.Value)
		s.target.SetPitchEnvelopeMode(mode)
		log.WithFields(log.Fields{"mode": mode.String()}).Infof("Pitch envelope: %s", mode)
	case TriggerPress:
		s.press()
	case TriggerRelease:
		s.release()
	case TriggerToggle:
		if s.target.IsPlaying() {
			s.release()
		} else {
			s.press()
		}
	case PitchEnvelopePress:
		mode := s.target.CyclePitchEnvelope()
		log.WithFields(log.Fields{"mode": mode}).Infof("Pitch envelope: %s", mode)
	case ShiftPress:
		s.setBank(BankB)
	case ShiftRelease:
		s.setBank(BankA)
	case ShiftToggle:
		s.setBank(1 - s.bank)
	case ResetPress:
		s.target.Reset()
		if s.samples != nil {
			s.samples.Stop()
		}
		log.Info("Reset")
	case StatusRequest:
		fmt.Fprintln(s.out, s.Status())
	case HelpRequest:
		fmt.Fprintln(s.out, s.Help())
	case QuitRequest:
		return ErrQuit
	}
	return nil
}

func (s *Surface) push(bank Bank, p *encoder) {
	p.apply(s.target, p.value)
	log.WithFields(log.Fields{
		"bank":  bank.String(),
		"param": p.name,
		"value": p.format(),
	}).Infof("[Bank %s] %s: %s", bank, p.name, p.format())
}

// selectWaveform jumps a waveform encoder of bank B to index without changing
// the active bank.
func (s *Surface) selectWaveform(encoder, index int) {
	p := s.banks[BankB][encoder]
	p.value = float64(audio.WaveformFromIndex(index))
	s.push(BankB, p)
}

func (s *Surface) press() {
	s.target.Trigger()
	if s.samples != nil {
		s.samples.Trigger()
	}
	log.Info("Trigger: PRESSED")
}

func (s *Surface) release() {
	s.target.Release()
	log.Info("Trigger: RELEASED")
}

func (s *Surface) setBank(b Bank) {
	if s.bank == b {
		return
	}
	s.bank = b
	log.WithFields(log.Fields{"bank": b.String()}).Infof("Bank %s active", b)
}

// Status renders the status panel.
func (s *Surface) Status() string {
	var r reading
	if s.meter != nil {
		r.peak = s.peaks.Peak()
		r.dominant = s.meter.DominantFrequency()
		r.hasMeter = true
	}
	if s.stats != nil {
		r.stats = s.stats()
		r.hasStats = true
	}
	return renderStatus(s.target.Snapshot(), s.bank, s.banks, r)
}

func (s *Surface) Help() string {
	return renderHelp(s.banks)
}
