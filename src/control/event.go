package control

import "fmt"

// ----- Event ----- //

type EventKind int

const (
	EncoderTurn EventKind = iota
	TriggerPress
	TriggerRelease
	TriggerToggle
	PitchEnvelopePress
	ShiftPress
	ShiftRelease
	ShiftToggle
	StatusRequest
	HelpRequest
	ResetPress
	QuitRequest
	WaveformSelect
	LfoWaveformSelect
	PitchEnvelopeSelect
)

var eventKindNames = [...]string{
	"encoder",
	"trigger-press",
	"trigger-release",
	"trigger-toggle",
	"pitch-envelope",
	"shift-press",
	"shift-release",
	"shift-toggle",
	"status",
	"help",
	"reset",
	"quit",
	"waveform",
	"lfo-waveform",
	"pitch-envelope-mode",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return fmt.Sprintf("event(%d)", int(k))
	}
	return eventKindNames[k]
}

// Event is one physical or simulated input. Encoder and Steps are only used
// by EncoderTurn; Steps is signed. Value is the index chosen by the select
// kinds.
type Event struct {
	Kind    EventKind
	Encoder int
	Steps   int
	Value   int
}

func Turn(encoder, steps int) Event {
	return Event{Kind: EncoderTurn, Encoder: encoder, Steps: steps}
}

func (e Event) String() string {
	switch e.Kind {
	case EncoderTurn:
		return fmt.Sprintf("encoder %d %+d", e.Encoder+1, e.Steps)
	case WaveformSelect, LfoWaveformSelect, PitchEnvelopeSelect:
		return fmt.Sprintf("%s %d", e.Kind, e.Value)
	}
	return e.Kind.String()
}

// send delivers ev unless done is closed first.
func send(done <-chan struct{}, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-done:
		return false
	}
}
