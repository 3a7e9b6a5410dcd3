package control

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gitlab.com/gomidi/rtmididrv"
)

const (
	ccFirstEncoder  = 20
	ccPitchEnvelope = 25
	ccSustain       = 64
	midiQueueSize   = 1024
)

// ----- MIDI translation ----- //

// midiTranslator turns raw channel messages into surface events. The gate
// stays open while any note is held.
type midiTranslator struct {
	held map[byte]bool
}

func newMidiTranslator() *midiTranslator {
	return &midiTranslator{held: make(map[byte]bool)}
}

func (m *midiTranslator) translate(data []byte) (Event, bool) {
	if len(data) < 3 {
		return Event{}, false
	}
	status := data[0] >> 4
	switch {
	case status == 8 || status == 9 && data[2] == 0:
		if !m.held[data[1]] {
			return Event{}, false
		}
		delete(m.held, data[1])
		if len(m.held) > 0 {
			return Event{}, false
		}
		return Event{Kind: TriggerRelease}, true
	case status == 9:
		wasHeld := len(m.held) > 0
		m.held[data[1]] = true
		if wasHeld {
			return Event{}, false
		}
		return Event{Kind: TriggerPress}, true
	case status == 0xb:
		return controlChange(data[1], data[2])
	}
	return Event{}, false
}

func controlChange(cc, value byte) (Event, bool) {
	switch {
	case cc >= ccFirstEncoder && cc < ccFirstEncoder+NumEncoders:
		steps := relativeSteps(value)
		if steps == 0 {
			return Event{}, false
		}
		return Turn(int(cc-ccFirstEncoder), steps), true
	case cc == ccPitchEnvelope:
		if value < 64 {
			return Event{}, false
		}
		return Event{Kind: PitchEnvelopePress}, true
	case cc == ccSustain:
		if value >= 64 {
			return Event{Kind: ShiftPress}, true
		}
		return Event{Kind: ShiftRelease}, true
	}
	return Event{}, false
}

// relativeSteps decodes a two's complement relative encoder value: 1..63 turn
// up, 65..127 turn down.
func relativeSteps(value byte) int {
	v := int(value & 0x7f)
	switch {
	case v == 0 || v == 64:
		return 0
	case v < 64:
		return v
	default:
		return v - 128
	}
}

// ----- MIDI input ----- //

// MIDI listens to a MIDI input port and feeds the surface.
type MIDI struct {
	port string
}

// NewMIDI selects the first input whose name contains port, or the first
// input when port is empty.
func NewMIDI(port string) *MIDI {
	return &MIDI{port: port}
}

// Run opens the port and forwards events until the context is done. A
// missing port is logged and is not an error.
func (m *MIDI) Run(ctx context.Context, events chan<- Event) error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("failed to initialize MIDI driver: %w", err)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Errorf("failed to close MIDI driver: %v", err)
		}
	}()
	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("failed to get MIDI IN: %w", err)
	}
	log.Printf("MIDI IN: %v", ins)

	var index = -1
	for i, in := range ins {
		if m.port == "" || strings.Contains(in.String(), m.port) {
			index = i
			break
		}
	}
	if index < 0 {
		log.WithFields(log.Fields{"port": m.port}).Warn("MIDI IN not found")
		<-ctx.Done()
		return nil
	}
	in := ins[index]
	if err := in.Open(); err != nil {
		return fmt.Errorf("failed to open MIDI IN: %w", err)
	}
	log.Println("opened " + in.String())
	defer func() {
		if err := in.Close(); err != nil {
			log.Errorf("failed to close MIDI IN: %v", err)
		}
	}()

	// the listener runs on the driver's thread and must not block
	raw := make(chan []byte, midiQueueSize)
	if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
		msg := make([]byte, len(data))
		copy(msg, data)
		select {
		case raw <- msg:
		default:
			log.Warn("MIDI queue full, message dropped")
		}
	}); err != nil {
		return fmt.Errorf("failed to set listener: %w", err)
	}
	defer func() {
		log.Println("stop listening MIDI IN...")
		if err := in.StopListening(); err != nil {
			log.Errorf("failed to stop listening: %v", err)
		}
	}()
	log.Println("start listening MIDI IN...")

	return forwardMidi(ctx, raw, events)
}

func forwardMidi(ctx context.Context, raw <-chan []byte, events chan<- Event) error {
	t := newMidiTranslator()
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-raw:
			if !ok {
				return nil
			}
			ev, ok := t.translate(data)
			if !ok {
				continue
			}
			log.WithFields(log.Fields{"data": fmt.Sprintf("% x", data), "event": ev.String()}).Debug("MIDI")
			if !send(ctx.Done(), events, ev) {
				return nil
			}
		}
	}
}
