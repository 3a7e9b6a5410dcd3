package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// shifted digits on a US layout turn the encoders down
const downKeys = "!@#$%"

// KeyEvent maps one key of the simulated panel to an event.
func KeyEvent(b byte) (Event, bool) {
	switch {
	case b >= '1' && b <= '5':
		return Turn(int(b-'1'), 1), true
	case strings.IndexByte(downKeys, b) >= 0:
		return Turn(strings.IndexByte(downKeys, b), -1), true
	}
	switch b {
	case 't', 'T', ' ':
		return Event{Kind: TriggerToggle}, true
	case 'p', 'P':
		return Event{Kind: PitchEnvelopePress}, true
	case 'b', 'B':
		return Event{Kind: ShiftToggle}, true
	case 'r', 'R':
		return Event{Kind: ResetPress}, true
	case 's', 'S':
		return Event{Kind: StatusRequest}, true
	case 'h', 'H', '?':
		return Event{Kind: HelpRequest}, true
	case 'q', 'Q', 0x03, 0x04: // Ctrl-C and Ctrl-D arrive as bytes in raw mode
		return Event{Kind: QuitRequest}, true
	}
	return Event{}, false
}

// ----- Keyboard ----- //

// Keyboard reads single key presses. When the input is a terminal it is put
// into raw mode for the duration of Run.
type Keyboard struct {
	in io.Reader
}

func NewKeyboard(in io.Reader) *Keyboard {
	if in == nil {
		in = os.Stdin
	}
	return &Keyboard{in: in}
}

// IsTerminal reports whether Run will switch the input to raw mode.
func (k *Keyboard) IsTerminal() bool {
	f, ok := k.in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run sends an event per recognized key until the context is done or the
// input ends. The blocking read is left behind on cancellation; it ends with
// the process.
func (k *Keyboard) Run(ctx context.Context, events chan<- Event) error {
	if f, ok := k.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		defer func() {
			if err := term.Restore(fd, oldState); err != nil {
				log.Errorf("failed to restore terminal: %v", err)
			}
		}()
	}

	keys := make(chan byte, 16)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := k.in.Read(buf)
			if n > 0 {
				select {
				case keys <- buf[0]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-keys:
			if ev, ok := KeyEvent(b); ok {
				if !send(ctx.Done(), events, ev) {
					return nil
				}
			}
		case err := <-readErr:
			// keys read before the error are already buffered
		drain:
			for {
				select {
				case b := <-keys:
					if ev, ok := KeyEvent(b); ok {
						if !send(ctx.Done(), events, ev) {
							return nil
						}
					}
				default:
					break drain
				}
			}
			if errors.Is(err, io.EOF) {
				log.Println("keyboard input closed")
				return nil
			}
			return fmt.Errorf("failed to read keyboard: %w", err)
		}
	}
}

// ----- Raw output ----- //

type rawWriter struct {
	w io.Writer
}

// NewRawWriter translates LF to CRLF so lines start at the left margin while
// the terminal is in raw mode.
func NewRawWriter(w io.Writer) io.Writer {
	return &rawWriter{w: w}
}

func (r *rawWriter) Write(p []byte) (int, error) {
	s := strings.ReplaceAll(string(p), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\r\n")
	if _, err := io.WriteString(r.w, s); err != nil {
		return 0, err
	}
	return len(p), nil
}
