package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jinjor/dub-siren/src/audio"
	"github.com/jinjor/dub-siren/src/output"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const reportInterval = time.Second / 10

// ----- Remote ----- //

// Remote accepts line commands on a unix socket, one connection at a time,
// and streams level reports back while connected.
type Remote struct {
	path  string
	meter *output.Meter
}

func NewRemote(path string, meter *output.Meter) *Remote {
	return &Remote{path: path, meter: meter}
}

func (r *Remote) Run(ctx context.Context, events chan<- Event) error {
	os.Remove(r.path)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", r.path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", r.path, err)
	}
	defer func() {
		log.Println("closing remote control socket...")
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Errorf("error while closing listener: %v", err)
		}
		os.Remove(r.path)
	}()
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	log.WithFields(log.Fields{"socket": r.path}).Info("remote control listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept: %w", err)
		}
		if err := r.serve(ctx, conn, events); err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("remote connection ended")
		}
	}
}

func (r *Remote) serve(ctx context.Context, conn net.Conn, events chan<- Event) error {
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Errorf("error while closing connection: %v", err)
		}
	}()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})
	g.Go(func() error {
		err := receiveCommands(ctx, conn, events)
		if err == nil {
			err = io.EOF
		}
		return err
	})
	if r.meter != nil {
		peaks := r.meter.Tap()
		defer peaks.Close()
		g.Go(func() error {
			return sendReports(ctx, conn, r.meter, peaks)
		})
	}
	err := g.Wait()
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func receiveCommands(ctx context.Context, conn io.Reader, events chan<- Event) error {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ev, err := parseCommand(line)
		if err != nil {
			log.WithFields(log.Fields{"line": line, "error": err}).Warn("bad remote command")
			continue
		}
		log.WithFields(log.Fields{"line": line}).Debug("received")
		if !send(ctx.Done(), events, ev) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// parseCommand reads one space separated, query-escaped command line.
func parseCommand(line string) (Event, error) {
	args := strings.Split(line, " ")
	for i, item := range args {
		unescaped, err := url.QueryUnescape(item)
		if err != nil {
			return Event{}, err
		}
		args[i] = unescaped
	}
	switch args[0] {
	case "trigger":
		return Event{Kind: TriggerPress}, nil
	case "release":
		return Event{Kind: TriggerRelease}, nil
	case "toggle":
		return Event{Kind: TriggerToggle}, nil
	case "pitch":
		if len(args) < 2 {
			return Event{Kind: PitchEnvelopePress}, nil
		}
		mode, err := audio.ParsePitchEnvelopeMode(args[1])
		if err != nil {
			return Event{}, fmt.Errorf("pitch: %w", err)
		}
		return Event{Kind: PitchEnvelopeSelect, Value: int(mode)}, nil
	case "wave", "lfo":
		if len(args) < 2 {
			return Event{}, fmt.Errorf("%s: expected a waveform name", args[0])
		}
		w, err := audio.ParseWaveform(args[1])
		if err != nil {
			return Event{}, fmt.Errorf("%s: %w", args[0], err)
		}
		if args[0] == "lfo" {
			return Event{Kind: LfoWaveformSelect, Value: int(w)}, nil
		}
		return Event{Kind: WaveformSelect, Value: int(w)}, nil
	case "reset":
		return Event{Kind: ResetPress}, nil
	case "status":
		return Event{Kind: StatusRequest}, nil
	case "quit":
		return Event{Kind: QuitRequest}, nil
	case "shift":
		if len(args) < 2 {
			return Event{Kind: ShiftToggle}, nil
		}
		switch args[1] {
		case "on":
			return Event{Kind: ShiftPress}, nil
		case "off":
			return Event{Kind: ShiftRelease}, nil
		}
		return Event{}, fmt.Errorf("shift: unknown state %q", args[1])
	case "turn":
		if len(args) < 3 {
			return Event{}, fmt.Errorf("turn: expected encoder and steps")
		}
		encoder, err := strconv.Atoi(args[1])
		if err != nil {
			return Event{}, fmt.Errorf("turn: %w", err)
		}
		if encoder < 1 || encoder > NumEncoders {
			return Event{}, fmt.Errorf("turn: encoder %d out of range", encoder)
		}
		steps, err := strconv.Atoi(args[2])
		if err != nil {
			return Event{}, fmt.Errorf("turn: %w", err)
		}
		return Turn(encoder-1, steps), nil
	}
	return Event{}, fmt.Errorf("unknown command %q", args[0])
}

func sendReports(ctx context.Context, conn io.Writer, meter *output.Meter, peaks *output.PeakTap) error {
	t := time.NewTicker(reportInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s := "level " + strconv.FormatFloat(peaks.Peak(), 'f', 6, 64) +
				" " + strconv.FormatFloat(meter.DominantFrequency(), 'f', 1, 64) + "\n"
			if _, err := io.WriteString(conn, s); err != nil {
				return err
			}
		}
	}
}
