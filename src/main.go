package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jinjor/dub-siren/src/audio"
	"github.com/jinjor/dub-siren/src/control"
	"github.com/jinjor/dub-siren/src/output"
	"github.com/jinjor/dub-siren/src/sampler"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	sampleRate    = flag.Int("sample-rate", audio.DefaultSampleRate, "output sample rate in Hz")
	bufferSize    = flag.Int("buffer-size", audio.DefaultBufferSize, "frames per buffer")
	headless      = flag.Bool("headless", false, "pull audio on a timer instead of opening a device")
	keys          = flag.Bool("keys", true, "read control keys from stdin")
	midi          = flag.Bool("midi", false, "listen to a MIDI input")
	midiPort      = flag.String("midi-port", "", "MIDI input name to match (first input when empty)")
	socketPath    = flag.String("socket", "", "unix socket for remote line commands")
	samplePath    = flag.String("sample", "", "mp3 file played on every trigger")
	sampleLoop    = flag.Bool("sample-loop", false, "loop the sample until reset")
	sampleVolume  = flag.Float64("sample-volume", 0.5, "sample volume")
	renderPath    = flag.String("render", "", "render to a WAV file and exit")
	renderSeconds = flag.Float64("render-seconds", 4, "length of the rendered file")
	renderHold    = flag.Float64("render-hold", 1, "seconds the trigger is held in the rendered file")
	logLevel      = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	meterWindow   = flag.String("meter-window", "han", "analysis window of the level meter (han, blackman, rect)")
	delaySat      = flag.Float64("delay-saturation", audio.DefaultDelayCharacter().Saturation, "saturation of the delay feedback")
	delayWobble   = flag.Float64("delay-wobble", audio.DefaultDelayCharacter().WobbleDepth, "tape wobble depth of the delay in seconds")
)

var errInterrupted = errors.New("interrupted")

func main() {
	flag.Parse()
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	log.SetLevel(level)
	log.Printf("NumCPU: %v", runtime.NumCPU())

	engine := audio.NewEngine(audio.Config{SampleRate: *sampleRate, BufferSize: *bufferSize})
	character := audio.DefaultDelayCharacter()
	character.Saturation = *delaySat
	character.WobbleDepth = *delayWobble
	engine.SetDelayCharacter(character)
	sources := []output.Source{engine}

	var player *sampler.Player
	if *samplePath != "" {
		player = sampler.NewPlayer(engine.SampleRate())
		if err := player.LoadMP3(*samplePath); err != nil {
			log.Fatalf("error: %v", err)
		}
		player.SetLoop(*sampleLoop)
		player.SetVolume(*sampleVolume)
		sources = append(sources, player)
	}
	mixer := output.NewMixer(engine.BufferSize(), sources...)

	if *renderPath != "" {
		if err := render(engine, player, mixer); err != nil {
			log.Fatalf("error: %v", err)
		}
		return
	}
	if err := run(engine, player, mixer); err != nil {
		log.Fatalf("error: %v", err)
	}
	log.Println("main() ended.")
}

func run(engine *audio.Engine, player *sampler.Player, mixer *output.Mixer) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	window, err := output.ParseWindow(*meterWindow)
	if err != nil {
		return err
	}
	meter := output.NewMeter(engine.SampleRate(), output.DefaultMeterSize, window)
	var sink output.Sink
	if *headless {
		sink = output.NewHeadless(mixer, engine.SampleRate(), engine.BufferSize(), meter)
	} else {
		device, err := output.NewDevice(mixer, engine.SampleRate(), engine.BufferSize(), meter)
		if err != nil {
			return err
		}
		sink = device
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Errorf("error while closing sink: %v", err)
		}
	}()

	keyboard := control.NewKeyboard(os.Stdin)
	var out io.Writer = os.Stdout
	if *keys && keyboard.IsTerminal() {
		out = control.NewRawWriter(os.Stdout)
		log.SetOutput(control.NewRawWriter(os.Stderr))
	}
	surface := control.NewSurface(engine, out)
	surface.Monitor(meter, sink.Stats)
	if player != nil {
		surface.Samples(player)
	}
	events := make(chan control.Event, 64)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sink.Start(ctx)
	})
	g.Go(func() error {
		return surface.Run(ctx, events)
	})
	if *keys {
		g.Go(func() error {
			return keyboard.Run(ctx, events)
		})
		fmt.Fprintln(out, surface.Help())
	}
	if *midi {
		g.Go(func() error {
			if err := control.NewMIDI(*midiPort).Run(ctx, events); err != nil {
				log.WithFields(log.Fields{"error": err}).Warn("MIDI input disabled")
			}
			return nil
		})
	}
	if *socketPath != "" {
		g.Go(func() error {
			return control.NewRemote(*socketPath, meter).Run(ctx, events)
		})
	}
	g.Go(func() error {
		return watchSignals(ctx)
	})

	err := g.Wait()
	if errors.Is(err, control.ErrQuit) || errors.Is(err, errInterrupted) {
		log.Println("shutting down...")
		return nil
	}
	return err
}

func watchSignals(ctx context.Context) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	select {
	case sig := <-signalCh:
		log.Printf("Caught signal %s: shutting down...", sig)
		return errInterrupted
	case <-ctx.Done():
		return nil
	}
}

// render writes a single siren hit to a WAV file: the trigger is held for
// -render-hold seconds and the tail rings out until -render-seconds.
func render(engine *audio.Engine, player *sampler.Player, mixer *output.Mixer) error {
	f, err := os.Create(*renderPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *renderPath, err)
	}
	defer f.Close()

	surface := control.NewSurface(engine, nil)
	if player != nil {
		surface.Samples(player)
	}
	surface.Init()
	if err := surface.Handle(control.Event{Kind: control.TriggerPress}); err != nil {
		return err
	}

	sr := engine.SampleRate()
	frames := int(*renderSeconds * float64(sr))
	holdFrames := int(*renderHold * float64(sr))
	rendered := 0
	released := false
	src := output.SourceFunc(func(out []float32, numFrames int) {
		if !released && rendered+numFrames >= holdFrames {
			engine.Release()
			released = true
		}
		mixer.Process(out, numFrames)
		rendered += numFrames
	})
	start := time.Now()
	if err := output.RenderWAV(f, src, sr, frames, engine.BufferSize()); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", *renderPath, err)
	}
	log.WithFields(log.Fields{
		"file":    *renderPath,
		"seconds": *renderSeconds,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("rendered")
	return nil
}
