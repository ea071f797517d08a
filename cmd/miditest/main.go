package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"noteflow/metronome"
	"noteflow/midi"
	"noteflow/note"
	"noteflow/output"
	"noteflow/sched"
	"noteflow/synth"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	defer midi.CloseDriver()

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		monitor()
	case "tone":
		tone(arg(2, "A4"))
	case "click":
		bpm, _ := strconv.Atoi(arg(2, "120"))
		click(bpm)
	default:
		usage()
	}
}

func arg(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func usage() {
	fmt.Println("Hardware Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list          - List all MIDI ports")
	fmt.Println("  monitor       - Print notes and pads from connected controllers")
	fmt.Println("  tone [note]   - Play one note through the synth (default A4)")
	fmt.Println("  click [bpm]   - Run the metronome for two bars")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")
	ins := midi.Inputs()
	for i, name := range ins {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	outs := midi.Outputs()
	for i, name := range outs {
		fmt.Printf("  %d: %s\n", i, name)
	}
	if len(ins) == 0 && len(outs) == 0 {
		fmt.Println("\nNo ports. If the scan hung on macOS: sudo killall coreaudiod midiserver")
	}
}

func monitor() {
	fmt.Println("Watching for controllers. Play something; Ctrl+C to exit.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dm := midi.NewDeviceManager(midi.Options{Launchpad: true})
	go dm.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-dm.Events():
			switch e.Type {
			case midi.DeviceConnected:
				fmt.Printf("[%s] + %s (%s)\n", stamp(), e.ID, e.Controller.Type())
				go printEvents(e.Controller)
			case midi.DeviceDisconnected:
				fmt.Printf("[%s] - %s\n", stamp(), e.ID)
			}
		}
	}
}

func printEvents(c midi.Controller) {
	pads, notes := c.PadEvents(), c.NoteEvents()
	for pads != nil || notes != nil {
		select {
		case p, ok := <-pads:
			if !ok {
				pads = nil
				continue
			}
			fmt.Printf("[%s] %s pad row=%d col=%d vel=%d on=%v\n", stamp(), c.ID(), p.Row, p.Col, p.Velocity, p.On)
		case n, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			fmt.Printf("[%s] %s note %-4s vel=%.2f on=%v ch=%d\n", stamp(), c.ID(), n.Note, n.Velocity, n.On, n.Channel)
		}
	}
}

func stamp() string { return time.Now().Format("15:04:05.000") }

// withEngine runs fn on a live scheduler loop with a synth on the sound card
func withEngine(fn func(loop *sched.Loop, e *synth.Engine)) {
	opts := synth.DefaultOptions()
	loop := sched.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	e := synth.New(loop, output.New(opts.SampleRate, output.DefaultBuffer), opts)
	if !e.Available() {
		fmt.Println("Audio unavailable, running silent")
	}
	fn(loop, e)
	loop.Do(e.Dispose)
}

func tone(raw string) {
	id, err := note.Parse(raw)
	if err != nil || !id.IsPitch() {
		fmt.Printf("Bad note %q\n", raw)
		return
	}
	withEngine(func(loop *sched.Loop, e *synth.Engine) {
		fmt.Printf("Playing %s (%.2f Hz)\n", id.Normalize(), id.Frequency())
		loop.Do(func() { e.PlayNote(id, 0.8, time.Second) })
		time.Sleep(2 * time.Second) // let the reverb ring out
	})
}

func click(bpm int) {
	withEngine(func(loop *sched.Loop, e *synth.Engine) {
		m := metronome.New(loop, e, metronome.WithBPM(bpm))
		done := make(chan struct{})
		m.OnTick(func(t metronome.Tick) {
			mark := "."
			if t.Downbeat {
				mark = "|"
			}
			fmt.Printf("%s tick %d\n", mark, t.N)
			if t.N == 2*m.Signature()-1 {
				close(done)
			}
		})
		fmt.Printf("Metronome at %d bpm\n", metronome.ClampBPM(bpm))
		loop.Do(func() { m.Start(m.BPM(), m.Signature()) })
		<-done
		loop.Do(m.Stop)
	})
}
