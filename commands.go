package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"noteflow/app"
	"noteflow/config"
	"noteflow/debug"
	"noteflow/midi"
	"noteflow/output"
	"noteflow/sequencer"
	"noteflow/songs"
	"noteflow/theme"
	"noteflow/tui"
)

var (
	configPath string
	debugLog   bool
	songFlag   string
	bpmFlag    int
	exportDir  string
)

var rootCmd = &cobra.Command{
	Use:   "noteflow",
	Short: "Piano trainer for the terminal",
	Long: `Play notes from the computer keyboard or a MIDI controller, listen
to songs and practice them one note at a time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugLog {
			return debug.Enable("")
		}
		return nil
	},
	RunE: runTrainer,
}

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "List the song library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lib := loadLibrary(cfg)
		if exportDir != "" {
			return exportSongs(lib, exportDir)
		}
		for i, s := range lib.All() {
			fmt.Printf("%2d  %-28s %3d notes  %5.1f beats\n", i+1, s.Title, s.Len(), s.TotalBeats())
		}
		return nil
	},
}

var playCmd = &cobra.Command{
	Use:   "play <title>",
	Short: "Play a song and print its progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Metronome.Enabled = false
		cfg.Song = ""

		a := app.New(app.Options{
			Config:  cfg,
			Library: loadLibrary(cfg),
			Output:  output.New(cfg.Audio.SampleRate, cfg.Buffer()),
		})
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		a.Start(ctx)
		defer a.Close()

		if err := a.Select(args[0]); err != nil {
			return err
		}
		if err := a.Play(); err != nil {
			return err
		}
		return followPlayback(ctx, a)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/noteflow/config.json)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "write a debug log to ~/.config/noteflow/debug.log")
	rootCmd.PersistentFlags().IntVar(&bpmFlag, "bpm", 0, "tempo in beats per minute (40-240)")
	rootCmd.Flags().StringVar(&songFlag, "song", "", "song to select at startup")
	songsCmd.Flags().StringVar(&exportDir, "export", "", "write every song as a YAML file into this directory")

	rootCmd.AddCommand(songsCmd, playCmd)
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if songFlag != "" {
		cfg.Song = songFlag
	}
	if bpmFlag > 0 {
		cfg.Metronome.BPM = bpmFlag
	}
	return cfg, nil
}

// loadLibrary reports bad song files and keeps going
func loadLibrary(cfg *config.Config) *songs.Library {
	lib, errs := songs.Load(cfg.SongsPath())
	for _, err := range errs {
		fmt.Fprintln(os.Stderr, "skipping song:", err)
		debug.Log("songs", "%v", err)
	}
	return lib
}

func exportSongs(lib *songs.Library, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, s := range lib.All() {
		data, err := songs.Encode(s)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Title, err)
		}
		path := filepath.Join(dir, songs.Slug(s.Title)+".yaml")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}

// followPlayback prints each note as the cursor reaches it and returns
// when the song ends
func followPlayback(ctx context.Context, a *app.App) error {
	last := -1
	for {
		st := a.State()
		if st.Seq.Mode != sequencer.Playback {
			fmt.Println("done")
			return nil
		}
		if i := st.Seq.Index; i != last && i < len(st.Seq.Notes) {
			last = i
			fmt.Printf("%3d/%d  %s\n", i+1, len(st.Seq.Notes), st.Seq.Notes[i].Normalize())
		}
		select {
		case <-ctx.Done():
			return nil
		case <-a.UpdateChan:
		}
	}
}

func runTrainer(cmd *cobra.Command, args []string) error {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return errors.New("the trainer needs a terminal; use 'noteflow play' to play a song")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	th, err := theme.Load(cfg.Palette)
	if err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	root, active, expected := th.PadColors()

	a := app.New(app.Options{
		Config:    cfg,
		Library:   loadLibrary(cfg),
		Output:    output.New(cfg.Audio.SampleRate, cfg.Buffer()),
		PadColors: midi.PadColors{Root: root, Active: active, Expected: expected},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)
	defer a.Close()
	if cfg.MIDI.Enabled {
		go a.RunMIDI(ctx)
	}

	if cfg.Song != "" && a.State().SongIndex < 0 {
		return fmt.Errorf("song %q not found", cfg.Song)
	}

	p := tea.NewProgram(tui.NewModel(a, th), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
