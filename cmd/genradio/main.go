package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbegin/genradio-go"
	"github.com/cbegin/genradio-go/internal/config"
	"github.com/cbegin/genradio-go/internal/midiexport"
)

var (
	configPath string
	verbose    bool
	seed       uint64
	playSecs   float64
	renderSecs float64
	volume     float64
	sampleRate int
	wavOut     string
	midiOut    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "genradio",
	Short: "Endless generative music radio",
	Long: `genradio plays three harmonic synths, two drum synths and one noise
synth, each triggered at randomly changing intervals, forever.`,
	SilenceUsage: true,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the radio through the default audio device",
	Long: `Play the radio until interrupted.

Examples:
  genradio play
  genradio play --seconds 600 --volume 0.8 --seed 42`,
	RunE: runPlay,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the radio offline to WAV and MIDI",
	Long: `Render a fixed span of the radio without an audio device.

Examples:
  genradio render --out radio.wav --seconds 120
  genradio render --out radio.wav --midi radio.mid --seed 7`,
	RunE: runRender,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: user config dir, then built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every trigger")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Random seed (0 = random)")
	rootCmd.PersistentFlags().IntVar(&sampleRate, "sample-rate", genradio.DefaultSampleRate, "Output sample rate")

	playCmd.Flags().Float64Var(&playSecs, "seconds", 0, "Stop after N seconds (0 = play forever)")
	playCmd.Flags().Float64Var(&volume, "volume", 1.0, "Master volume scalar")

	renderCmd.Flags().StringVarP(&wavOut, "out", "o", "radio.wav", "Output WAV file")
	renderCmd.Flags().StringVar(&midiOut, "midi", "", "Also write the trigger log as a MIDI file")
	renderCmd.Flags().Float64Var(&renderSecs, "seconds", 60, "Length to render")

	rootCmd.AddCommand(playCmd, renderCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(log *slog.Logger) (config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	cfg, exists, err := config.LoadUser()
	if exists {
		log.Debug("using user config")
	}
	return cfg, err
}

func resolveSeed() uint64 {
	if seed != 0 {
		return seed
	}
	return rand.Uint64()
}

// consoleDisplay prints the title once and the uptime line when it changes.
type consoleDisplay struct {
	log     *slog.Logger
	printed bool
	minutes int64
}

func (d *consoleDisplay) Render(f genradio.Frame) {
	if !d.printed {
		fmt.Printf("%s\n\n%s\n\n", f.Title, f.Description)
		d.printed = true
		d.minutes = f.ElapsedMinutes
		fmt.Println(f.Elapsed())
		return
	}
	if f.ElapsedMinutes != d.minutes {
		d.minutes = f.ElapsedMinutes
		fmt.Println(f.Elapsed())
	}
}

func (d *consoleDisplay) HidePrompt() {
	d.log.Info("audio started")
}

func runPlay(cmd *cobra.Command, args []string) error {
	if playSecs < 0 {
		return fmt.Errorf("--seconds must be >= 0, got %v", playSecs)
	}
	log := newLogger()
	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	s := resolveSeed()
	radio, err := genradio.NewRadio(sampleRate,
		genradio.WithConfig(cfg),
		genradio.WithSeed(s),
		genradio.WithLogger(log),
		genradio.WithOutput(genradio.OtoOutput),
		genradio.WithDisplay(&consoleDisplay{log: log}),
		genradio.WithMasterVolume(volume),
	)
	if err != nil {
		return err
	}
	log.Info("tuning in", "seed", s, "sample_rate", sampleRate)
	if err := radio.Start(); err != nil {
		return err
	}
	defer radio.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if playSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(playSecs*float64(time.Second)))
		defer cancel()
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.TickRate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("signing off")
			return nil
		case <-ticker.C:
			radio.Tick()
		}
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	if renderSecs < 0 {
		return fmt.Errorf("--seconds must be >= 0, got %v", renderSecs)
	}
	log := newLogger()
	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	s := resolveSeed()
	start := time.Now()
	samples, events, err := genradio.Render(cfg, sampleRate, renderSecs, s)
	if err != nil {
		return err
	}
	f, err := os.Create(wavOut)
	if err != nil {
		return err
	}
	if err := genradio.WriteWAV(f, samples, sampleRate, 2); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", wavOut, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info("rendered", "file", wavOut, "seconds", renderSecs, "seed", s, "events", len(events), "took", time.Since(start))

	if midiOut == "" {
		return nil
	}
	mf, err := os.Create(midiOut)
	if err != nil {
		return err
	}
	if err := midiexport.Write(mf, events, cfg.TickRate, cfg.BPM); err != nil {
		mf.Close()
		return fmt.Errorf("write %s: %w", midiOut, err)
	}
	log.Info("wrote trigger log", "file", midiOut)
	return mf.Close()
}
