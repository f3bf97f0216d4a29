// ABOUTME: Entry point for the Clavier score player
// ABOUTME: Parses CLI flags, wires backend/controller/TUI, handles shutdown
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/clavier-project/clavier-go/internal/backend"
	"github.com/clavier-project/clavier-go/internal/config"
	"github.com/clavier-project/clavier-go/internal/controller"
	"github.com/clavier-project/clavier-go/internal/library"
	"github.com/clavier-project/clavier-go/internal/sequence"
	"github.com/clavier-project/clavier-go/internal/ui"
	"github.com/clavier-project/clavier-go/internal/version"
)

var (
	configPath  = flag.String("config", "clavier.yaml", "Config file path")
	scoresDir   = flag.String("scores", "", "Directory containing score files")
	backendName = flag.String("backend", "", "Output backend: keysim, sample, or midi")
	mode        = flag.String("mode", "", "Playback mode: sequential or random")
	tolerance   = flag.Int("tolerance", -1, "Semitones allowed outside the backend range for full-score playback")
	midiPort    = flag.String("midi-port", "", "MIDI output port name (midi backend)")
	samplesDir  = flag.String("samples", "", "Sample directory (sample backend)")
	logFile     = flag.String("log-file", "clavier.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	useTUI := !*noTUI
	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s %s (backend=%s mode=%s)", version.Product, version.Version, cfg.Backend, cfg.Mode)

	out := buildBackend(cfg)
	defer func() {
		if err := out.Close(); err != nil {
			log.Printf("backend close: %v", err)
		}
	}()

	lib := library.Scan(cfg.ScoresDir)

	// Helper to update TUI once it exists
	var tuiProg *tea.Program
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	pol := sequence.DefaultPolicy()
	pol.StaccatoFraction = cfg.StaccatoFraction

	ctrl := controller.New(controller.Config{
		Mode:         cfg.Mode,
		Tolerance:    cfg.Tolerance,
		Policy:       pol,
		AdvanceDelay: cfg.AdvanceDelay,
	}, lib, out, func(st controller.Status) {
		updateTUI(ui.StatusMsg(st))
	})

	go ctrl.Run()

	if useTUI {
		tuiProg = ui.Run(ctrl.Events(), out.Name())
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		go elapsedTicker(ctrl, updateTUI)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctrl.Quit():
		log.Printf("Quit requested")
	case <-sigChan:
		log.Printf("Shutdown signal received")
		ctrl.Events() <- controller.Quit
		<-ctrl.Quit()
	}

	if tuiProg != nil {
		tuiProg.Quit()
	}
	log.Printf("Player stopped")
}

// applyFlags overlays explicitly-set CLI flags onto the config.
func applyFlags(cfg *config.Config) {
	if *scoresDir != "" {
		cfg.ScoresDir = *scoresDir
	}
	if *backendName != "" {
		cfg.Backend = *backendName
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *tolerance >= 0 {
		cfg.Tolerance = *tolerance
	}
	if *midiPort != "" {
		cfg.MIDIPort = *midiPort
	}
	if *samplesDir != "" {
		cfg.SamplesDir = *samplesDir
	}
}

// buildBackend constructs the configured output device, falling back
// to key simulation when a device cannot initialize. The player should
// come up even when audio or MIDI hardware is absent.
func buildBackend(cfg config.Config) backend.Backend {
	switch cfg.Backend {
	case "sample":
		s, err := backend.NewSampler(cfg.SamplesDir)
		if err != nil {
			log.Printf("sample backend unavailable (%v), falling back to keysim", err)
			return backend.NewKeySim(nil)
		}
		return s
	case "midi":
		m, err := backend.NewMIDIOut(cfg.MIDIPort)
		if err != nil {
			log.Printf("midi backend unavailable (%v), falling back to keysim", err)
			return backend.NewKeySim(nil)
		}
		return m
	default:
		return backend.NewKeySim(nil)
	}
}

// elapsedTicker refreshes the TUI's time display between controller
// state changes.
func elapsedTicker(ctrl *controller.Controller, updateTUI func(ui.StatusMsg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctrl.Quit():
			return
		case <-ticker.C:
			updateTUI(ui.StatusMsg(ctrl.Snapshot()))
		}
	}
}
