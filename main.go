// ABOUTME: Entry point for the streamplay command line player
// ABOUTME: Parses flags, opens a stream URL or file and plays it with an optional TUI
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/streamplay/internal/config"
	"github.com/Resonate-Protocol/streamplay/internal/discovery"
	"github.com/Resonate-Protocol/streamplay/internal/history"
	"github.com/Resonate-Protocol/streamplay/internal/ui"
	"github.com/Resonate-Protocol/streamplay/internal/version"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/decode"
	"github.com/Resonate-Protocol/streamplay/pkg/player"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading .env: %v", err)
	}

	flag.IntVar(&cfg.AudioBufferMs, "audio-buffer-ms", cfg.AudioBufferMs, "Audio device buffer size in milliseconds")
	flag.IntVar(&cfg.DecodeBufferMs, "decode-buffer-ms", cfg.DecodeBufferMs, "Decoded block size in milliseconds")
	flag.IntVar(&cfg.BitrateKbps, "bitrate", cfg.BitrateKbps, "Expected stream bitrate in kbps (0: use the declared one)")
	flag.IntVar(&cfg.Volume, "volume", cfg.Volume, "Initial volume (0-100)")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path")
	noTUI := flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	showHistory := flag.Bool("history", false, "List recently played streams and exit")
	discover := flag.Bool("discover", false, "Play the first stream found via mDNS")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <url-or-file>\n", version.Product)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.UserAgent())
		return
	}

	historyPath := cfg.HistoryFile
	if historyPath == "" {
		if historyPath, err = history.DefaultPath(); err != nil {
			log.Printf("History disabled: %v", err)
		}
	}

	if *showHistory {
		printHistory(historyPath)
		return
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	target := flag.Arg(0)
	if *discover {
		target, err = discoverStream(ctx)
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
	}
	if target == "" {
		flag.Usage()
		os.Exit(2)
	}

	log.Printf("Starting %s: %s", version.UserAgent(), target)

	// TUI setup
	var tuiProg *tea.Program
	var volumeCtrl *ui.VolumeControl
	tuiDone := make(chan struct{})

	if useTUI {
		volumeCtrl = ui.NewVolumeControl()
		tuiProg = ui.Run(target, cfg.Volume, volumeCtrl)
		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	} else {
		close(tuiDone)
	}

	// Helper to update TUI
	updateTUI := func(msg tea.Msg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	var started atomic.Bool
	var codec, stationName atomic.Value

	callbacks := player.Callbacks{
		OnStarted: func() {
			started.Store(true)
			log.Printf("Playback started")
			updateTUI(ui.StatusMsg{State: ui.StatePlaying})
		},
		OnBufferStatus: func(isPlaying bool, bufferedMs, capacityMs int) {
			updateTUI(ui.BufferMsg{Playing: isPlaying, BufferedMs: bufferedMs, CapacityMs: capacityMs})
		},
		OnStopped: func(perf int) {
			log.Printf("Playback stopped, decode performance %+d%%", perf)
			updateTUI(ui.StoppedMsg{Perf: perf})
		},
		OnFatalError: func(err error) {
			log.Printf("Player error: %v", err)
			updateTUI(ui.StatusMsg{Err: err})
		},
		OnMetadata: func(key, value string) {
			log.Printf("Stream %s: %s", key, value)
			updateTUI(ui.MetadataMsg{Key: key, Value: value})
			if key == "icy-name" {
				stationName.Store(value)
			}
			if key == "content-type" {
				if name, err := decode.Sniff(value, target); err == nil {
					codec.Store(name)
					updateTUI(ui.StatusMsg{State: ui.StateBuffering, Codec: name})
				}
			}
		},
	}

	p := player.New(player.Config{
		AudioBufferCapacityMs:  cfg.AudioBufferMs,
		DecodeBufferCapacityMs: cfg.DecodeBufferMs,
		ExpectedBitrateKbps:    cfg.BitrateKbps,
	}, callbacks, nil)
	p.SetVolume(cfg.Volume)

	if volumeCtrl != nil {
		go handleVolumeControl(p, volumeCtrl)
	}

	// Cancelling playCtx also stops a stream that is still being opened
	playCtx, cancelPlay := context.WithCancel(ctx)
	defer cancelPlay()

	done := make(chan error, 1)
	go func() {
		done <- p.PlayURL(playCtx, target)
	}()

	// Wait for the stream to end, or a quit from the TUI or OS
	var quit <-chan ui.QuitMsg
	if volumeCtrl != nil {
		quit = volumeCtrl.Quit
	}

	var playErr error
	select {
	case playErr = <-done:
	case <-quit:
		log.Printf("Received quit signal from TUI")
		cancelPlay()
		p.Stop()
		playErr = <-done
	case <-ctx.Done():
		log.Printf("Shutdown signal received")
		p.Stop()
		playErr = <-done
	}

	if started.Load() && historyPath != "" {
		codecName, _ := codec.Load().(string)
		name, _ := stationName.Load().(string)
		recordHistory(historyPath, history.Entry{URL: target, Codec: codecName, Name: name})
	}

	if tuiProg != nil {
		// Leave the final state on screen briefly
		if playErr != nil {
			time.Sleep(2 * time.Second)
		}
		tuiProg.Quit()
	}
	<-tuiDone

	if playErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", version.Product, playErr)
		_ = f.Close()
		os.Exit(1)
	}

	log.Printf("Player stopped")
}

// handleVolumeControl processes volume changes from TUI
func handleVolumeControl(p *player.Player, volumeCtrl *ui.VolumeControl) {
	for vol := range volumeCtrl.Changes {
		log.Printf("Volume change: %d%%, muted=%v", vol.Volume, vol.Muted)
		if vol.Muted {
			p.SetVolume(0)
		} else {
			p.SetVolume(vol.Volume)
		}
	}
}

// discoverStream waits for the first stream announced over mDNS
func discoverStream(ctx context.Context) (string, error) {
	log.Printf("Starting stream discovery...")
	disc := discovery.NewManager(discovery.Config{})
	disc.Browse()
	defer disc.Stop()

	select {
	case stream := <-disc.Streams():
		log.Printf("Discovered %s", stream)
		return stream.URL(), nil
	case <-time.After(10 * time.Second):
		return "", fmt.Errorf("no stream found after 10 seconds")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func printHistory(path string) {
	if path == "" {
		return
	}
	h, err := history.Load(path)
	if err != nil {
		log.Fatalf("Failed to load history: %v", err)
	}
	if len(h.Entries) == 0 {
		fmt.Println("No streams played yet")
		return
	}
	for _, e := range h.Entries {
		fmt.Printf("%s  %-7s %3dx  %s\n", e.LastPlay.Format("2006-01-02 15:04"), e.Codec, e.PlayCount, e.URL)
	}
}

func recordHistory(path string, entry history.Entry) {
	h, err := history.Load(path)
	if err != nil {
		log.Printf("Failed to load history: %v", err)
		return
	}
	h.Add(entry)
	if err := h.Save(); err != nil {
		log.Printf("Failed to save history: %v", err)
	}
}
