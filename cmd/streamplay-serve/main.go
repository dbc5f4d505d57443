// ABOUTME: Entry point for the streamplay test stream server
// ABOUTME: Parses CLI flags and serves a generated tone over HTTP and WebSocket
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/streamplay/internal/server"
)

var (
	port       = flag.Int("port", 8927, "HTTP server port")
	name       = flag.String("name", "", "Stream name (default: hostname-streamplay)")
	logFile    = flag.String("log-file", "streamplay-serve.log", "Log file path")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	useTUI     = flag.Bool("tui", false, "Show a status TUI instead of streaming logs")
	sampleRate = flag.Int("rate", server.DefaultSampleRate, "Sample rate in Hz")
	channels   = flag.Int("channels", server.DefaultChannels, "Channel count (1 or 2)")
	bitDepth   = flag.Int("bits", 16, "Bit depth (16 or 24)")
	frequency  = flag.Float64("freq", server.DefaultFrequency, "Tone frequency in Hz")
	duration   = flag.Duration("duration", 0, "Stream length (0: endless)")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if *useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	streamName := *name
	if streamName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		streamName = fmt.Sprintf("%s-streamplay", hostname)
	}

	log.Printf("Starting streamplay test server: %s on port %d", streamName, *port)
	log.Printf("Logging to: %s", *logFile)

	srv := server.New(server.Config{
		Port:       *port,
		Name:       streamName,
		EnableMDNS: !*noMDNS,
		UseTUI:     *useTUI,
		SampleRate: *sampleRate,
		Channels:   *channels,
		BitDepth:   *bitDepth,
		Frequency:  *frequency,
		Duration:   *duration,
		Realtime:   true,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	started := time.Now()
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped after %s", time.Since(started).Round(time.Second))
}
