// ABOUTME: Test stream server for streamplay
// ABOUTME: Serves a generated tone as WAV over HTTP and WebSocket and announces it via mDNS
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/streamplay/internal/discovery"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/encode"
)

const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2
	DefaultFrequency  = 440.0

	// StreamPath serves the tone over plain HTTP
	StreamPath = "/stream.wav"

	// WebSocketPath serves the tone as binary WebSocket messages
	WebSocketPath = "/ws"

	// chunkDuration is the audio carried by one write
	chunkDuration = 100 * time.Millisecond
)

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	UseTUI     bool

	SampleRate int
	Channels   int
	BitDepth   int
	Frequency  float64

	// Duration limits each stream; zero streams forever
	Duration time.Duration

	// Realtime paces output at playback speed
	Realtime bool
}

// Server streams a test tone to any number of listeners
type Server struct {
	config   Config
	serverID string

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	listeners   map[string]*Listener
	listenersMu sync.RWMutex

	mdnsManager *discovery.Manager

	tui       *ServerTUI
	startTime time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Listener is one connected stream consumer
type Listener struct {
	ID        string
	Remote    string
	Transport string
	sent      atomic.Int64
}

// Sent returns the bytes written to the listener
func (l *Listener) Sent() int64 {
	return l.sent.Load()
}

// New creates a new server instance
func New(config Config) *Server {
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultSampleRate
	}
	if config.Channels <= 0 {
		config.Channels = DefaultChannels
	}
	if config.BitDepth == 0 {
		config.BitDepth = 16
	}
	if config.Frequency <= 0 {
		config.Frequency = DefaultFrequency
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin != "" && origin != "http://localhost" && origin != "http://127.0.0.1" {
					// Trusted local networks only
					log.Printf("Warning: accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		listeners: make(map[string]*Listener),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}

	s.mux.HandleFunc(StreamPath, s.handleStream)
	s.mux.HandleFunc(WebSocketPath, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving both endpoints
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Stop is called, the TUI quits or the listener fails
func (s *Server) Start() error {
	if _, err := encode.NewPCM(s.config.BitDepth); err != nil {
		return err
	}

	if s.config.UseTUI {
		s.tui = NewServerTUI()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(s.status()); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	}

	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{})
		if err := s.mdnsManager.Advertise(s.config.Name, s.config.Port, StreamPath); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Streaming %s on %s (HTTP %s, WebSocket %s)", s.toneName(), addr, StreamPath, WebSocketPath)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case <-tuiQuitChan:
		log.Printf("TUI quit requested, shutting down...")
		s.Stop()
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
		s.Stop()
	}

	if s.tui != nil {
		s.tui.Stop()
	}
	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server and ends every stream
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Listeners returns a snapshot of connected listeners
func (s *Server) Listeners() []*Listener {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()

	out := make([]*Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

// handleStream serves the tone as a WAV HTTP response
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	size := s.dataSize()

	h := w.Header()
	h.Set("Content-Type", "audio/wav")
	h.Set("icy-name", s.config.Name)
	h.Set("icy-genre", "Test Tone")
	h.Set("icy-br", strconv.Itoa(s.bitrateKbps()))
	if s.config.Duration > 0 {
		h.Set("Content-Length", strconv.FormatInt(int64(encode.WAVHeaderSize)+int64(size), 10))
	}

	listener := s.addListener(r.RemoteAddr, "http")
	defer s.removeListener(listener)

	rc := http.NewResponseController(w)
	err := s.pump(r.Context(), listener, func(data []byte) error {
		if _, err := w.Write(data); err != nil {
			return err
		}
		return rc.Flush()
	})
	if err != nil {
		log.Printf("Stream to %s ended: %v", r.RemoteAddr, err)
	}
}

// handleWebSocket serves the tone as binary WebSocket messages
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	listener := s.addListener(r.RemoteAddr, "websocket")
	defer s.removeListener(listener)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Control frames are only processed while reading
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	err = s.pump(ctx, listener, func(data []byte) error {
		return conn.WriteMessage(websocket.BinaryMessage, data)
	})
	if err != nil {
		log.Printf("WebSocket stream to %s ended: %v", r.RemoteAddr, err)
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of stream")
	if err := conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second)); err != nil {
		log.Printf("WebSocket close error: %v", err)
	}
}

// pump writes the WAV header and tone chunks until the stream is complete
func (s *Server) pump(ctx context.Context, listener *Listener, write func([]byte) error) error {
	encoder, err := encode.NewPCM(s.config.BitDepth)
	if err != nil {
		return err
	}
	defer encoder.Close()

	cfg := s.config
	tone := NewToneSource(cfg.SampleRate, cfg.Channels, cfg.Frequency)

	remaining := int64(-1)
	if cfg.Duration > 0 {
		remaining = s.totalFrames()
	}

	header := encode.WAVHeader(cfg.SampleRate, cfg.Channels, cfg.BitDepth, s.dataSize())
	if err := write(header); err != nil {
		return err
	}
	listener.sent.Add(int64(len(header)))

	chunkFrames := int64(cfg.SampleRate) * int64(chunkDuration) / int64(time.Second)
	buf := make([]int16, chunkFrames*int64(cfg.Channels))
	started := time.Now()
	var produced time.Duration

	for remaining != 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopChan:
			return errors.New("server stopping")
		default:
		}

		frames := chunkFrames
		if remaining > 0 && remaining < frames {
			frames = remaining
		}

		n := tone.Read(buf[:frames*int64(cfg.Channels)])
		data, err := encoder.Encode(buf[:n])
		if err != nil {
			return err
		}
		if err := write(data); err != nil {
			return err
		}
		listener.sent.Add(int64(len(data)))

		if remaining > 0 {
			remaining -= frames
		}

		if cfg.Realtime {
			produced += time.Duration(frames) * time.Second / time.Duration(cfg.SampleRate)
			if wait := produced - time.Since(started); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				case <-s.stopChan:
					return errors.New("server stopping")
				}
			}
		}
	}

	return nil
}

func (s *Server) totalFrames() int64 {
	return int64(s.config.Duration) * int64(s.config.SampleRate) / int64(time.Second)
}

// dataSize is the WAV data chunk size announced in the header
func (s *Server) dataSize() uint32 {
	if s.config.Duration <= 0 {
		return encode.StreamingSize
	}
	return uint32(s.totalFrames() * int64(s.config.Channels*s.config.BitDepth/8))
}

func (s *Server) bitrateKbps() int {
	return s.config.SampleRate * s.config.Channels * s.config.BitDepth / 1000
}

func (s *Server) toneName() string {
	return fmt.Sprintf("%.0fHz tone, %dHz %dch %d-bit", s.config.Frequency, s.config.SampleRate, s.config.Channels, s.config.BitDepth)
}

func (s *Server) addListener(remote, transport string) *Listener {
	l := &Listener{ID: uuid.New().String(), Remote: remote, Transport: transport}

	s.listenersMu.Lock()
	s.listeners[l.ID] = l
	s.listenersMu.Unlock()

	log.Printf("Listener connected: %s via %s", remote, transport)
	s.updateTUI()
	return l
}

func (s *Server) removeListener(l *Listener) {
	s.listenersMu.Lock()
	delete(s.listeners, l.ID)
	s.listenersMu.Unlock()

	log.Printf("Listener disconnected: %s (%d bytes sent)", l.Remote, l.Sent())
	s.updateTUI()
}
