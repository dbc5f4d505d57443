// ABOUTME: Decode orchestrator and public player API
// ABOUTME: Ties stream reader, decode engine, rate estimator and sink into one session
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/streamplay/pkg/audio"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/decode"
	"github.com/Resonate-Protocol/streamplay/pkg/audio/output"
	"github.com/Resonate-Protocol/streamplay/pkg/source"
	"github.com/Resonate-Protocol/streamplay/pkg/stream"
)

// pcmBlocks is the number of PCM blocks rotating between decoder and sink
const pcmBlocks = 3

// Player plays encoded streams. Sessions are independent; Stop cancels
// every running session.
type Player struct {
	cfg       Config
	callback  Callback
	newDevice output.Factory
	newReader func(src io.Reader, capacity int) *stream.Reader

	mu       sync.Mutex
	sessions map[*Session]*Sink
	volume   int
}

// New creates a player. Zero Config fields take their defaults.
func New(cfg Config, callback Callback, newDevice output.Factory) *Player {
	if callback == nil {
		callback = Callbacks{}
	}
	if newDevice == nil {
		newDevice = output.NewOto
	}

	return &Player{
		cfg:       cfg.withDefaults(),
		callback:  callback,
		newDevice: newDevice,
		newReader: stream.NewReader,
		sessions:  make(map[*Session]*Sink),
		volume:    -1,
	}
}

// Config returns the effective configuration
func (p *Player) Config() Config {
	return p.cfg
}

// PlayURL opens target, picks an engine from its content type and plays it.
// Open and format errors are reported through FatalError and returned. The
// session exists while the source is opening, so Stop also cancels an open.
func (p *Player) PlayURL(ctx context.Context, target string) error {
	s := newSession(ctx)
	p.register(s)
	defer p.unregister(s)
	defer s.cancel()

	src, err := source.Open(s.ctx, target)
	if err != nil {
		if s.Cancelled() {
			log.Printf("Player: [%s] cancelled while opening %s", s.short(), target)
			p.callback.Stopped(0)
			return nil
		}
		p.callback.FatalError(err)
		return err
	}

	for _, h := range src.Metadata {
		p.callback.Metadata(h.Key, h.Value)
	}

	codec, err := decode.Sniff(src.ContentType, target)
	if err == nil {
		var engine decode.Engine
		engine, err = decode.New(codec)
		if err == nil {
			return p.play(s, src, engine, src.DeclaredKbps)
		}
	}

	src.Close()
	p.callback.FatalError(err)
	return err
}

// PlayAsync runs Play on a new goroutine. Errors are reported through the
// callback only.
func (p *Player) PlayAsync(ctx context.Context, src io.Reader, engine decode.Engine, declaredKbps int) {
	go func() {
		if err := p.Play(ctx, src, engine, declaredKbps); err != nil {
			log.Printf("Player: session ended with error: %v", err)
		}
	}()
}

// Stop cancels all running sessions without draining. It is safe to call
// at any time, repeatedly, and before any session started.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for s, sink := range p.sessions {
		log.Printf("Player: [%s] stop requested", s.short())
		s.Cancel()
		if sink != nil {
			sink.Stop(true)
		}
	}
}

// SetVolume sets the playback volume (0-100) of current and later sessions
func (p *Player) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume
	for _, sink := range p.sessions {
		if sink != nil {
			sink.SetVolume(volume)
		}
	}
}

// Volume returns the volume set with SetVolume, or 100
func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.volume < 0 {
		return 100
	}
	return p.volume
}

func (p *Player) register(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[s] = nil
}

func (p *Player) attach(s *Session, sink *Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[s] = sink
	if p.volume >= 0 {
		sink.SetVolume(p.volume)
	}
}

func (p *Player) unregister(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, s)
}

// Play decodes src with engine and plays it, returning when the session
// is over and every resource is released. Play owns src and closes it if
// it is an io.Closer. declaredKbps is the bitrate announced by the source,
// or 0. A cancelled session returns nil.
func (p *Player) Play(ctx context.Context, src io.Reader, engine decode.Engine, declaredKbps int) error {
	s := newSession(ctx)
	p.register(s)
	defer p.unregister(s)
	defer s.cancel()

	return p.play(s, src, engine, declaredKbps)
}

// play runs a registered session and reports its outcome
func (p *Player) play(s *Session, src io.Reader, engine decode.Engine, declaredKbps int) error {
	err := p.run(s, src, engine, declaredKbps)

	if err != nil {
		p.callback.FatalError(err)
		p.callback.Stopped(0)
		log.Printf("Player: [%s] aborted: %v", s.short(), err)
		return err
	}

	perf := s.Performance()
	p.callback.Stopped(perf)
	log.Printf("Player: [%s] stopped, %d rounds, perf %d%%", s.short(), s.rounds, perf)
	return nil
}

// run is the decode loop. On every exit path it marks the session token,
// stops the sink, the engine and the reader in that order, then joins the
// sink and the read loop.
func (p *Player) run(s *Session, src io.Reader, engine decode.Engine, declaredKbps int) (err error) {
	decodeMs := p.cfg.DecodeBufferCapacityMs
	assumed := p.cfg.expectedBitrate(declaredKbps)

	reader := p.newReader(src, p.cfg.chunkCapacity(assumed))
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		reader.Run()
	}()

	// The context only wakes the read loop; the decode loop polls the token
	stopWatch := context.AfterFunc(s.ctx, reader.Stop)

	var (
		sink            *Sink
		stopSink        func() bool
		stopImmediately = true
	)

	defer func() {
		s.end()
		if sink != nil {
			sink.Stop(stopImmediately)
		}
		if stopErr := engine.Stop(); stopErr != nil {
			log.Printf("Player: [%s] engine stop failed: %v", s.short(), stopErr)
		}
		stopWatch()
		reader.Stop()
		if c, ok := src.(io.Closer); ok {
			c.Close()
		}

		if sink != nil {
			<-sink.Done()
			stopSink()
			if err == nil {
				if sinkErr := sink.Err(); sinkErr != nil {
					err = sinkErr
				}
			}
		}
		<-readerDone
	}()

	log.Printf("Player: [%s] starting, assumed bitrate %d kbps, chunk %d bytes",
		s.short(), assumed, reader.Capacity())

	info, err := engine.Start(reader.Source())
	if err != nil {
		if s.Cancelled() {
			return nil
		}
		return &EngineError{Op: "start", Err: err}
	}

	if info.Channels > audio.MaxChannels {
		return &EngineError{Op: "start", Err: fmt.Errorf("%w: %d", decode.ErrTooManyChannels, info.Channels)}
	}
	if info.Channels < 1 || info.SampleRate <= 0 {
		return &EngineError{Op: "start", Err: fmt.Errorf("invalid stream format: %dHz %dch", info.SampleRate, info.Channels)}
	}
	s.info = info

	log.Printf("Player: [%s] %s %dHz %dch", s.short(), info.Codec, info.SampleRate, info.Channels)

	blockSize := audio.MsToSamples(decodeMs, info.SampleRate, info.Channels)
	blockSize -= blockSize % info.Channels
	var blocks [pcmBlocks]*audio.PCMBlock
	for i := range blocks {
		blocks[i] = audio.NewPCMBlock(blockSize)
	}

	sink = NewSink(s.short(), info, p.cfg, p.newDevice, p.callback)
	p.attach(s, sink)
	go sink.Run()

	// A cancel while draining still cuts the drain short
	stopSink = context.AfterFunc(s.ctx, func() { sink.Stop(true) })

	if len(info.FirstSamples) > 0 {
		first := &audio.PCMBlock{Samples: info.FirstSamples, Count: len(info.FirstSamples)}
		if !sink.Feed(first) {
			return sinkFailure(sink, s)
		}
	}

	for i := 0; !s.Cancelled(); i++ {
		block := blocks[i%pcmBlocks]

		started := time.Now()
		round, decodeErr := engine.Decode(block.Samples)
		elapsed := time.Since(started)

		if decodeErr != nil {
			if s.Cancelled() {
				return nil
			}
			return &EngineError{Op: "decode", Err: decodeErr}
		}
		if round.Samples == 0 {
			log.Printf("Player: [%s] end of stream", s.short())
			stopImmediately = s.Cancelled()
			return nil
		}

		s.addRound(elapsed, round.Samples)
		block.Count = round.Samples

		if !sink.Feed(block) {
			return sinkFailure(sink, s)
		}

		kbps := BitrateKbps(round.BytesConsumed, round.Samples, info.SampleRate, info.Channels)
		s.estimator.Add(kbps, round.Frames)

		if estimate := s.estimator.Estimate(); estimate > 0 && abs(estimate-assumed) > 1 {
			log.Printf("Player: [%s] bitrate %d -> %d kbps", s.short(), assumed, estimate)
			reader.SetCapacity(p.cfg.chunkCapacity(estimate))
			assumed = estimate
		}
	}

	return nil
}

// sinkFailure returns the sink's error, or nil when it stopped for a cancel
func sinkFailure(sink *Sink, s *Session) error {
	if err := sink.Err(); err != nil {
		return err
	}
	if s.Cancelled() {
		return nil
	}
	return &SinkError{Op: "feed", Err: errors.New("sink stopped")}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
