// ABOUTME: Streaming playback pipeline package
// ABOUTME: Orchestrates reader, decode engine and PCM sink for each playback session
// Package player plays an encoded byte stream through a decode engine into
// an audio device.
//
// Each session runs three goroutines: the stream reader filling byte
// chunks, the orchestrator (the caller of Play) decoding rounds into PCM
// blocks, and the sink writing blocks into the device. Chunk sizes follow a
// measured bitrate so that a chunk holds roughly one decode buffer of audio.
//
// Example:
//
//	p := player.New(player.Config{}, player.Callbacks{
//		OnStopped: func(perf int) { log.Printf("done, perf %d%%", perf) },
//	}, output.NewOto)
//	err := p.PlayURL(ctx, "http://radio.example/stream.mp3")
package player
