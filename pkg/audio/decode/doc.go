// ABOUTME: Decode engine package for multiple codec support
// ABOUTME: Provides the Engine contract and engines for MP3, FLAC, Vorbis, Opus and WAV
// Package decode turns a pull-source of encoded bytes into 16-bit PCM.
//
// Supports: MP3, FLAC, Ogg/Vorbis, Ogg/Opus, WAV (16/24-bit PCM)
//
// An Engine is started once on an io.Reader and then asked to fill PCM
// buffers one round at a time. Each round reports how many samples were
// produced, how many encoded bytes were consumed and how many codec frames
// were decoded. A round with zero samples marks the end of the stream.
//
// Example:
//
//	codec, err := decode.Sniff(contentType, url)
//	engine, err := decode.New(codec)
//	info, err := engine.Start(src)
//	round, err := engine.Decode(buf)
package decode
