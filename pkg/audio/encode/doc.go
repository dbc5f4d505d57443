// ABOUTME: Audio encoder package for writing PCM streams
// ABOUTME: Provides the Encoder interface, a PCM encoder and WAV headers
// Package encode writes PCM audio as served by the test stream server.
//
// Supports: PCM (16-bit and 24-bit little-endian) in a RIFF/WAVE container.
//
// Example:
//
//	encoder, err := encode.NewPCM(16)
//	header := encode.WAVHeader(44100, 2, 16, encode.StreamingSize)
//	data, err := encoder.Encode(samples)
package encode
