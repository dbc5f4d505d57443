// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines StreamInfo, PCMBlock and duration/sample conversions
// Package audio provides the core types shared by the decode engines, the
// output devices and the player.
//
//   - StreamInfo: format of a decoded stream (codec, sample rate, channels, frame stats)
//   - PCMBlock: interleaved 16-bit samples with a valid count
//
// It also converts between milliseconds, bytes and samples of 16-bit PCM,
// and scales wider integer and float samples down to 16 bits.
//
// Example:
//
//	block := audio.NewPCMBlock(audio.MsToSamples(700, 44100, 2))
//	ms := audio.SamplesToMs(block.Count, 44100, 2)
package audio
