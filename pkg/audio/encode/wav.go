// ABOUTME: RIFF/WAVE header writer
// ABOUTME: Builds canonical PCM headers for finite and endless streams
package encode

import "encoding/binary"

// StreamingSize is the data size announced for streams of unknown length
const StreamingSize = 0xFFFFFFFF - 36

// WAVHeaderSize is the length of the header written by WAVHeader
const WAVHeaderSize = 44

// WAVHeader returns a 44-byte PCM WAV header for dataBytes of audio
func WAVHeader(sampleRate, channels, bitDepth int, dataBytes uint32) []byte {
	blockAlign := channels * bitDepth / 8
	h := make([]byte, WAVHeaderSize)

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], 36+dataBytes)
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1)
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], uint16(bitDepth))

	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], dataBytes)
	return h
}
