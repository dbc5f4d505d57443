// ABOUTME: Stream bitrate estimation
// ABOUTME: Frame-weighted running bitrate that freezes after enough frames
package player

// rateFreezeFrames is the frame count after which the estimate is fixed
const rateFreezeFrames = 64

// BitrateKbps computes the bitrate of a round from the encoded bytes it
// consumed and the interleaved samples it produced, rounded half up.
// It returns -1 when samples is not positive.
func BitrateKbps(bytes, samples, sampleRate, channels int) int {
	if samples <= 0 {
		return -1
	}
	bps := 8 * int64(bytes) * int64(channels) * int64(sampleRate) / int64(samples)
	return int((bps + 500) / 1000)
}

// RateEstimator keeps a frame-weighted average of per-round bitrates.
// Rounds are accumulated until 64 frames were seen; after that the
// estimate no longer changes.
type RateEstimator struct {
	weighted int64
	frames   int
}

// Add accumulates one round
func (e *RateEstimator) Add(kbps, frames int) {
	if e.frames >= rateFreezeFrames || kbps < 0 || frames <= 0 {
		return
	}
	e.weighted += int64(kbps) * int64(frames)
	e.frames += frames
}

// Estimate returns the average bitrate, or 0 before the first round
func (e *RateEstimator) Estimate() int {
	if e.frames == 0 {
		return 0
	}
	return int(e.weighted / int64(e.frames))
}

// Frozen reports whether the estimate stopped updating
func (e *RateEstimator) Frozen() bool {
	return e.frames >= rateFreezeFrames
}

// Frames returns the number of frames accumulated
func (e *RateEstimator) Frames() int {
	return e.frames
}
