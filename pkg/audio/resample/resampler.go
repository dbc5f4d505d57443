// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Streams interleaved 16-bit PCM across calls using linear interpolation
package resample

// Resampler performs linear interpolation to convert between sample rates.
// The last input frame of each call is carried into the next call, so a
// stream split into arbitrary blocks resamples without seams.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
	last       []int16 // one sample per channel
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		last:       make([]int16, channels),
	}
}

// Ratio returns input frames per output frame
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// Resample appends the resampled form of input to dst and returns it.
// input and output are interleaved; input must hold whole frames.
func (r *Resampler) Resample(dst, input []int16) []int16 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return dst
	}

	// Frame i of the virtual sequence is the carried frame followed by input
	offset := 0
	if r.primed {
		offset = 1
	}
	frames := inputFrames + offset

	frame := func(i int, ch int) int16 {
		if i < offset {
			return r.last[ch]
		}
		return input[(i-offset)*r.channels+ch]
	}

	for r.position < float64(frames-1) {
		idx := int(r.position)
		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(frame(idx, ch))
			s2 := float64(frame(idx+1, ch))
			dst = append(dst, int16(s1*(1.0-frac)+s2*frac))
		}

		r.position += r.ratio
	}

	// Rebase on the last frame, which becomes the carried frame
	r.position -= float64(frames - 1)
	copy(r.last, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.primed = true

	return dst
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.last {
		r.last[i] = 0
	}
}

// OutputSamplesNeeded returns an upper bound of output samples for an input size
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples/r.channels + 1
	outputFrames := int(float64(inputFrames)/r.ratio) + 1
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}
