// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Interpolates float frames and carries state across chunk boundaries
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64

	// position of the next output frame, in frames, relative to last
	position float64
	last     []float32
	primed   bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		last:       make([]float32, channels),
	}
}

// Passthrough reports whether input and output rates match
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Resample converts interleaved input at inputRate and appends the
// interleaved result at outputRate to dst. Chunks may be any size; the
// final input frame of each chunk is kept so the next chunk continues the
// same interpolation.
func (r *Resampler) Resample(dst, input []float32) []float32 {
	frames := len(input) / r.channels
	if frames == 0 {
		return dst
	}
	if r.Passthrough() {
		return append(dst, input[:frames*r.channels]...)
	}

	offset := 0
	if r.primed {
		offset = 1
	}
	count := frames + offset

	frame := func(i, ch int) float32 {
		if i < offset {
			return r.last[ch]
		}
		return input[(i-offset)*r.channels+ch]
	}

	for {
		idx := int(r.position)
		if idx+1 >= count {
			break
		}
		frac := float32(r.position - float64(idx))

		for ch := 0; ch < r.channels; ch++ {
			s1 := frame(idx, ch)
			s2 := frame(idx+1, ch)
			dst = append(dst, s1+(s2-s1)*frac)
		}
		r.position += r.ratio
	}

	r.position -= float64(count - 1)
	copy(r.last, input[(frames-1)*r.channels:frames*r.channels])
	r.primed = true

	return dst
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	clear(r.last)
}

// OutputSamplesNeeded estimates how many output samples inputSamples produce
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames)/r.ratio) + 1
	return outputFrames * r.channels
}
