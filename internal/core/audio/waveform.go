// Package audio decodes, resamples and exports the mono waveforms that the
// segmenter and transcriber work on.
package audio

import (
	"math"
	"time"
)

const (
	// CanonicalRate is the sample rate every chunk is normalized to.
	CanonicalRate = 16000

	// CanonicalBitDepth is the PCM depth of exported WAV files.
	CanonicalBitDepth = 16
)

// Waveform is a mono signal with samples in [-1, 1].
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the length of the signal.
func (w *Waveform) Duration() time.Duration {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// Len returns the number of samples.
func (w *Waveform) Len() int {
	return len(w.Samples)
}

// SampleAt converts an offset to a sample index, clamped to [0, Len()].
func (w *Waveform) SampleAt(d time.Duration) int {
	i := int(math.Round(d.Seconds() * float64(w.SampleRate)))
	if i < 0 {
		return 0
	}
	if i > len(w.Samples) {
		return len(w.Samples)
	}
	return i
}

// Slice returns the samples in [start, end). The result shares storage with w.
func (w *Waveform) Slice(start, end int) *Waveform {
	if start < 0 {
		start = 0
	}
	if end > len(w.Samples) {
		end = len(w.Samples)
	}
	if start > end {
		start = end
	}
	return &Waveform{Samples: w.Samples[start:end], SampleRate: w.SampleRate}
}

// RMS returns the root-mean-square level of the signal.
func (w *Waveform) RMS() float64 {
	if len(w.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range w.Samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(w.Samples)))
}

// Resample converts the signal to rate using linear interpolation.
func Resample(w *Waveform, rate int) *Waveform {
	if w.SampleRate == rate || len(w.Samples) == 0 {
		return &Waveform{Samples: w.Samples, SampleRate: rate}
	}

	ratio := float64(w.SampleRate) / float64(rate)
	newLen := int(float64(len(w.Samples)) / ratio)
	out := make([]float32, newLen)

	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		if srcIdx+1 < len(w.Samples) {
			out[i] = w.Samples[srcIdx]*(1-frac) + w.Samples[srcIdx+1]*frac
		} else if srcIdx < len(w.Samples) {
			out[i] = w.Samples[srcIdx]
		}
	}

	return &Waveform{Samples: out, SampleRate: rate}
}

// Calibrate measures the ambient level over the leading window and returns
// the remainder of the signal. Clips no longer than the window are returned
// unchanged with a zero level.
func Calibrate(w *Waveform, window time.Duration) (rest *Waveform, ambientRMS float64) {
	n := w.SampleAt(window)
	if window <= 0 || n >= len(w.Samples) {
		return w, 0
	}
	return w.Slice(n, len(w.Samples)), w.Slice(0, n).RMS()
}

// downmix averages interleaved frames into mono floats, scaling by full.
func downmix(dst []float32, data []int, channels int, full float32, offset int) []float32 {
	if channels < 1 {
		channels = 1
	}
	frames := len(data) / channels
	for f := 0; f < frames; f++ {
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += data[f*channels+ch] - offset
		}
		dst = append(dst, float32(sum)/float32(channels)/full)
	}
	return dst
}
