package correlate

import (
	"errors"
	"math"
	"time"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmptyInput        = errors.New("correlate: empty input")
	ErrReferenceTooLong  = errors.New("correlate: reference longer than searched signal")
	ErrInvalidSampleRate = errors.New("correlate: sample rate must be positive")
)

// Match describes the best alignment of a reference clip inside a signal.
type Match struct {
	Index      int     // sample index where the reference starts
	Offset     float64 // Index in seconds, rounded to centiseconds
	Peak       float64 // raw correlation value at Index
	Score      float64 // normalized cross-correlation at Index, in [-1, 1]
	Prominence float64 // peak height in standard deviations above the mean
}

// TrimReference returns at most the first window of ref.
// A non-positive window keeps the whole clip.
func TrimReference(ref []float64, sampleRate int, window time.Duration) []float64 {
	if window <= 0 || sampleRate <= 0 {
		return ref
	}
	n := int(window.Seconds() * float64(sampleRate))
	if n >= len(ref) {
		return ref
	}
	return ref[:n]
}

// Correlate computes the valid-mode cross-correlation of ref against within:
//
//	c[k] = sum_j within[k+j] * ref[j],  k = 0 .. len(within)-len(ref)
//
// It is evaluated in the frequency domain as IFFT(FFT(within) * conj(FFT(ref))).
// Padding both inputs to a power of two >= len(within) is enough to keep the
// valid lags free of circular wrap-around.
func Correlate(within, ref []float64) ([]float64, error) {
	if len(within) == 0 || len(ref) == 0 {
		return nil, ErrEmptyInput
	}
	if len(ref) > len(within) {
		return nil, ErrReferenceTooLong
	}

	size := nextPowerOf2(len(within))

	a := make([]float64, size)
	copy(a, within)
	b := make([]float64, size)
	copy(b, ref)

	specA := fft.FFTReal(a)
	specB := fft.FFTReal(b)
	for i := range specA {
		bi := specB[i]
		specA[i] *= complex(real(bi), -imag(bi))
	}
	circular := fft.IFFT(specA)

	out := make([]float64, len(within)-len(ref)+1)
	for k := range out {
		out[k] = real(circular[k])
	}
	return out, nil
}

// FindOffset locates ref inside within and reports where it matches best.
// Ties resolve to the earliest position.
func FindOffset(within, ref []float64, sampleRate int) (Match, error) {
	if sampleRate <= 0 {
		return Match{}, ErrInvalidSampleRate
	}

	c, err := Correlate(within, ref)
	if err != nil {
		return Match{}, err
	}

	idx := floats.MaxIdx(c)
	m := Match{
		Index:  idx,
		Offset: roundCentis(float64(idx) / float64(sampleRate)),
		Peak:   c[idx],
	}

	segNorm := floats.Norm(within[idx:idx+len(ref)], 2)
	refNorm := floats.Norm(ref, 2)
	if segNorm > 0 && refNorm > 0 {
		m.Score = clamp(m.Peak/(segNorm*refNorm), -1, 1)
	}

	if len(c) > 1 {
		mean, std := stat.MeanStdDev(c, nil)
		if std > 0 {
			m.Prominence = (m.Peak - mean) / std
		}
	}

	return m, nil
}

func roundCentis(sec float64) float64 {
	return math.Round(sec*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
