package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWavMono reads an integer PCM WAV file and returns mono samples
// normalized to [-1, 1] together with the sample rate. Multi-channel input
// is downmixed by averaging the channels of each frame.
func ReadWavMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding PCM samples: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, 0, errors.New("WAV file has no format information")
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("unsupported bits per sample: %d", bitDepth)
	}

	samples, err := downmix(buf, bitDepth)
	if err != nil {
		return nil, 0, err
	}
	return samples, buf.Format.SampleRate, nil
}

// downmix converts interleaved integer PCM to normalized mono float64.
func downmix(buf *goaudio.IntBuffer, bitDepth int) ([]float64, error) {
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, errors.New("unsupported channel count: 0")
	}

	scale := 1.0 / float64(int64(1)<<uint(bitDepth-1))
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		return downmixUnsigned8(buf.Data, channels), nil
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = sum * scale / float64(channels)
	}
	return out, nil
}

func downmixUnsigned8(data []int, channels int) []float64 {
	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c] - 128)
		}
		out[i] = sum / 128 / float64(channels)
	}
	return out
}
