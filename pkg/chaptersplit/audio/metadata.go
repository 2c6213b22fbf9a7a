package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Metadata is what ffprobe reports about a source recording.
type Metadata struct {
	Filename    string
	DurationSec float64
	SampleRate  int
	Channels    int
	BitDepth    int
	Format      string
	Tags        map[string]string // lower-cased tag keys
}

// Tag returns the first non-empty tag among keys.
func (m *Metadata) Tag(keys ...string) string {
	if m == nil {
		return ""
	}
	for _, k := range keys {
		if v := strings.TrimSpace(m.Tags[strings.ToLower(k)]); v != "" {
			return v
		}
	}
	return ""
}

type ffprobeOutput struct {
	Format struct {
		Filename string            `json:"filename"`
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType     string            `json:"codec_type"`
	SampleRate    string            `json:"sample_rate"`
	Channels      int               `json:"channels"`
	BitsPerSample int               `json:"bits_per_sample"`
	Duration      string            `json:"duration"`
	Tags          map[string]string `json:"tags"`
}

func (p *ffprobeOutput) firstAudioStream() *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

// Probe runs ffprobe on path.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*Metadata, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(
		ctx,
		f.cfg.FFprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	// stdout carries only the JSON; stderr goes into the error
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe %s failed: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	return parseProbe(out, path)
}

func parseProbe(out []byte, path string) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON: %w", err)
	}

	audioStream := probe.firstAudioStream()
	if audioStream == nil {
		return nil, errors.New("no audio stream found")
	}

	duration, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	if duration <= 0 {
		// some containers only report duration per stream
		duration, _ = strconv.ParseFloat(audioStream.Duration, 64)
	}
	sampleRate, _ := strconv.Atoi(audioStream.SampleRate)

	meta := &Metadata{
		Filename:    filepath.Base(path),
		DurationSec: duration,
		SampleRate:  sampleRate,
		Channels:    audioStream.Channels,
		BitDepth:    audioStream.BitsPerSample,
		Format:      probe.Format.Format,
		Tags:        make(map[string]string),
	}

	for k, v := range audioStream.Tags {
		meta.Tags[strings.ToLower(k)] = v
	}
	// container tags win over stream tags
	for k, v := range probe.Format.Tags {
		meta.Tags[strings.ToLower(k)] = v
	}

	return meta, nil
}
