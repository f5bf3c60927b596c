package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Target canonical audio form for the playback device.
const (
	TargetSampleRate = 44100
	TargetChannels   = 1
	TargetBitrate    = "64k"
)

// Engine wraps the external ffmpeg/ffprobe binaries.
type Engine struct {
	FFmpeg  string
	FFprobe string
	Timeout time.Duration
}

// New returns an Engine using the given binary names, defaulting to the
// binaries on PATH.
func New(ffmpegBinary, ffprobeBinary string, timeout time.Duration) Engine {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return Engine{FFmpeg: ffmpegBinary, FFprobe: ffprobeBinary, Timeout: timeout}
}

// Available reports whether the ffmpeg binary can be executed.
func (e Engine) Available(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, e.FFmpeg, "-version")
	return cmd.Run() == nil
}

// AudioSpec describes one deterministic audio canonicalization.
type AudioSpec struct {
	// GainDB inserts a volume stage ahead of the normalizer when positive.
	GainDB float64
	// Normalize applies dynamic-range normalization.
	Normalize bool
	// SilencePad prepends and appends one second of silence.
	SilencePad bool
	// TrimLead skips this much of the source before any measurement.
	TrimLead time.Duration
}

// MeasurePeak runs a volumedetect pass and returns the measured peak in
// dBFS (zero or negative). The lead-in trim is applied before measurement
// so the measured region matches what will be transcoded.
func (e Engine) MeasurePeak(ctx context.Context, path string, trimLead time.Duration) (float64, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	args := []string{"-hide_banner", "-nostdin"}
	if trimLead > 0 {
		args = append(args, "-ss", formatSeconds(trimLead))
	}
	args = append(args,
		"-i", path,
		"-af", "volumedetect",
		"-vn", "-sn", "-dn",
		"-f", "null", "-",
	)

	cmd := exec.CommandContext(ctx, e.FFmpeg, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("measure peak: %w: %s", err, tail(string(output)))
	}

	peak, ok := parseMaxVolume(string(output))
	if !ok {
		return 0, errors.New("measure peak: no max_volume in engine output")
	}
	return peak, nil
}

// TranscodeAudio converts src into the canonical device form at dst:
// mono, 44100 Hz, metadata stripped, bitexact. The caller owns dst placement;
// the asset store writes to a temporary and publishes after hashing.
func (e Engine) TranscodeAudio(ctx context.Context, src, dst string, spec AudioSpec) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.FFmpeg, AudioArgs(src, dst, spec)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("transcode audio: %w: %s", err, tail(string(output)))
	}
	return nil
}

// AudioArgs builds the full deterministic argument list for one transcode.
// Exported so tests can pin the exact invocation; any change here changes
// canonical bytes and therefore every asset digest.
func AudioArgs(src, dst string, spec AudioSpec) []string {
	args := []string{"-y", "-hide_banner", "-nostdin"}

	if spec.TrimLead > 0 {
		args = append(args, "-ss", formatSeconds(spec.TrimLead))
	}

	args = append(args, "-i", src)

	var filters []string
	if spec.GainDB > 0 {
		filters = append(filters, fmt.Sprintf("volume=%sdB", trimFloat(spec.GainDB)))
	}
	if spec.Normalize {
		filters = append(filters, "dynaudnorm")
	}
	if spec.SilencePad {
		filters = append(filters, "adelay=1000|1000", "apad=pad_dur=1s")
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}

	args = append(args,
		"-ac", strconv.Itoa(TargetChannels),
		"-ar", strconv.Itoa(TargetSampleRate),
		"-b:a", TargetBitrate,
		"-map_metadata", "-1",
		"-id3v2_version", "0",
		"-write_id3v1", "0",
		"-fflags", "+bitexact",
		"-flags:a", "+bitexact",
		dst,
	)
	return args
}

func (e Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout > 0 {
		return context.WithTimeout(ctx, e.Timeout)
	}
	return context.WithCancel(ctx)
}

// parseMaxVolume scans volumedetect output for the "max_volume: -N.N dB" line.
func parseMaxVolume(output string) (float64, bool) {
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, "max_volume:")
		if idx < 0 {
			continue
		}
		fields := strings.Fields(line[idx+len("max_volume:"):])
		if len(fields) == 0 {
			continue
		}
		value, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || math.IsNaN(value) {
			continue
		}
		return value, true
	}
	return 0, false
}

func formatSeconds(d time.Duration) string {
	return trimFloat(d.Seconds())
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	const limit = 400
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
