package media

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
)

var commandContext = exec.CommandContext

// ExtractAudio extracts the full audio stream from source into a mono
// 16kHz WAV file at dest, matching the format ASR transcribers expect.
func ExtractAudio(ctx context.Context, ffmpegBinary, source, dest string) error {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := commandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w: %s", err, string(output))
	}
	return nil
}

var meanVolumePattern = regexp.MustCompile(`mean_volume:\s*(-?[0-9.]+)\s*dB`)

// MeasureRMS runs ffmpeg's volumedetect filter over audioPath and converts
// its reported mean volume (in dBFS) to a linear RMS amplitude in [0, 1],
// so it can be compared against silence.rms_max.
func MeasureRMS(ctx context.Context, ffmpegBinary, audioPath string) (float64, error) {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	args := []string{
		"-hide_banner",
		"-i", audioPath,
		"-af", "volumedetect",
		"-f", "null",
		"-",
	}
	cmd := commandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffmpeg volumedetect: %w: %s", err, stderr.String())
	}

	match := meanVolumePattern.FindStringSubmatch(stderr.String())
	if match == nil {
		return 0, fmt.Errorf("ffmpeg volumedetect: mean_volume not found in output")
	}
	decibels, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("ffmpeg volumedetect: parse mean_volume: %w", err)
	}
	return math.Pow(10, decibels/20), nil
}
