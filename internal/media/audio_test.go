package media

import (
	"context"
	"os/exec"
	"testing"
)

func fakeCommand(t *testing.T, stderr string, exitFail bool) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if exitFail {
			return exec.CommandContext(ctx, "sh", "-c", "echo '"+stderr+"' >&2; exit 1")
		}
		return exec.CommandContext(ctx, "sh", "-c", "echo '"+stderr+"' >&2")
	}
	t.Cleanup(func() { commandContext = original })
}

func TestExtractAudioSucceeds(t *testing.T) {
	fakeCommand(t, "", false)
	if err := ExtractAudio(context.Background(), "ffmpeg", "/tmp/source.mp4", "/tmp/out.wav"); err != nil {
		t.Fatalf("ExtractAudio() error = %v", err)
	}
}

func TestExtractAudioFailsOnNonZeroExit(t *testing.T) {
	fakeCommand(t, "boom", true)
	if err := ExtractAudio(context.Background(), "ffmpeg", "/tmp/source.mp4", "/tmp/out.wav"); err == nil {
		t.Fatal("expected an error on non-zero exit")
	}
}

func TestMeasureRMSParsesMeanVolume(t *testing.T) {
	fakeCommand(t, "[Parsed_volumedetect_0] mean_volume: -40.0 dB", false)
	rms, err := MeasureRMS(context.Background(), "ffmpeg", "/tmp/out.wav")
	if err != nil {
		t.Fatalf("MeasureRMS() error = %v", err)
	}
	if rms <= 0 || rms >= 0.02 {
		t.Fatalf("MeasureRMS() = %v, want a small positive value near 0.01", rms)
	}
}

func TestMeasureRMSFailsWhenMeanVolumeMissing(t *testing.T) {
	fakeCommand(t, "nothing useful here", false)
	if _, err := MeasureRMS(context.Background(), "ffmpeg", "/tmp/out.wav"); err == nil {
		t.Fatal("expected an error when mean_volume is absent from output")
	}
}
