// Package media wraps ffmpeg for the two audio operations the pipeline
// needs: extracting a mono 16kHz WAV track from a video file, and
// measuring its mean RMS loudness for silence detection.
package media
