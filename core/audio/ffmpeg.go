package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpeg shells out to ffmpeg/ffprobe for duration probing and the per-speed
// transcode cache used by speed changes.
type FFmpeg struct {
	ffmpegPath  string
	playbackDir string
}

// NewFFmpeg creates an FFmpeg helper. playbackDir holds the per-speed
// transcode cache: playbackDir/<speed>/<basename>.
func NewFFmpeg(ffmpegPath, playbackDir string) *FFmpeg {
	return &FFmpeg{ffmpegPath: ffmpegPath, playbackDir: playbackDir}
}

// FFmpegPath returns the configured ffmpeg binary path.
func (p *FFmpeg) FFmpegPath() string {
	return p.ffmpegPath
}

func (p *FFmpeg) ffprobePath() string {
	return strings.Replace(p.ffmpegPath, "ffmpeg", "ffprobe", 1)
}

// Duration returns the duration of a media file in whole seconds.
func (p *FFmpeg) Duration(ctx context.Context, inputFile string) (int, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputFile,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath(), args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, stderr.String())
	}

	var probeData struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}

	secs, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", probeData.Format.Duration, err)
	}
	return int(secs), nil
}

// ptsFactor maps a playback speed onto the setpts multiplier used for the
// video filter.
func ptsFactor(speed float64) float64 {
	switch FormatSpeed(speed) {
	case "0.5":
		return 2.0
	case "0.75":
		return 1.35
	case "1.5":
		return 0.68
	case "2.0":
		return 0.5
	}
	return 1.0
}

// FormatSpeed renders a speed value the way cache directories and identity
// checks expect ("1.0", "0.75", ...).
func FormatSpeed(speed float64) string {
	s := strconv.FormatFloat(speed, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// SpeedTranscode returns a copy of inputFile transcoded to the given speed,
// reusing the cached copy when one exists. Speed 1.0 returns the input
// unchanged.
func (p *FFmpeg) SpeedTranscode(ctx context.Context, inputFile string, speed float64) (string, error) {
	tag := FormatSpeed(speed)
	if tag == "1.0" {
		return inputFile, nil
	}

	chatdir := filepath.Join(p.playbackDir, tag)
	if err := os.MkdirAll(chatdir, 0755); err != nil {
		return "", fmt.Errorf("failed to create speed cache dir %s: %w", chatdir, err)
	}

	out := filepath.Join(chatdir, filepath.Base(inputFile))
	if _, err := os.Stat(out); err == nil {
		return out, nil
	}

	args := []string{
		"-i", inputFile,
		"-filter:v", fmt.Sprintf("setpts=%g*PTS", ptsFactor(speed)),
		"-filter:a", fmt.Sprintf("atempo=%s", tag),
		out,
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// Leave no partial file behind for the cache check to trust.
		os.Remove(out)
		return "", fmt.Errorf("ffmpeg speed transcode failed: %w\nFFmpeg Error: %s", err, stderr.String())
	}

	return out, nil
}
