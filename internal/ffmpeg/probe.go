package ffmpeg

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// VideoCodec returns the codec name of the first video stream in path,
// trimmed and lowercased. An empty probe result is an error: a file
// ffprobe cannot inspect must never pass for already efficient.
func VideoCodec(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("probe path is required")
	}

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	cmd := exec.Command("ffprobe", args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffprobe failed for %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	codec := strings.ToLower(strings.TrimSpace(stdout.String()))
	if codec == "" {
		return "", fmt.Errorf("ffprobe reported no video codec for %s", path)
	}
	return codec, nil
}
