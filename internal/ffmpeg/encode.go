package ffmpeg

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

type EncodeOptions struct {
	InputPath  string
	OutputPath string
	HWAccel    string
	VideoCodec string
	Preset     string
	Quality    int
	Stdout     io.Writer
	Stderr     io.Writer
	LogWriter  io.Writer
	EchoOutput bool
	Progress   func(stream OutputStream, line string)
}

type EncodeResult struct {
	Command []string
}

// Encode re-encodes InputPath into OutputPath with audio streams copied
// as-is. It blocks until ffmpeg exits; encodes are never killed from
// this side.
func Encode(opts EncodeOptions) (EncodeResult, error) {
	if strings.TrimSpace(opts.InputPath) == "" {
		return EncodeResult{}, fmt.Errorf("encode input path is required")
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return EncodeResult{}, fmt.Errorf("encode output path is required")
	}
	codec := strings.TrimSpace(opts.VideoCodec)
	if codec == "" {
		codec = "hevc_nvenc"
	}
	preset := strings.TrimSpace(opts.Preset)
	if preset == "" {
		preset = "p4"
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = 28
	}

	args := []string{"-y"}
	if accel := strings.TrimSpace(opts.HWAccel); accel != "" && accel != "none" {
		args = append(args, "-hwaccel", accel)
	}
	args = append(args,
		"-i", opts.InputPath,
		"-c:v", codec,
		"-preset", preset,
		"-cq", strconv.Itoa(quality),
		"-c:a", "copy",
		opts.OutputPath,
	)

	if err := runCommand(args, opts); err != nil {
		return EncodeResult{Command: append([]string{"ffmpeg"}, args...)}, err
	}
	return EncodeResult{Command: append([]string{"ffmpeg"}, args...)}, nil
}

func runCommand(args []string, opts EncodeOptions) error {
	cmd := exec.Command("ffmpeg", args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	var outBuf strings.Builder
	var errBuf strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup

	read := func(stream OutputStream, r io.Reader, echoW io.Writer) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			appendLimited(&outBuf, &errBuf, stream, line)
			if opts.LogWriter != nil {
				_, _ = io.WriteString(opts.LogWriter, line+"\n")
			}
			mu.Unlock()

			if opts.EchoOutput && echoW != nil {
				_, _ = io.WriteString(echoW, line+"\n")
			}
			if opts.Progress != nil {
				opts.Progress(stream, line)
			}
		}
	}

	wg.Add(2)
	go read(StreamStdout, stdoutPipe, opts.Stdout)
	go read(StreamStderr, stderrPipe, opts.Stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		mu.Lock()
		defer mu.Unlock()
		return fmt.Errorf("ffmpeg failed: %w\n%s\n%s", err, strings.TrimSpace(errBuf.String()), strings.TrimSpace(outBuf.String()))
	}
	return nil
}

// ffmpeg redraws its stats line with carriage returns, so CR counts as
// a line break too.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func appendLimited(outBuf, errBuf *strings.Builder, stream OutputStream, line string) {
	const maxKeep = 8192
	b := outBuf
	if stream == StreamStderr {
		b = errBuf
	}
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	remain := maxKeep - b.Len()
	if len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}
