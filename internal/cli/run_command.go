package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"jellyshrink/internal/config"
	"jellyshrink/internal/transcode"
)

func runTranscode(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	input := fs.String("input", "", "job list path (empty = settings)")
	base := fs.String("base", "", "media base directory list entries resolve against (empty = settings)")
	failLog := fs.String("log", "", "failure log path (empty = settings)")
	workers := fs.Int("workers", 0, "parallel workers (0 = settings, falling back to CPU count)")
	idleWait := fs.Float64("idle-wait", -1, "seconds to wait when all listed work is claimed elsewhere (-1 = settings)")
	backoff := fs.String("backoff", "", "idle backoff policy: fixed|exponential (empty = settings)")
	codecs := fs.String("codecs", "", "comma-separated codecs that get re-encoded (empty = settings)")
	hwaccel := fs.String("hwaccel", "", "ffmpeg hardware acceleration (empty = settings)")
	videoCodec := fs.String("video-codec", "", "ffmpeg target video codec (empty = settings)")
	preset := fs.String("preset", "", "encoder preset (empty = settings)")
	quality := fs.Int("quality", 0, "encoder constant-quality value (0 = settings)")
	dryRun := fs.Bool("dry-run", false, "claim and probe only; never encode or replace files")
	progress := fs.Bool("progress", true, "show live progress renderer")
	rawOutput := fs.Bool("raw-output", false, "print raw ffprobe/ffmpeg stderr lines (verbose)")
	reportsDir := fs.String("reports-dir", "", "directory for run report artifacts (empty = settings)")
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")

	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *idleWait != -1 && *idleWait <= 0 {
		return errors.New("--idle-wait must be > 0, or -1 to keep settings")
	}
	if *quality < 0 {
		return errors.New("--quality must be >= 1, or 0 to keep settings")
	}

	settings, err := config.ReadSettings(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}

	effectiveIdleSeconds := settings.IdleWaitSeconds
	if *idleWait > 0 {
		effectiveIdleSeconds = *idleWait
	}
	effectiveCodecs := settings.InefficientCodecs
	if strings.TrimSpace(*codecs) != "" {
		effectiveCodecs = splitCSV(*codecs)
	}

	result, err := transcode.Run(transcode.RunOptions{
		ListPath:          firstNonEmpty(*input, settings.ListPath),
		BaseDir:           firstNonEmpty(*base, settings.BaseDir),
		FailureLogPath:    firstNonEmpty(*failLog, settings.FailureLogPath),
		ReportsDir:        firstNonEmpty(*reportsDir, settings.ReportsDir),
		Workers:           firstNonZero(*workers, settings.Workers),
		IdleWait:          durationFromSeconds(effectiveIdleSeconds),
		BackoffPolicy:     firstNonEmpty(*backoff, settings.BackoffPolicy),
		InefficientCodecs: effectiveCodecs,
		HWAccel:           firstNonEmpty(*hwaccel, settings.HWAccel),
		VideoCodec:        firstNonEmpty(*videoCodec, settings.VideoCodec),
		Preset:            firstNonEmpty(*preset, settings.Preset),
		Quality:           firstNonZero(*quality, settings.Quality),
		DryRun:            *dryRun,
		Progress:          *progress,
		RawOutput:         *rawOutput,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(result)
	}
	if result.NothingToDo {
		fmt.Println("input list is empty, nothing to do")
		return nil
	}
	fmt.Println("run summary")
	fmt.Printf("run_id: %s\n", result.RunID)
	fmt.Printf("workers: %d\n", result.Workers)
	fmt.Printf("processed: %d\n", result.Processed)
	fmt.Printf("committed: %d\n", result.Committed)
	fmt.Printf("skipped: %d\n", result.Skipped)
	if result.WouldTranscode > 0 {
		fmt.Printf("would_transcode: %d\n", result.WouldTranscode)
	}
	fmt.Printf("rolled_back: %d\n", result.RolledBack)
	fmt.Printf("failed: %d\n", result.Failed)
	fmt.Printf("saved: %s\n", formatBytesIEC(result.SavedBytes))
	if result.ReportPath != "" {
		fmt.Printf("report: %s\n", result.ReportPath)
	}
	for _, workerErr := range result.WorkerErrors {
		fmt.Printf("worker_error: %s\n", workerErr)
	}
	fmt.Printf("remaining: %d\n", result.Remaining)
	if result.Failed > 0 || result.RolledBack > 0 {
		fmt.Println("next: `jellyshrink review` to requeue failed paths")
	}
	return nil
}

func durationFromSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
