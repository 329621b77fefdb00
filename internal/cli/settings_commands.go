package cli

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"jellyshrink/internal/config"
	"jellyshrink/internal/transcode"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "codec":
		return runSettingsCodec(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := strings.TrimSpace(*configPath)
	settings, err := config.GetSettings(path)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path": path,
			"settings":    settings,
		})
	}

	fmt.Printf("config: %s\n", path)
	fmt.Printf("list_path: %s\n", settings.ListPath)
	fmt.Printf("base_dir: %s\n", settings.BaseDir)
	fmt.Printf("failure_log_path: %s\n", settings.FailureLogPath)
	fmt.Printf("reports_dir: %s\n", settings.ReportsDir)
	if settings.Workers == 0 {
		fmt.Println("workers: 0 (cpu count)")
	} else {
		fmt.Printf("workers: %d\n", settings.Workers)
	}
	fmt.Printf("idle_wait_seconds: %s\n", formatFloat(settings.IdleWaitSeconds))
	fmt.Printf("backoff_policy: %s\n", settings.BackoffPolicy)
	fmt.Printf("inefficient_codecs: %s\n", strings.Join(settings.InefficientCodecs, ", "))
	fmt.Printf("hwaccel: %s\n", settings.HWAccel)
	fmt.Printf("video_codec: %s\n", settings.VideoCodec)
	fmt.Printf("preset: %s\n", settings.Preset)
	fmt.Printf("quality: %d\n", settings.Quality)
	fmt.Printf("server_url: %s\n", valueOrUnset(settings.ServerURL))
	fmt.Printf("user_id: %s\n", valueOrUnset(settings.UserID))
	fmt.Println("api_token: read from JELLYFIN_API_KEY (never stored)")
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	listPath := fs.String("list", "", "job list path (empty keeps current)")
	baseDir := fs.String("base", "", "media base directory (empty keeps current)")
	failLog := fs.String("log", "", "failure log path (empty keeps current)")
	reportsDir := fs.String("reports-dir", "", "reports directory (empty keeps current)")
	workers := fs.Int("workers", -1, "default workers (0 = CPU count, -1 keeps current)")
	idleWait := fs.Float64("idle-wait", -1, "default idle wait in seconds (> 0, -1 keeps current)")
	backoff := fs.String("backoff", "", "idle backoff policy: fixed|exponential (empty keeps current)")
	hwaccel := fs.String("hwaccel", "", "ffmpeg hardware acceleration (empty keeps current)")
	videoCodec := fs.String("video-codec", "", "ffmpeg target video codec (empty keeps current)")
	preset := fs.String("preset", "", "encoder preset (empty keeps current)")
	quality := fs.Int("quality", -1, "encoder constant-quality value (>= 1, -1 keeps current)")
	server := fs.String("server", "", "Jellyfin server URL (empty keeps current)")
	user := fs.String("user", "", "Jellyfin user ID (empty keeps current)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := strings.TrimSpace(*configPath)
	settings, err := config.GetSettings(path)
	if err != nil {
		return err
	}

	if strings.TrimSpace(*listPath) != "" {
		settings.ListPath = strings.TrimSpace(*listPath)
	}
	if strings.TrimSpace(*baseDir) != "" {
		settings.BaseDir = strings.TrimSpace(*baseDir)
	}
	if strings.TrimSpace(*failLog) != "" {
		settings.FailureLogPath = strings.TrimSpace(*failLog)
	}
	if strings.TrimSpace(*reportsDir) != "" {
		settings.ReportsDir = strings.TrimSpace(*reportsDir)
	}
	if *workers != -1 {
		if *workers < 0 {
			return errors.New("--workers must be >= 0")
		}
		settings.Workers = *workers
	}
	if *idleWait != -1 {
		if *idleWait <= 0 {
			return errors.New("--idle-wait must be > 0")
		}
		settings.IdleWaitSeconds = *idleWait
	}
	if strings.TrimSpace(*backoff) != "" {
		policy, err := transcode.NormalizeBackoffPolicy(*backoff)
		if err != nil {
			return err
		}
		settings.BackoffPolicy = policy
	}
	if strings.TrimSpace(*hwaccel) != "" {
		settings.HWAccel = strings.TrimSpace(*hwaccel)
	}
	if strings.TrimSpace(*videoCodec) != "" {
		settings.VideoCodec = strings.TrimSpace(*videoCodec)
	}
	if strings.TrimSpace(*preset) != "" {
		settings.Preset = strings.TrimSpace(*preset)
	}
	if *quality != -1 {
		if *quality < 1 {
			return errors.New("--quality must be >= 1")
		}
		settings.Quality = *quality
	}
	if strings.TrimSpace(*server) != "" {
		settings.ServerURL = strings.TrimSpace(*server)
	}
	if strings.TrimSpace(*user) != "" {
		settings.UserID = strings.TrimSpace(*user)
	}

	res, err := config.UpdateSettings(config.UpdateSettingsOptions{
		SettingsPath: path,
		Settings:     settings,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	fmt.Printf("updated settings in %s\n", res.SettingsPath)
	fmt.Printf("list_path: %s\n", res.Settings.ListPath)
	fmt.Printf("base_dir: %s\n", res.Settings.BaseDir)
	fmt.Printf("workers: %d\n", res.Settings.Workers)
	fmt.Printf("idle_wait_seconds: %s\n", formatFloat(res.Settings.IdleWaitSeconds))
	fmt.Printf("backoff_policy: %s\n", res.Settings.BackoffPolicy)
	fmt.Printf("quality: %d\n", res.Settings.Quality)
	return nil
}

func runSettingsCodec(args []string) error {
	if len(args) == 0 {
		printSettingsCodecUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runSettingsCodecList(args[1:])
	case "add":
		return runSettingsCodecAdd(args[1:])
	case "remove":
		return runSettingsCodecRemove(args[1:])
	case "help", "-h", "--help":
		printSettingsCodecUsage()
		return nil
	default:
		printSettingsCodecUsage()
		return fmt.Errorf("unknown settings codec subcommand %q", args[0])
	}
}

func runSettingsCodecList(args []string) error {
	fs := flag.NewFlagSet("settings codec list", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := strings.TrimSpace(*configPath)
	settings, err := config.GetSettings(path)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path":        path,
			"inefficient_codecs": settings.InefficientCodecs,
		})
	}
	for i, c := range settings.InefficientCodecs {
		fmt.Printf("%d. %s\n", i+1, c)
	}
	return nil
}

func runSettingsCodecAdd(args []string) error {
	fs := flag.NewFlagSet("settings codec add", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	value := fs.String("value", "", "codec name to flag as inefficient (e.g. mpeg2video)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*value) == "" {
		return errors.New("--value is required")
	}

	path := strings.TrimSpace(*configPath)
	settings, err := config.GetSettings(path)
	if err != nil {
		return err
	}
	settings.InefficientCodecs = append(settings.InefficientCodecs, strings.TrimSpace(*value))

	res, err := config.UpdateSettings(config.UpdateSettingsOptions{
		SettingsPath: path,
		Settings:     settings,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("codecs: %s\n", strings.Join(res.Settings.InefficientCodecs, ", "))
	return nil
}

func runSettingsCodecRemove(args []string) error {
	fs := flag.NewFlagSet("settings codec remove", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	value := fs.String("value", "", "codec name to remove")
	index := fs.Int("index", 0, "1-based codec index to remove")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*value) == "" && *index <= 0 {
		return errors.New("set --value or --index")
	}

	path := strings.TrimSpace(*configPath)
	settings, err := config.GetSettings(path)
	if err != nil {
		return err
	}

	next := make([]string, 0, len(settings.InefficientCodecs))
	removed := false
	if strings.TrimSpace(*value) != "" {
		target := strings.ToLower(strings.TrimSpace(*value))
		for _, c := range settings.InefficientCodecs {
			if !removed && c == target {
				removed = true
				continue
			}
			next = append(next, c)
		}
	} else {
		targetIdx := *index - 1
		if targetIdx < 0 || targetIdx >= len(settings.InefficientCodecs) {
			return fmt.Errorf("--index out of range (1..%d)", len(settings.InefficientCodecs))
		}
		for i, c := range settings.InefficientCodecs {
			if i == targetIdx {
				removed = true
				continue
			}
			next = append(next, c)
		}
	}
	if !removed {
		return errors.New("codec not found")
	}

	settings.InefficientCodecs = next
	res, err := config.UpdateSettings(config.UpdateSettingsOptions{
		SettingsPath: path,
		Settings:     settings,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	// An emptied list is re-filled with the defaults on save.
	fmt.Printf("codecs: %s\n", strings.Join(res.Settings.InefficientCodecs, ", "))
	return nil
}

func printSettingsUsage() {
	fmt.Println("settings commands:")
	fmt.Println("  settings show")
	fmt.Println("  settings set [--list P] [--base P] [--log P] [--reports-dir P]")
	fmt.Println("               [--workers N] [--idle-wait S] [--backoff fixed|exponential]")
	fmt.Println("               [--hwaccel V] [--video-codec V] [--preset V] [--quality N]")
	fmt.Println("               [--server URL] [--user ID]")
	fmt.Println("  settings codec list")
	fmt.Println("  settings codec add --value <codec>")
	fmt.Println("  settings codec remove --value <codec> | --index <n>")
	fmt.Println()
	fmt.Println("The Jellyfin API token is never persisted; set JELLYFIN_API_KEY instead.")
}

func printSettingsCodecUsage() {
	fmt.Println("settings codec commands:")
	fmt.Println("  settings codec list")
	fmt.Println("  settings codec add --value <codec>")
	fmt.Println("  settings codec remove --value <codec> | --index <n>")
}

func valueOrUnset(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(not set)"
	}
	return v
}

func formatFloat(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
