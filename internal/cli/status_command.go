package cli

import (
	"flag"
	"fmt"
	"strings"

	"jellyshrink/internal/config"
	"jellyshrink/internal/transcode"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	input := fs.String("input", "", "job list path (empty = settings)")
	base := fs.String("base", "", "media base directory (empty = settings)")
	failLog := fs.String("log", "", "failure log path (empty = settings)")
	reportsDir := fs.String("reports-dir", "", "reports directory (empty = settings)")
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")

	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := config.ReadSettings(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}
	result, err := transcode.Status(transcode.StatusOptions{
		ListPath:       firstNonEmpty(*input, settings.ListPath),
		BaseDir:        firstNonEmpty(*base, settings.BaseDir),
		FailureLogPath: firstNonEmpty(*failLog, settings.FailureLogPath),
		ReportsDir:     firstNonEmpty(*reportsDir, settings.ReportsDir),
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(result)
	}
	fmt.Printf("state: %s\n", result.State)
	fmt.Printf("list: %s\n", result.ListPath)
	if !result.ListExists {
		fmt.Println("  (missing; `jellyshrink scan` builds it)")
	}
	fmt.Printf("pending: %d\n", result.Pending)
	fmt.Printf("held_markers: %d\n", result.HeldMarkers)
	fmt.Printf("failures: %d (%s)\n", result.Failures, result.FailureLogPath)
	if result.LastScan != nil {
		fmt.Println("last scan:")
		fmt.Printf("  scan_id: %s\n", result.LastScan.ScanID)
		fmt.Printf("  finished_at: %s\n", result.LastScan.FinishedAt)
		fmt.Printf("  inefficient: %d of %d items\n", result.LastScan.InefficientCount, result.LastScan.ItemsSeen)
		fmt.Printf("  estimated_savings: %s\n", formatBytesIEC(result.LastScan.EstimatedSavedBytes))
	}
	if result.LastRun != nil {
		fmt.Println("last run:")
		fmt.Printf("  run_id: %s\n", result.LastRun.RunID)
		fmt.Printf("  finished_at: %s\n", result.LastRun.FinishedAt)
		fmt.Printf("  committed/processed: %d/%d\n", result.LastRun.Committed, result.LastRun.Processed)
		fmt.Printf("  saved: %s\n", formatBytesIEC(result.LastRun.SavedBytes))
	}
	switch result.State {
	case "queued":
		fmt.Println("next: `jellyshrink run` to drain the queue")
	case "in_progress":
		fmt.Println("next: markers are held; if no run is live, `jellyshrink locks list`")
	case "has_failures":
		fmt.Println("next: `jellyshrink review` to requeue failed paths")
	}
	return nil
}
