package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"jellyshrink/internal/config"
	"jellyshrink/internal/inventory"
)

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	server := fs.String("server", "", "Jellyfin server URL (empty = $JELLYFIN_URL, then settings)")
	user := fs.String("user", "", "Jellyfin user ID (empty = $JELLYFIN_USER_ID, then settings)")
	token := fs.String("token", "", "Jellyfin API token (empty = $JELLYFIN_API_KEY)")
	output := fs.String("output", "", "job list path to write (empty = settings)")
	base := fs.String("base", "", "media base directory recorded with the list (empty = settings)")
	codecs := fs.String("codecs", "", "comma-separated codecs to flag as inefficient (empty = settings)")
	saveRatio := fs.Float64("save-ratio", 0, "estimated size-reduction ratio for flagged files (0 = default)")
	noList := fs.Bool("no-list", false, "report only; leave the job list untouched")
	progress := fs.Bool("progress", true, "print progress while paging the library")
	reportsDir := fs.String("reports-dir", "", "directory for scan report artifacts (empty = settings)")
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
	conn := config.ResolveConnection(settings, *server, *token, *user)
	if conn.ServerURL == "" {
		return errors.New("server URL required: set --server, JELLYFIN_URL, or settings server_url")
	}
	if conn.APIToken == "" {
		return errors.New("API token required: set --token or JELLYFIN_API_KEY")
	}
	if conn.UserID == "" {
		return errors.New("user ID required: set --user, JELLYFIN_USER_ID, or settings user_id")
	}

	effectiveCodecs := settings.InefficientCodecs
	if strings.TrimSpace(*codecs) != "" {
		effectiveCodecs = splitCSV(*codecs)
	}

	result, err := inventory.Scan(inventory.ScanOptions{
		ServerURL:         conn.ServerURL,
		Token:             conn.APIToken,
		UserID:            conn.UserID,
		InefficientCodecs: effectiveCodecs,
		SaveRatio:         *saveRatio,
		ReportsDir:        firstNonEmpty(*reportsDir, settings.ReportsDir),
		ListPath:          firstNonEmpty(*output, settings.ListPath),
		BaseDir:           firstNonEmpty(*base, settings.BaseDir),
		WriteList:         !*noList,
		Progress:          *progress,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(result)
	}
	fmt.Println("scan summary")
	fmt.Printf("scan_id: %s\n", result.ScanID)
	fmt.Printf("items_seen: %d\n", result.ItemsSeen)
	fmt.Printf("items_skipped: %d\n", result.ItemsSkipped)
	fmt.Println("codecs:")
	for _, c := range result.Codecs {
		fmt.Printf("  %s: %d files, %s\n", c.Codec, c.Count, formatBytesIEC(c.Bytes))
	}
	fmt.Printf("inefficient: %d files, %s\n", result.InefficientCount, formatBytesIEC(result.InefficientBytes))
	fmt.Printf("estimated_savings: %s\n", formatBytesIEC(result.EstimatedSavedBytes))
	if result.Listed > 0 {
		fmt.Printf("listed: %d -> %s\n", result.Listed, result.ListPath)
		fmt.Println("next: `jellyshrink run` to start re-encoding")
	}
	if result.ReportPath != "" {
		fmt.Printf("report: %s\n", result.ReportPath)
	}
	return nil
}
