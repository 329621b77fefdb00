package cli

import (
	"flag"
	"fmt"
	"strings"

	"jellyshrink/internal/config"
	"jellyshrink/internal/transcode"
)

func runLocks(args []string) error {
	if len(args) == 0 {
		printLocksUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runLocksList(args[1:])
	case "clear":
		return runLocksClear(args[1:])
	case "help", "-h", "--help":
		printLocksUsage()
		return nil
	default:
		printLocksUsage()
		return fmt.Errorf("unknown locks subcommand %q", args[0])
	}
}

func runLocksList(args []string) error {
	fs := flag.NewFlagSet("locks list", flag.ContinueOnError)
	input := fs.String("input", "", "job list path (empty = settings)")
	base := fs.String("base", "", "media base directory (empty = settings)")
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, err := resolveLocksTarget(*input, *base, *configPath)
	if err != nil {
		return err
	}
	result, err := transcode.ListLocks(opts)
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(result)
	}
	fmt.Printf("list: %s\n", result.ListPath)
	fmt.Printf("pending: %d\n", result.Pending)
	if len(result.Held) == 0 {
		fmt.Println("no held markers for listed paths")
		return nil
	}
	for i, h := range result.Held {
		fmt.Printf("%d. %s (held %s)\n", i+1, h.Line, h.Age)
	}
	fmt.Println("next: `jellyshrink locks clear` if no run is live")
	return nil
}

func runLocksClear(args []string) error {
	fs := flag.NewFlagSet("locks clear", flag.ContinueOnError)
	input := fs.String("input", "", "job list path (empty = settings)")
	base := fs.String("base", "", "media base directory (empty = settings)")
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	yes := fs.Bool("yes", false, "skip confirmation")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, err := resolveLocksTarget(*input, *base, *configPath)
	if err != nil {
		return err
	}
	held, err := transcode.ListLocks(opts)
	if err != nil {
		return err
	}
	if len(held.Held) == 0 {
		if *jsonOut {
			return printJSON(transcode.ClearLocksResult{ListPath: held.ListPath, Cleared: []transcode.HeldLock{}})
		}
		fmt.Println("no held markers for listed paths")
		return nil
	}
	if !*yes {
		ok, err := promptConfirm(fmt.Sprintf("clear %d held marker(s)? a live worker loses its claim [y/N] ", len(held.Held)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("aborted")
			return nil
		}
	}

	result, err := transcode.ClearLocks(opts)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(result)
	}
	fmt.Printf("cleared %d marker(s)\n", len(result.Cleared))
	for _, h := range result.Cleared {
		fmt.Printf("  %s\n", h.Line)
	}
	return nil
}

func resolveLocksTarget(input, base, configPath string) (transcode.LocksOptions, error) {
	settings, err := config.ReadSettings(strings.TrimSpace(configPath))
	if err != nil {
		return transcode.LocksOptions{}, err
	}
	return transcode.LocksOptions{
		ListPath: firstNonEmpty(input, settings.ListPath),
		BaseDir:  firstNonEmpty(base, settings.BaseDir),
	}, nil
}

func printLocksUsage() {
	fmt.Println("locks commands:")
	fmt.Println("  locks list   show held claim markers for listed paths, with age")
	fmt.Println("  locks clear  remove those markers so the paths become claimable")
	fmt.Println()
	fmt.Println("A path that is listed and marked stays skipped by every worker.")
	fmt.Println("That state is normal while a run is live and stale after a crash;")
	fmt.Println("clear only when no run is using the list.")
}
