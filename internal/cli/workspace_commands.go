package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"jellyshrink/internal/config"
	"jellyshrink/internal/version"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	reportsDir := fs.String("reports-dir", "", "reports directory (empty = default)")
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := config.InitWorkspace(config.InitWorkspaceOptions{
		SettingsPath: strings.TrimSpace(*configPath),
		ReportsDir:   strings.TrimSpace(*reportsDir),
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	fmt.Println("workspace initialized")
	fmt.Printf("config: %s\n", res.SettingsPath)
	fmt.Printf("reports_dir: %s\n", res.ReportsDir)
	fmt.Printf("created_config: %t\n", res.CreatedSettings)
	fmt.Printf("created_reports_dir: %t\n", res.CreatedReportsDir)
	fmt.Println("checks:")
	for _, c := range res.DoctorResult.Checks {
		status := "ok"
		if !c.OK {
			status = "fail"
		}
		fmt.Printf("  %s: %s (%s)\n", c.Name, status, c.Message)
	}
	if !res.DoctorResult.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("next: jellyshrink scan --server <url> --user <id>")
	return nil
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	reportsDir := fs.String("reports-dir", "", "reports directory (empty = settings)")
	base := fs.String("base", "", "media base directory (empty = settings)")
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := strings.TrimSpace(*configPath)
	settings, err := config.ReadSettings(path)
	if err != nil {
		return err
	}
	res, err := config.Doctor(config.DoctorOptions{
		SettingsPath: path,
		ReportsDir:   firstNonEmpty(*reportsDir, settings.ReportsDir),
		BaseDir:      firstNonEmpty(*base, settings.BaseDir),
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	for _, c := range res.Checks {
		status := "ok"
		if !c.OK {
			status = "fail"
		}
		fmt.Printf("%s: %s (%s)\n", c.Name, status, c.Message)
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("doctor: all checks passed")
	return nil
}

func runVersion(args []string) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]string{"version": version.Value})
	}
	fmt.Println(version.Value)
	return nil
}
