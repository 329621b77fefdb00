package config

import (
	"os"
	"path/filepath"
	"strings"

	"jellyshrink/internal/ffmpeg"
	"jellyshrink/internal/runstore"
)

type DoctorOptions struct {
	SettingsPath string
	ReportsDir   string
	BaseDir      string
}

type DoctorResult struct {
	OK     bool          `json:"ok"`
	Checks []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type InitWorkspaceOptions struct {
	SettingsPath string
	ReportsDir   string
}

type InitWorkspaceResult struct {
	ReportsDir        string       `json:"reports_dir"`
	SettingsPath      string       `json:"settings_path"`
	CreatedReportsDir bool         `json:"created_reports_dir"`
	CreatedSettings   bool         `json:"created_settings"`
	DoctorResult      DoctorResult `json:"doctor"`
}

func Doctor(opts DoctorOptions) (DoctorResult, error) {
	reportsDir := strings.TrimSpace(opts.ReportsDir)
	if reportsDir == "" {
		reportsDir = DefaultReportsDir
	}
	baseDir := strings.TrimSpace(opts.BaseDir)
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	settingsPath := normalizeSettingsPath(opts.SettingsPath)

	checks := make([]DoctorCheck, 0, 5)
	dep := ffmpeg.DependencyStatus()
	checks = append(checks, DoctorCheck{
		Name:    "dependency:ffprobe",
		OK:      dep.FFprobeFound,
		Message: dependencyMessage(dep.FFprobeFound, dep.FFprobePath, "ffprobe"),
	})
	checks = append(checks, DoctorCheck{
		Name:    "dependency:ffmpeg",
		OK:      dep.FFmpegFound,
		Message: dependencyMessage(dep.FFmpegFound, dep.FFmpegPath, "ffmpeg"),
	})

	reportsOK, reportsMessage := ensureWritableDir(reportsDir)
	checks = append(checks, DoctorCheck{
		Name:    "directory:reports",
		OK:      reportsOK,
		Message: reportsMessage,
	})

	cfgDir := filepath.Dir(settingsPath)
	cfgOK, cfgMessage := ensureWritableDir(cfgDir)
	checks = append(checks, DoctorCheck{
		Name:    "directory:config",
		OK:      cfgOK,
		Message: cfgMessage,
	})

	baseOK, baseMessage := checkMediaDir(baseDir)
	checks = append(checks, DoctorCheck{
		Name:    "directory:base",
		OK:      baseOK,
		Message: baseMessage,
	})

	ok := true
	for _, c := range checks {
		if !c.OK {
			ok = false
			break
		}
	}

	return DoctorResult{OK: ok, Checks: checks}, nil
}

func InitWorkspace(opts InitWorkspaceOptions) (InitWorkspaceResult, error) {
	reportsDir := strings.TrimSpace(opts.ReportsDir)
	if reportsDir == "" {
		reportsDir = DefaultReportsDir
	}
	settingsPath := normalizeSettingsPath(opts.SettingsPath)

	createdReportsDir := false
	if _, err := os.Stat(reportsDir); os.IsNotExist(err) {
		createdReportsDir = true
	}
	if err := runstore.Mkdir(reportsDir); err != nil {
		return InitWorkspaceResult{}, err
	}

	sf, createdSettings, err := EnsureSettings(settingsPath)
	if err != nil {
		return InitWorkspaceResult{}, err
	}

	doc, err := Doctor(DoctorOptions{
		SettingsPath: settingsPath,
		ReportsDir:   reportsDir,
		BaseDir:      sf.Settings.BaseDir,
	})
	if err != nil {
		return InitWorkspaceResult{}, err
	}

	return InitWorkspaceResult{
		ReportsDir:        reportsDir,
		SettingsPath:      settingsPath,
		CreatedReportsDir: createdReportsDir,
		CreatedSettings:   createdSettings,
		DoctorResult:      doc,
	}, nil
}

func dependencyMessage(ok bool, path, name string) string {
	if ok {
		return name + " found at " + path
	}
	return name + " not found on PATH"
}

func ensureWritableDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	if err := runstore.Mkdir(path); err != nil {
		return false, err.Error()
	}
	f, err := os.CreateTemp(path, "jellyshrink-check-*.tmp")
	if err != nil {
		return false, err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, "writable"
}

// checkMediaDir reports on the media root without creating it. A missing
// base directory usually means the storage mount is absent, and silently
// creating an empty one would hide that.
func checkMediaDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err.Error()
	}
	if !info.IsDir() {
		return false, "not a directory"
	}
	f, err := os.CreateTemp(path, "jellyshrink-check-*.tmp")
	if err != nil {
		return false, "not writable: " + err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, "writable"
}
