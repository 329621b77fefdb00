package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jellyshrink/internal/runstore"
)

const (
	DefaultSettingsPath   = "config/jellyshrink.json"
	settingsSchemaVersion = 1
)

// Settings holds the persisted knobs for scans and runs. The Jellyfin API
// token is deliberately absent: it comes from the environment only and is
// never written to disk.
type Settings struct {
	ListPath          string   `json:"list_path,omitempty"`
	BaseDir           string   `json:"base_dir,omitempty"`
	FailureLogPath    string   `json:"failure_log_path,omitempty"`
	ReportsDir        string   `json:"reports_dir,omitempty"`
	Workers           int      `json:"workers,omitempty"`
	IdleWaitSeconds   float64  `json:"idle_wait_seconds,omitempty"`
	BackoffPolicy     string   `json:"backoff_policy,omitempty"`
	InefficientCodecs []string `json:"inefficient_codecs,omitempty"`
	HWAccel           string   `json:"hwaccel,omitempty"`
	VideoCodec        string   `json:"video_codec,omitempty"`
	Preset            string   `json:"preset,omitempty"`
	Quality           int      `json:"quality,omitempty"`
	ServerURL         string   `json:"server_url,omitempty"`
	UserID            string   `json:"user_id,omitempty"`
}

type SettingsFile struct {
	SchemaVersion int      `json:"schema_version"`
	UpdatedAt     string   `json:"updated_at"`
	Settings      Settings `json:"settings"`
}

type UpdateSettingsOptions struct {
	SettingsPath string
	Settings     Settings
}

type UpdateSettingsResult struct {
	SettingsPath string   `json:"settings_path"`
	Settings     Settings `json:"settings"`
}

func normalizeSettingsPath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return DefaultSettingsPath
	}
	return p
}

// EnsureSettings loads the settings file, creating it with defaults on
// first use. The second return reports whether the file was created.
func EnsureSettings(path string) (SettingsFile, bool, error) {
	p := normalizeSettingsPath(path)
	sf, err := loadSettingsFile(p)
	if err == nil {
		return sf, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return SettingsFile{}, false, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	sf = SettingsFile{
		SchemaVersion: settingsSchemaVersion,
		UpdatedAt:     now,
		Settings:      defaultSettings(),
	}
	if err := saveSettingsFile(p, sf); err != nil {
		return SettingsFile{}, false, err
	}
	return sf, true, nil
}

// ReadSettings returns the persisted settings, or defaults when the file
// does not exist. It never creates the file.
func ReadSettings(path string) (Settings, error) {
	p := normalizeSettingsPath(path)
	sf, err := loadSettingsFile(p)
	if err == nil {
		return sf.Settings, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return defaultSettings(), nil
	}
	return Settings{}, err
}

func GetSettings(path string) (Settings, error) {
	sf, _, err := EnsureSettings(path)
	if err != nil {
		return Settings{}, err
	}
	return sf.Settings, nil
}

func UpdateSettings(opts UpdateSettingsOptions) (UpdateSettingsResult, error) {
	path := normalizeSettingsPath(opts.SettingsPath)
	sf, _, err := EnsureSettings(path)
	if err != nil {
		return UpdateSettingsResult{}, err
	}
	sf.Settings = normalizeSettings(opts.Settings)
	sf.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := saveSettingsFile(path, sf); err != nil {
		return UpdateSettingsResult{}, err
	}
	return UpdateSettingsResult{SettingsPath: path, Settings: sf.Settings}, nil
}

func loadSettingsFile(path string) (SettingsFile, error) {
	var sf SettingsFile
	if err := runstore.ReadJSON(path, &sf); err != nil {
		return SettingsFile{}, err
	}
	if sf.SchemaVersion == 0 {
		sf.SchemaVersion = settingsSchemaVersion
	}
	sf.Settings = normalizeSettings(sf.Settings)
	return sf, nil
}

func saveSettingsFile(path string, sf SettingsFile) error {
	sf.SchemaVersion = settingsSchemaVersion
	if strings.TrimSpace(sf.UpdatedAt) == "" {
		sf.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	sf.Settings = normalizeSettings(sf.Settings)
	if err := runstore.Mkdir(filepath.Dir(path)); err != nil {
		return err
	}
	return runstore.WriteJSON(path, sf)
}

func defaultSettings() Settings {
	return Settings{
		ListPath:          DefaultListPath,
		BaseDir:           DefaultBaseDir,
		FailureLogPath:    DefaultFailureLogPath,
		ReportsDir:        DefaultReportsDir,
		IdleWaitSeconds:   DefaultIdleWaitSeconds,
		BackoffPolicy:     DefaultBackoffPolicy,
		InefficientCodecs: DefaultInefficientCodecs(),
		HWAccel:           DefaultHWAccel,
		VideoCodec:        DefaultVideoCodec,
		Preset:            DefaultPreset,
		Quality:           DefaultQuality,
	}
}

func normalizeSettings(raw Settings) Settings {
	norm := raw
	norm.ListPath = strings.TrimSpace(norm.ListPath)
	norm.BaseDir = strings.TrimSpace(norm.BaseDir)
	norm.FailureLogPath = strings.TrimSpace(norm.FailureLogPath)
	norm.ReportsDir = strings.TrimSpace(norm.ReportsDir)
	norm.HWAccel = strings.ToLower(strings.TrimSpace(norm.HWAccel))
	norm.VideoCodec = strings.ToLower(strings.TrimSpace(norm.VideoCodec))
	norm.Preset = strings.ToLower(strings.TrimSpace(norm.Preset))
	norm.ServerURL = strings.TrimSpace(norm.ServerURL)
	norm.UserID = strings.TrimSpace(norm.UserID)
	if norm.ListPath == "" {
		norm.ListPath = DefaultListPath
	}
	if norm.BaseDir == "" {
		norm.BaseDir = DefaultBaseDir
	}
	if norm.FailureLogPath == "" {
		norm.FailureLogPath = DefaultFailureLogPath
	}
	if norm.ReportsDir == "" {
		norm.ReportsDir = DefaultReportsDir
	}
	// Zero workers means size the pool from the CPU count at run time.
	if norm.Workers < 0 {
		norm.Workers = 0
	}
	if norm.IdleWaitSeconds <= 0 {
		norm.IdleWaitSeconds = DefaultIdleWaitSeconds
	}
	norm.BackoffPolicy = normalizeBackoffPolicy(norm.BackoffPolicy)
	norm.InefficientCodecs = normalizeCodecList(norm.InefficientCodecs)
	if len(norm.InefficientCodecs) == 0 {
		norm.InefficientCodecs = DefaultInefficientCodecs()
	}
	if norm.HWAccel == "" {
		norm.HWAccel = DefaultHWAccel
	}
	if norm.VideoCodec == "" {
		norm.VideoCodec = DefaultVideoCodec
	}
	if norm.Preset == "" {
		norm.Preset = DefaultPreset
	}
	if norm.Quality <= 0 {
		norm.Quality = DefaultQuality
	}
	return norm
}

func normalizeBackoffPolicy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", BackoffPolicyFixed:
		return BackoffPolicyFixed
	case BackoffPolicyExponential:
		return BackoffPolicyExponential
	default:
		return DefaultBackoffPolicy
	}
}

func normalizeCodecList(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, c := range raw {
		v := strings.ToLower(strings.TrimSpace(c))
		if v == "" {
			continue
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
