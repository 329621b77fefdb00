package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFakeTool(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
}

func TestDoctorPassesWithToolsAndWritableDirs(t *testing.T) {
	tmp := t.TempDir()
	fakeBin := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(fakeBin, 0o755); err != nil {
		t.Fatalf("mkdir fake bin: %v", err)
	}
	writeFakeTool(t, fakeBin, "ffprobe")
	writeFakeTool(t, fakeBin, "ffmpeg")
	t.Setenv("PATH", fakeBin)

	base := filepath.Join(tmp, "media")
	if err := os.MkdirAll(base, 0o755); err != nil {
		t.Fatalf("mkdir base: %v", err)
	}

	doc, err := Doctor(DoctorOptions{
		SettingsPath: filepath.Join(tmp, "config", "settings.json"),
		ReportsDir:   filepath.Join(tmp, "reports"),
		BaseDir:      base,
	})
	if err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	if !doc.OK {
		t.Fatalf("expected doctor to pass, checks: %+v", doc.Checks)
	}
	if len(doc.Checks) != 5 {
		t.Fatalf("expected 5 checks, got %d", len(doc.Checks))
	}
	names := map[string]bool{}
	for _, c := range doc.Checks {
		names[c.Name] = c.OK
	}
	for _, want := range []string{"dependency:ffprobe", "dependency:ffmpeg", "directory:reports", "directory:config", "directory:base"} {
		ok, present := names[want]
		if !present {
			t.Fatalf("missing check %q", want)
		}
		if !ok {
			t.Fatalf("check %q failed", want)
		}
	}
	if _, err := os.Stat(filepath.Join(tmp, "reports")); err != nil {
		t.Fatalf("doctor should create the reports dir: %v", err)
	}
}

func TestDoctorFlagsMissingToolsAndBaseDir(t *testing.T) {
	tmp := t.TempDir()
	emptyBin := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(emptyBin, 0o755); err != nil {
		t.Fatalf("mkdir fake bin: %v", err)
	}
	t.Setenv("PATH", emptyBin)

	doc, err := Doctor(DoctorOptions{
		SettingsPath: filepath.Join(tmp, "config", "settings.json"),
		ReportsDir:   filepath.Join(tmp, "reports"),
		BaseDir:      filepath.Join(tmp, "no-such-mount"),
	})
	if err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	if doc.OK {
		t.Fatal("expected doctor to fail")
	}
	for _, c := range doc.Checks {
		switch c.Name {
		case "dependency:ffprobe", "dependency:ffmpeg":
			if c.OK {
				t.Fatalf("check %q should fail without tools on PATH", c.Name)
			}
		case "directory:base":
			if c.OK {
				t.Fatal("base dir check should fail when the mount is absent")
			}
		}
	}
}

func TestDoctorDoesNotCreateBaseDir(t *testing.T) {
	tmp := t.TempDir()
	base := filepath.Join(tmp, "media")

	if _, err := Doctor(DoctorOptions{
		SettingsPath: filepath.Join(tmp, "config", "settings.json"),
		ReportsDir:   filepath.Join(tmp, "reports"),
		BaseDir:      base,
	}); err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	if _, err := os.Stat(base); !os.IsNotExist(err) {
		t.Fatal("doctor must not create the media root")
	}
}

func TestInitWorkspaceCreatesSettingsAndReportsDir(t *testing.T) {
	tmp := t.TempDir()
	fakeBin := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(fakeBin, 0o755); err != nil {
		t.Fatalf("mkdir fake bin: %v", err)
	}
	writeFakeTool(t, fakeBin, "ffprobe")
	writeFakeTool(t, fakeBin, "ffmpeg")
	t.Setenv("PATH", fakeBin)

	cfg := filepath.Join(tmp, "config", "settings.json")
	reports := filepath.Join(tmp, "reports")

	out, err := InitWorkspace(InitWorkspaceOptions{SettingsPath: cfg, ReportsDir: reports})
	if err != nil {
		t.Fatalf("init workspace failed: %v", err)
	}
	if !out.CreatedReportsDir {
		t.Fatal("expected reports dir to be created")
	}
	if !out.CreatedSettings {
		t.Fatal("expected settings file to be created")
	}
	if _, err := os.Stat(cfg); err != nil {
		t.Fatalf("settings file missing after init: %v", err)
	}
	if _, err := os.Stat(reports); err != nil {
		t.Fatalf("reports dir missing after init: %v", err)
	}
	if len(out.DoctorResult.Checks) == 0 {
		t.Fatal("init should run the doctor")
	}

	again, err := InitWorkspace(InitWorkspaceOptions{SettingsPath: cfg, ReportsDir: reports})
	if err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	if again.CreatedReportsDir || again.CreatedSettings {
		t.Fatal("second init must not recreate anything")
	}
}
