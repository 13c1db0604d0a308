package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	vaultDir := t.TempDir()
	c, err := Load(vaultDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Settings.TaskFolder != "GTD/Tasks" || c.Settings.ProjectFolder != "GTD/Projects" {
		t.Fatalf("unexpected folders: %+v", c.Settings)
	}
	if !c.Settings.ManualSort() {
		t.Fatalf("expected manual sort by default")
	}
	if c.Settings.DailyNote.Mode != DailyNoteCommand {
		t.Fatalf("expected daily note mode %q, got %q", DailyNoteCommand, c.Settings.DailyNote.Mode)
	}
}

func TestInitDirWritesParsableTemplate(t *testing.T) {
	vaultDir := t.TempDir()
	if err := InitDir(vaultDir); err != nil {
		t.Fatalf("InitDir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(vaultDir, GTDDir, "logs")); err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	c, err := Load(vaultDir)
	if err != nil {
		t.Fatalf("Load after init: %v", err)
	}
	if c.Settings != DefaultSettings() {
		t.Fatalf("template differs from defaults:\n%+v\n%+v", c.Settings, DefaultSettings())
	}
	// A second init must not clobber edits.
	if err := os.WriteFile(c.ConfigPath(), []byte("task_folder: Work/Tasks\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitDir(vaultDir); err != nil {
		t.Fatal(err)
	}
	c, err = Load(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	if c.Settings.TaskFolder != "Work/Tasks" {
		t.Fatalf("init overwrote config: %+v", c.Settings)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	vaultDir := t.TempDir()
	gtdDir := filepath.Join(vaultDir, GTDDir)
	if err := os.MkdirAll(gtdDir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
task_folder: /Areas\Tasks/
project_folder: Areas/Projects
task_sort_mode: AUTO
daily_note:
  mode: auto-write
  folder: Journal/Daily
week_start_day: Sunday
`)
	if err := os.WriteFile(filepath.Join(gtdDir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(vaultDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	s := c.Settings
	if s.TaskFolder != "Areas/Tasks" {
		t.Fatalf("task folder not normalized: %q", s.TaskFolder)
	}
	if s.ManualSort() || s.DailyNote.Folder != "Journal/Daily" || s.WeekStart() != time.Sunday {
		t.Fatalf("unexpected settings: %+v", s)
	}
	if s.ReviewFolder != "GTD/Reviews" {
		t.Fatalf("default review folder missing: %q", s.ReviewFolder)
	}
}

func TestLoadValidation(t *testing.T) {
	for _, body := range []string{
		"task_sort_mode: random\n",
		"task_folder: Same\nproject_folder: Same\n",
		"daily_note:\n  mode: sometimes\n",
		"default_priority: urgent\n",
	} {
		vaultDir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(vaultDir, GTDDir), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(vaultDir, GTDDir, "config.yaml"), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(vaultDir); err == nil {
			t.Fatalf("expected validation error for %q", body)
		}
	}
}

func TestSaveRoundTrips(t *testing.T) {
	vaultDir := t.TempDir()
	c, err := Load(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	c.Settings.TaskSortMode = SortAuto
	c.Settings.Language = "ja"
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	if again.Settings != c.Settings {
		t.Fatalf("saved settings differ:\n%+v\n%+v", again.Settings, c.Settings)
	}
}

func TestResolveVaultPrefersFlagThenEnv(t *testing.T) {
	flagDir := t.TempDir()
	envDir := t.TempDir()
	t.Setenv(VaultEnv, envDir)
	got, err := ResolveVault(flagDir)
	if err != nil || got != flagDir {
		t.Fatalf("flag: got %s, %v", got, err)
	}
	got, err = ResolveVault("")
	if err != nil || got != envDir {
		t.Fatalf("env: got %s, %v", got, err)
	}
}
