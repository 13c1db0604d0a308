// internal/config/config.go
//
// This package handles configuration and the .gtd directory structure.
// Every vault managed by gtd gets a .gtd/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// GTDDir is the name of the directory we create in each vault
	GTDDir = ".gtd"

	// VaultEnv overrides the vault root when no flag is given.
	VaultEnv = "GTD_VAULT"
)

// Sort modes for tasks inside a status column.
const (
	SortManual = "manual"
	SortAuto   = "auto"
)

// Daily note modes.
const (
	DailyNoteNone      = "none"
	DailyNoteAutoWrite = "auto-write"
	DailyNoteCommand   = "command"
)

const defaultConfigYAML = `# gtd vault configuration

# Folders are relative to the vault root.
task_folder: GTD/Tasks
project_folder: GTD/Projects
review_folder: GTD/Reviews

# Go time layout used when printing dates.
date_format: "2006-01-02"
default_priority: medium

# manual keeps the order you set on the board; auto sorts by priority and date.
task_sort_mode: manual

daily_note:
  # none, auto-write (append on completion) or command (gtd daily)
  mode: command
  folder: ""

week_start_day: monday
language: en
`

// DailyNoteSettings controls the completed-task section in daily notes.
type DailyNoteSettings struct {
	Mode   string `yaml:"mode"`
	Folder string `yaml:"folder"`
}

// Settings models .gtd/config.yaml.
type Settings struct {
	TaskFolder      string            `yaml:"task_folder"`
	ProjectFolder   string            `yaml:"project_folder"`
	ReviewFolder    string            `yaml:"review_folder"`
	DateFormat      string            `yaml:"date_format"`
	DefaultPriority string            `yaml:"default_priority"`
	TaskSortMode    string            `yaml:"task_sort_mode"`
	DailyNote       DailyNoteSettings `yaml:"daily_note"`
	WeekStartDay    string            `yaml:"week_start_day"`
	Language        string            `yaml:"language"`
}

// Config holds the runtime configuration for a vault.
type Config struct {
	// VaultDir is the root every document path is relative to.
	VaultDir string

	// GTDProjectDir is VaultDir/.gtd
	GTDProjectDir string

	Settings Settings
}

// InitDir creates the .gtd directory structure in the given vault.
//
// Structure created:
// .gtd/
// ├── config.yaml  <- written only if absent
// └── logs/
func InitDir(vaultDir string) error {
	gtdDir := filepath.Join(vaultDir, GTDDir)
	if err := os.MkdirAll(filepath.Join(gtdDir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureConfig(filepath.Join(gtdDir, "config.yaml"))
}

// ResolveVault picks the vault root: an explicit flag wins, then GTD_VAULT,
// then the working directory.
func ResolveVault(flagValue string) (string, error) {
	dir := strings.TrimSpace(flagValue)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(VaultEnv))
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("config: resolve working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("config: resolve vault %s: %w", dir, err)
	}
	return abs, nil
}

// Load reads .gtd/config.yaml from vaultDir. A missing file yields defaults.
func Load(vaultDir string) (*Config, error) {
	cfg := &Config{
		VaultDir:      vaultDir,
		GTDProjectDir: filepath.Join(vaultDir, GTDDir),
		Settings:      DefaultSettings(),
	}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	s := Settings{}
	s.applyDefaults()
	return s
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.GTDProjectDir, "logs")
}

// LogPath returns the debug log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "gtd.log")
}

// JournalPath returns the logbook file shown by `gtd log` and the board.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journal.log")
}

// ConfigPath returns the on-disk location for the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.GTDProjectDir, "config.yaml")
}

// Save validates and persists the current settings.
func (c *Config) Save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Settings.applyDefaults()
	c.Settings.normalize()
	if err := c.Settings.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.GTDProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure gtd dir: %w", err)
	}
	data, err := yaml.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write config: %w", err)
	}
	return nil
}

// ManualSort reports whether board order comes from each task's order field.
func (s Settings) ManualSort() bool {
	return s.TaskSortMode == SortManual
}

// WeekStart returns the configured first day of the week.
func (s Settings) WeekStart() time.Weekday {
	if s.WeekStartDay == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// FormatDate renders t with the configured layout.
func (s Settings) FormatDate(t time.Time) string {
	return t.Format(s.DateFormat)
}

func (c *Config) loadSettings() error {
	p := c.ConfigPath()
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", p, err)
	}

	var parsed Settings
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", p, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Settings = parsed
	return nil
}

func (s *Settings) applyDefaults() {
	setDefault(&s.TaskFolder, "GTD/Tasks")
	setDefault(&s.ProjectFolder, "GTD/Projects")
	setDefault(&s.ReviewFolder, "GTD/Reviews")
	setDefault(&s.DateFormat, "2006-01-02")
	setDefault(&s.DefaultPriority, "medium")
	setDefault(&s.TaskSortMode, SortManual)
	setDefault(&s.DailyNote.Mode, DailyNoteCommand)
	setDefault(&s.WeekStartDay, "monday")
	setDefault(&s.Language, "en")
}

func (s *Settings) normalize() {
	s.TaskFolder = normalizeFolder(s.TaskFolder)
	s.ProjectFolder = normalizeFolder(s.ProjectFolder)
	s.ReviewFolder = normalizeFolder(s.ReviewFolder)
	s.DailyNote.Folder = normalizeFolder(s.DailyNote.Folder)
	s.DefaultPriority = normalizeValue(s.DefaultPriority)
	s.TaskSortMode = normalizeValue(s.TaskSortMode)
	s.DailyNote.Mode = normalizeValue(s.DailyNote.Mode)
	s.WeekStartDay = normalizeValue(s.WeekStartDay)
	s.Language = normalizeValue(s.Language)
}

func (s *Settings) validate() error {
	if s.TaskFolder == "" || s.ProjectFolder == "" {
		return fmt.Errorf("task_folder and project_folder are required")
	}
	if s.TaskFolder == s.ProjectFolder {
		return fmt.Errorf("task_folder and project_folder must differ")
	}
	switch s.DefaultPriority {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("default_priority must be low, medium or high")
	}
	switch s.TaskSortMode {
	case SortManual, SortAuto:
	default:
		return fmt.Errorf("task_sort_mode must be '%s' or '%s'", SortManual, SortAuto)
	}
	switch s.DailyNote.Mode {
	case DailyNoteNone, DailyNoteAutoWrite, DailyNoteCommand:
	default:
		return fmt.Errorf("daily_note.mode must be none, auto-write or command")
	}
	switch s.WeekStartDay {
	case "monday", "sunday":
	default:
		return fmt.Errorf("week_start_day must be monday or sunday")
	}
	return nil
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

func normalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// normalizeFolder keeps folders vault-relative with forward slashes.
func normalizeFolder(value string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(value, "\\", "/"))
	if trimmed == "" {
		return ""
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+trimmed), "/")
	if cleaned == "." {
		return ""
	}
	return cleaned
}

func ensureConfig(p string) error {
	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(p, []byte(defaultConfigYAML), 0o644)
}
