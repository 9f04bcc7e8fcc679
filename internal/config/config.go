// internal/config/config.go
//
// This package handles configuration and the .validator directory structure.
// Every project directory the validator runs in gets a .validator/ folder
// holding config.yaml and the session logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ValidatorDir is the name of the directory we create in each project
	ValidatorDir = ".validator"

	// DefaultSheet is the worksheet activists submit records on.
	DefaultSheet = "Records"
	// DefaultValidSheet receives a copy of validated rows for the dashboard.
	DefaultValidSheet = "valid records"
	// DefaultTable is the SQLite table used by the embedded backend.
	DefaultTable = "submissions"

	defaultAutosaveEvery = 1
)

// DefaultClassifications are the event types offered when config.yaml does
// not list any.
var DefaultClassifications = []string{"National", "Tesla", "Statewide", "One-off", "Other"}

const defaultProjectConfigYAML = `# protest validator configuration
version: 1

# Workbook opened when no path is given on the command line.
workbook: ""

store:
  # xlsx, csv or sqlite. Leave empty to pick by file extension.
  backend: ""
  sheet: Records
  # Validated rows are copied here on every save. Set to "" to disable.
  valid_sheet: valid records
  table: submissions

# Header names for each field. Columns not listed are carried through untouched.
columns:
  id: ID
  date: Date
  location: Location
  url: URL
  status: Status
  classification: Type
  notes: Notes

classifications:
  - National
  - Tesla
  - Statewide
  - One-off
  - Other

# Save the workbook after this many decisions.
autosave_every: 1

# Warn when the workbook changes on disk during a session.
watch: false

# Command used to open evidence URLs. Empty uses the platform default.
browser: ""
`

// StoreConfig selects and tunes the record store backend.
type StoreConfig struct {
	Backend    string  `yaml:"backend"`
	Sheet      string  `yaml:"sheet"`
	ValidSheet *string `yaml:"valid_sheet,omitempty"`
	Table      string  `yaml:"table"`
}

// ColumnsConfig maps submission fields to spreadsheet header names.
type ColumnsConfig struct {
	ID             string `yaml:"id"`
	Date           string `yaml:"date"`
	Location       string `yaml:"location"`
	URL            string `yaml:"url"`
	Status         string `yaml:"status"`
	Classification string `yaml:"classification"`
	Notes          string `yaml:"notes"`
}

// ProjectConfig models .validator/config.yaml.
type ProjectConfig struct {
	Version         int           `yaml:"version"`
	Workbook        string        `yaml:"workbook"`
	Store           StoreConfig   `yaml:"store"`
	Columns         ColumnsConfig `yaml:"columns"`
	Classifications []string      `yaml:"classifications"`
	AutosaveEvery   int           `yaml:"autosave_every"`
	Watch           bool          `yaml:"watch"`
	Browser         string        `yaml:"browser"`
}

// Config holds the runtime configuration for a validation session.
type Config struct {
	// ProjectDir is the directory the validator was launched from
	ProjectDir string

	// ValidatorProjectDir is ProjectDir/.validator
	ValidatorProjectDir string

	// ConfigPath overrides ValidatorProjectDir/config.yaml when set
	ConfigPath string

	Project ProjectConfig
}

// InitValidatorDir creates the .validator directory structure in the given
// project directory. This is called before the TUI starts.
//
// Structure created:
// .validator/
// ├── config.yaml
// └── logs/        <- validator.log and journey.log
func InitValidatorDir(projectDir string) error {
	validatorDir := filepath.Join(projectDir, ValidatorDir)
	if err := os.MkdirAll(filepath.Join(validatorDir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(validatorDir, "config.yaml"))
}

// NewConfig creates a Config populated from the project's config.yaml and
// environment overrides. configPath may be empty to use the default location.
func NewConfig(projectDir, configPath string) (*Config, error) {
	cfg := &Config{
		ProjectDir:          projectDir,
		ValidatorProjectDir: filepath.Join(projectDir, ValidatorDir),
		ConfigPath:          strings.TrimSpace(configPath),
		Project:             defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.ValidatorProjectDir, "logs")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	if c.ConfigPath != "" {
		return c.ConfigPath
	}
	return filepath.Join(c.ValidatorProjectDir, "config.yaml")
}

// WorkbookPath resolves the configured workbook against the project dir.
func (c *Config) WorkbookPath() string {
	return resolvePath(c.ProjectDir, c.Project.Workbook)
}

// ValidSheet returns the sheet receiving validated rows, or "" when disabled.
func (c *Config) ValidSheet() string {
	if c.Project.Store.ValidSheet == nil {
		return DefaultValidSheet
	}
	return strings.TrimSpace(*c.Project.Store.ValidSheet)
}

// Classifications returns the configured classification names.
func (c *Config) Classifications() []string {
	return append([]string(nil), c.Project.Classifications...)
}

// AutosaveEvery returns how many decisions may accumulate before a save.
func (c *Config) AutosaveEvery() int {
	return c.Project.AutosaveEvery
}

// WatchEnabled reports whether the workbook watcher should run.
func (c *Config) WatchEnabled() bool {
	return c.Project.Watch
}

// BrowserCommand returns the configured URL opener, if any.
func (c *Config) BrowserCommand() string {
	return c.Project.Browser
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && c.ConfigPath == "" {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	parsed.Classifications = nil
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnvOverrides() {
	if value := strings.TrimSpace(os.Getenv("VALIDATOR_WATCH")); value != "" {
		if enabled, err := strconv.ParseBool(value); err == nil {
			c.Project.Watch = enabled
		}
	}
	if browser := strings.TrimSpace(os.Getenv("VALIDATOR_BROWSER")); browser != "" {
		c.Project.Browser = browser
	}
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{Version: 1}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Store.Sheet) == "" {
		pc.Store.Sheet = DefaultSheet
	}
	if strings.TrimSpace(pc.Store.Table) == "" {
		pc.Store.Table = DefaultTable
	}
	defaults := ColumnsConfig{
		ID: "ID", Date: "Date", Location: "Location", URL: "URL",
		Status: "Status", Classification: "Type", Notes: "Notes",
	}
	fill := func(value *string, fallback string) {
		if strings.TrimSpace(*value) == "" {
			*value = fallback
		}
	}
	fill(&pc.Columns.ID, defaults.ID)
	fill(&pc.Columns.Date, defaults.Date)
	fill(&pc.Columns.Location, defaults.Location)
	fill(&pc.Columns.URL, defaults.URL)
	fill(&pc.Columns.Status, defaults.Status)
	fill(&pc.Columns.Classification, defaults.Classification)
	fill(&pc.Columns.Notes, defaults.Notes)
	if len(pc.Classifications) == 0 {
		pc.Classifications = append([]string(nil), DefaultClassifications...)
	}
	if pc.AutosaveEvery == 0 {
		pc.AutosaveEvery = defaultAutosaveEvery
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Workbook = strings.TrimSpace(pc.Workbook)
	pc.Store.Backend = strings.ToLower(strings.TrimSpace(pc.Store.Backend))
	pc.Store.Sheet = strings.TrimSpace(pc.Store.Sheet)
	pc.Store.Table = strings.TrimSpace(pc.Store.Table)
	pc.Browser = strings.TrimSpace(pc.Browser)
	cleaned := make([]string, 0, len(pc.Classifications))
	for _, name := range pc.Classifications {
		name = strings.TrimSpace(name)
		if name == "" || contains(cleaned, name) {
			continue
		}
		cleaned = append(cleaned, name)
	}
	pc.Classifications = cleaned
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	switch pc.Store.Backend {
	case "", "xlsx", "csv", "sqlite":
	default:
		return fmt.Errorf("store.backend must be 'xlsx', 'csv' or 'sqlite'")
	}
	if pc.AutosaveEvery < 0 {
		return fmt.Errorf("autosave_every must be >= 0")
	}
	if len(pc.Classifications) == 0 {
		return fmt.Errorf("classifications must list at least one entry")
	}
	seen := map[string]string{}
	for field, name := range map[string]string{
		"id": pc.Columns.ID, "date": pc.Columns.Date, "location": pc.Columns.Location,
		"url": pc.Columns.URL, "status": pc.Columns.Status,
		"classification": pc.Columns.Classification, "notes": pc.Columns.Notes,
	} {
		key := strings.ToLower(strings.TrimSpace(name))
		if other, dup := seen[key]; dup {
			if other > field {
				other, field = field, other
			}
			return fmt.Errorf("columns.%s and columns.%s both use header %q", other, field, name)
		}
		seen[key] = field
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

// SetWorkbook records the workbook path and persists it back to config.yaml
// so the next launch reopens the same file.
func (c *Config) SetWorkbook(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("config: workbook path is required")
	}
	if rel, err := filepath.Rel(c.ProjectDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	}
	c.Project.Workbook = path
	return c.saveProjectConfig()
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.ProjectConfigPath()), 0o755); err != nil {
		return fmt.Errorf("config: ensure validator dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
