package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mbodiai/pyinfer/pkg/recursion"
)

// ConfigFileName is the project configuration file looked up by FindConfig.
const ConfigFileName = "pyinfer.yml"

// ErrConfigNotFound is returned by FindConfig when no configuration file
// exists in the start directory or any parent.
var ErrConfigNotFound = errors.New("pyinfer.yml not found")

// Config is the parsed contents of pyinfer.yml.
type Config struct {
	// Path is the absolute path the config was loaded from, empty for the
	// defaults.
	Path      string
	Recursion recursion.Settings
	// Exclude holds slash-separated glob patterns matched against module
	// paths relative to the load root and against base names.
	Exclude []string
	Debug   bool
}

type configFile struct {
	Recursion recursion.Settings `yaml:"recursion"`
	Exclude   []string           `yaml:"exclude"`
	Debug     bool               `yaml:"debug"`
}

// ValidationError aggregates configuration validation failures.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed")
	if e.Path != "" {
		b.WriteString(" for ")
		b.WriteString(e.Path)
	}
	b.WriteString(":")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// DefaultConfig returns the configuration used when no pyinfer.yml exists.
func DefaultConfig() Config {
	return Config{Recursion: recursion.DefaultSettings()}
}

// LoadConfig parses a pyinfer.yml from disk. Budgets left out of the
// recursion section take their defaults.
func LoadConfig(configPath string) (Config, error) {
	if configPath == "" {
		return Config{}, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("config: resolve %s: %w", configPath, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw configFile
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse %s: %w", absPath, err)
	}

	cfg := Config{
		Path:      absPath,
		Recursion: raw.Recursion.WithDefaults(),
		Exclude:   raw.Exclude,
		Debug:     raw.Debug,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks budgets and exclude patterns.
func (c Config) Validate() error {
	errs := ValidationError{Path: c.Path}
	var settingsErr *recursion.ValidationError
	if err := c.Recursion.Validate(); errors.As(err, &settingsErr) {
		for _, issue := range settingsErr.Issues {
			errs.Issues = append(errs.Issues, "recursion."+issue)
		}
	}
	for i, pattern := range c.Exclude {
		if strings.TrimSpace(pattern) == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("exclude[%d] must be a non-empty pattern", i))
			continue
		}
		if _, err := path.Match(pattern, ""); err != nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("exclude[%d] %q: %v", i, pattern, err))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// Excluded reports whether the slash-separated relative path rel matches
// one of the exclude patterns, either whole or by base name.
func (c Config) Excluded(rel string) bool {
	base := path.Base(rel)
	for _, pattern := range c.Exclude {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// FindConfig walks from start upwards and returns the first pyinfer.yml.
func FindConfig(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("config: resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", ConfigFileName, origin, ErrConfigNotFound)
		}
		dir = parent
	}
}

// ResolveConfig loads the config at configPath, or the nearest one above
// start when configPath is empty. Missing configuration yields the defaults.
func ResolveConfig(configPath, start string) (Config, error) {
	if configPath != "" {
		return LoadConfig(configPath)
	}
	found, err := FindConfig(start)
	if errors.Is(err, ErrConfigNotFound) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, err
	}
	return LoadConfig(found)
}
