// Package config provides configuration types and defaults for the
// discussions service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/flags"
	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/paths"
	"github.com/zjrosen/discussions/internal/tracing"
)

// Config holds all configuration options.
type Config struct {
	Database    DatabaseConfig     `mapstructure:"database"`
	Site        SiteConfig         `mapstructure:"site"`
	Discussion  DiscussionConfig   `mapstructure:"discussion"`
	Profanity   ProfanityConfig    `mapstructure:"profanity"`
	Flags       map[string]bool    `mapstructure:"flags"`
	CourseFlags []CourseFlagConfig `mapstructure:"course_flags"`
	Tracing     tracing.Config     `mapstructure:"tracing"`
	Log         LogConfig          `mapstructure:"log"`
}

// CourseFlagConfig sets one flag for one course. A list is used instead
// of a map because viper lowercases map keys and course ids are case
// sensitive.
type CourseFlagConfig struct {
	CourseID string `mapstructure:"course_id" yaml:"course_id"`
	Flag     string `mapstructure:"flag" yaml:"flag"`
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SiteConfig holds the default request domain for CLI commands.
type SiteConfig struct {
	Domain string `mapstructure:"domain"`
}

// DiscussionConfig holds forum handler options.
type DiscussionConfig struct {
	// CoursePublishTaskDelay postpones the discussion map refresh after a
	// publish. Zero refreshes before the publish returns.
	CoursePublishTaskDelay time.Duration `mapstructure:"course_publish_task_delay"`
}

// ProfanityConfig holds the word list of the profanity checker.
type ProfanityConfig struct {
	Words []string `mapstructure:"words"`
}

// LogConfig controls the log sink.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
	Debug bool   `mapstructure:"debug"`
}

// DefaultDatabasePath returns ~/.discussions/discussions.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".discussions", "discussions.db")
	}
	return filepath.Join(home, ".discussions", "discussions.db")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{Path: DefaultDatabasePath()},
		Flags: map[string]bool{
			flags.FlagProfanityChecker: false,
		},
		Tracing: tracing.DefaultConfig(),
		Log:     LogConfig{Level: "info"},
	}
}

// Validate checks the configuration for errors.
func Validate(c Config) error {
	if c.Discussion.CoursePublishTaskDelay < 0 {
		return fmt.Errorf("discussion.course_publish_task_delay must not be negative, got %s", c.Discussion.CoursePublishTaskDelay)
	}
	for i, cf := range c.CourseFlags {
		if _, err := course.ParseCourseKey(cf.CourseID); err != nil {
			return fmt.Errorf("course_flags[%d]: %w", i, err)
		}
		if strings.TrimSpace(cf.Flag) == "" {
			return fmt.Errorf("course_flags[%d]: flag is required", i)
		}
	}
	return ValidateTracing(c.Tracing)
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	switch t.Exporter {
	case "", "none", "file", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
	}
	if t.Enabled {
		if t.Exporter == "file" && t.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if t.Exporter == "otlp" && t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// ExpandPaths resolves a leading ~ in every configured file path.
func (c *Config) ExpandPaths() {
	c.Database.Path = paths.ExpandHome(c.Database.Path)
	c.Log.Path = paths.ExpandHome(c.Log.Path)
	c.Tracing.FilePath = paths.ExpandHome(c.Tracing.FilePath)
}

// CourseFlagMap groups CourseFlags by course id for flags.Registry.
// A later entry for the same course and flag wins.
func (c Config) CourseFlagMap() map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, cf := range c.CourseFlags {
		m, ok := out[cf.CourseID]
		if !ok {
			m = make(map[string]bool)
			out[cf.CourseID] = m
		}
		m[strings.ToLower(strings.TrimSpace(cf.Flag))] = cf.Enabled
	}
	return out
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Discussions Configuration

# SQLite database holding sites, courses, settings and the notification outbox
# database:
#   path: ~/.discussions/discussions.db

# Request domain used by CLI commands to resolve the current site
# site:
#   domain: example.com

# Forum handler options
discussion:
  # Delay before refreshing a course's discussion map after publish (0 = inline)
  course_publish_task_delay: 0s

# Words reported by the profanity checker (matched case and accent insensitively)
profanity:
  words: []

# Feature flags
flags:
  enable-profanity-checker: false

# Per-course flag values, checked before the global value
# course_flags:
#   - course_id: "course-v1:edX+DemoX+Demo_Course"
#     flag: enable-profanity-checker
#     enabled: true

# Distributed tracing of signal dispatch
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.discussions/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)

# Logging
# log:
#   path: discussions.log
#   level: info
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
