package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/discussions/internal/flags"
)

func loadConfig(t *testing.T, path string) Config {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg := Config{}
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestSetFlag_CreatesNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	require.NoError(t, SetFlag(path, flags.FlagProfanityChecker, true))

	cfg := loadConfig(t, path)
	require.True(t, cfg.Flags[flags.FlagProfanityChecker])
}

func TestSetFlag_PreservesOtherConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SetFlag(path, flags.FlagProfanityChecker, true))
	require.NoError(t, SetFlag(path, "other-flag", false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Feature flags")

	cfg := loadConfig(t, path)
	require.True(t, cfg.Flags[flags.FlagProfanityChecker])
	require.Contains(t, cfg.Flags, "other-flag")
	require.Equal(t, "0s", viperString(t, path, "discussion.course_publish_task_delay"))
}

func TestSetFlag_Toggle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, SetFlag(path, flags.FlagProfanityChecker, true))
	require.NoError(t, SetFlag(path, flags.FlagProfanityChecker, false))

	var raw map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &raw))
	require.Equal(t, map[string]any{flags.FlagProfanityChecker: false}, raw["flags"])
}

func TestSetFlag_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("flags: [unclosed"), 0o600))

	err := SetFlag(path, flags.FlagProfanityChecker, true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing config")
}

func TestSetFlag_AtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, SetFlag(path, flags.FlagProfanityChecker, true))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file should be renamed away")
	require.Equal(t, "config.yaml", entries[0].Name())
}

func TestSetCourseFlag_AddsAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	const demo = "course-v1:edX+DemoX+Demo_Course"
	const other = "course-v1:edX+Other+2025"

	require.NoError(t, SetCourseFlag(path, demo, flags.FlagProfanityChecker, true))
	require.NoError(t, SetCourseFlag(path, other, flags.FlagProfanityChecker, true))
	require.NoError(t, SetCourseFlag(path, demo, flags.FlagProfanityChecker, false))

	cfg := loadConfig(t, path)
	require.Equal(t, []CourseFlagConfig{
		{CourseID: demo, Flag: flags.FlagProfanityChecker, Enabled: false},
		{CourseID: other, Flag: flags.FlagProfanityChecker, Enabled: true},
	}, cfg.CourseFlags)
	require.NoError(t, Validate(cfg))
}

func viperString(t *testing.T, path, key string) string {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v.GetString(key)
}
