package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// GetGlobalConfigDir returns the path to the global configuration directory
// (~/.octocoder). It's a variable to allow overriding in tests.
var GetGlobalConfigDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".octocoder"), nil
}

// GetProjectRootDir returns the per-project data directory.
func GetProjectRootDir() string {
	if dir := viper.GetString("project.rootDir"); dir != "" {
		return dir
	}
	return ".octocoder"
}

// GetRunLogBasePath returns the root directory run logs live under.
// Resolution order (first match wins):
// 1. Explicit config via "runs.path" (Viper/env/flag)
// 2. Local project directory: .octocoder/agent-runs (if the project dir exists)
// 3. XDG_DATA_HOME/octocoder/agent-runs (if XDG_DATA_HOME is set)
// 4. Global fallback: ~/.octocoder/agent-runs
func GetRunLogBasePath() string {
	if path := viper.GetString("runs.path"); path != "" {
		return path
	}

	rootDir := GetProjectRootDir()
	if info, err := os.Stat(rootDir); err == nil && info.IsDir() {
		return filepath.Join(rootDir, "agent-runs")
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "octocoder", "agent-runs")
	}

	dir, err := GetGlobalConfigDir()
	if err != nil {
		return "./agent-runs"
	}
	return filepath.Join(dir, "agent-runs")
}

// GetDataFilePath returns the full path to the project-file store's data file.
func GetDataFilePath() string {
	if path := viper.GetString("data.file"); filepath.IsAbs(path) {
		return path
	}
	file := viper.GetString("data.file")
	if file == "" {
		file = "files.json"
	}
	return filepath.Join(GetProjectRootDir(), file)
}

// GetTemplatesDir returns the directory searched for prompt override files.
// Empty means built-in prompts only.
func GetTemplatesDir() string {
	if dir := viper.GetString("project.templatesDir"); dir != "" {
		return dir
	}
	templates := filepath.Join(GetProjectRootDir(), "templates")
	if info, err := os.Stat(templates); err == nil && info.IsDir() {
		return templates
	}
	return ""
}
