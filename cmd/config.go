package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configName = ".octocoder"
	envPrefix  = "OCTOCODER"
)

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// Load .env file first if present. Missing files are fine.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix) // e.g., OCTOCODER_VERBOSE
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfgFileFlag := viper.GetString("config")

	projectConfigDir := viper.GetString("project.rootDir")
	if projectConfigDir == "" {
		projectConfigDir = ".octocoder"
	}

	if cfgFileFlag != "" {
		viper.SetConfigFile(cfgFileFlag)
	} else if _, err := os.Stat(projectConfigDir); !os.IsNotExist(err) {
		// Project-specific config directory exists. Prioritize it.
		viper.AddConfigPath(projectConfigDir)
		viper.SetConfigName(configName) // ./.octocoder/.octocoder.yaml
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home) // $HOME/.octocoder.yaml
		viper.AddConfigPath(".")  // ./.octocoder.yaml
		viper.SetConfigName(configName)
	}

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if cfgFileFlag != "" {
				fmt.Fprintln(os.Stderr, "Error: Specified config file not found:", cfgFileFlag)
			} else if viper.GetBool("verbose") {
				fmt.Fprintln(os.Stderr, "No config file found. Using defaults and environment variables.")
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error reading config file:", viper.ConfigFileUsed(), "-", err)
		}
	}

	// Set default values
	viper.SetDefault("project.rootDir", ".octocoder")
	viper.SetDefault("project.templatesDir", "")
	viper.SetDefault("data.file", "files.json")
	viper.SetDefault("data.format", "json")
	viper.SetDefault("runs.path", "")

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "")
	viper.SetDefault("llm.apiKey", "")
	viper.SetDefault("llm.baseURL", "")
}
