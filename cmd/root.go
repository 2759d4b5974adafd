// Package cmd implements the tutorchat CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/config"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/dependency"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/logging"
)

const version = "0.1.0"
const logo = "🎓"

var configPath string

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "tutorchat",
	Short: logo + " tutorchat — SOPHIA tutor chat service",
	Long:  logo + " tutorchat — chat with a tutor model and turn conversations into courses",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.sophia/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(courseCmd)
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(mcpCmd)
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.ConfigPath()
}

// loadConfig reads the config file and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func openContainer() (*dependency.ServiceContainer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return dependency.New(cfg)
}
