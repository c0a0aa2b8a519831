// Command minerva runs the course-catalog bot and its maintenance tools.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/minerva/core/cmd"
	coreconfig "github.com/m3rciful/minerva/core/config"
	"github.com/m3rciful/minerva/internal/app"
)

const defaultConfigPath = "configs/config.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "minerva",
	Short: "Course-catalog menu bot for Formación Minerva",
	Long: `minerva answers short questions about the training catalog over HTTP and Telegram.

Configuration is read from --config, $CONFIG_PATH or configs/config.yaml, in that order,
and overlaid with environment variables (a .env file is loaded first when present).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd, chatCmd, catalogCmd, statsCmd, versionCmd)
}

func runnerOptions() corecmd.Options {
	return corecmd.Options{
		ConfigPath:        configPath,
		DefaultConfigPath: defaultConfigPath,
	}
}

// loadConfig resolves the config path like serve does. A missing default file is not an error.
func loadConfig() (*app.Config, error) {
	if err := coreconfig.LoadDotEnv(); err != nil {
		return nil, err
	}
	path := corecmd.ResolveConfigPath(runnerOptions())
	if path == defaultConfigPath {
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	return app.Load(path)
}

// openApp builds the application without writing logs to the terminal.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.Options{LoggerInit: func(*coreconfig.Config) error { return nil }})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
