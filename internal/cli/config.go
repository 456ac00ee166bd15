package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/quizrunner/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage quizrunner configuration",
	Long: `Manage quizrunner configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (QUIZRUNNER_*, plus QUIZ_SECRET, QUIZ_EMAIL,
   HEADLESS, REQUEST_TIMEOUT, DISABLE_SOLVER, GITHUB_REPO_URL, DEPLOYMENT_URL)
3. Config file (~/.quizrunner/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after defaults, config file, environment and flags are merged. The secret is masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(redacted(cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Print(string(yamlData))

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "\n⚠ %v\n", err)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.quizrunner/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := filepath.Join(home, ".quizrunner")
		configPath := filepath.Join(configDir, "config.yaml")

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'quizrunner config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		yamlData, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close config file: %w", closeErr)
			}
		}()

		printf := func(format string, a ...any) {
			if err != nil {
				return
			}
			_, err = fmt.Fprintf(f, format, a...)
		}

		printf("# quizrunner configuration\n")
		printf("#\n")
		printf("# Configuration hierarchy (highest to lowest priority):\n")
		printf("#   1. CLI flags\n")
		printf("#   2. Environment variables (QUIZRUNNER_*, QUIZ_SECRET, QUIZ_EMAIL, ...)\n")
		printf("#   3. This config file\n")
		printf("#   4. Built-in defaults\n")
		printf("#\n")
		printf("# Keep the secret out of this file; set QUIZ_SECRET instead.\n\n")
		printf("%s", yamlData)
		printf("\n# LLM API keys are read from the environment:\n")
		printf("#   export OPENAI_API_KEY=sk-...\n")
		printf("#   export OLLAMA_BASE_URL=http://localhost:11434\n")
		if err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		return nil
	},
}

// redacted returns a copy of cfg safe to print
func redacted(cfg *model.Config) *model.Config {
	out := *cfg
	if out.Quiz.Secret != "" {
		out.Quiz.Secret = "********"
	}
	return &out
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
