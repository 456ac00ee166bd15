package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/quizrunner/internal/model"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// envAliases binds the environment variable names deployments already use
var envAliases = map[string][]string{
	"quiz.secret":           {"QUIZ_SECRET"},
	"quiz.email":            {"QUIZ_EMAIL"},
	"quiz.github_repo_url":  {"GITHUB_REPO_URL"},
	"quiz.deployment_url":   {"DEPLOYMENT_URL"},
	"browser.headless":      {"HEADLESS"},
	"server.disable_solver": {"DISABLE_SOLVER"},
	"llm.api_key":           {"OPENAI_API_KEY"},
	"llm.base_url":          {"OLLAMA_BASE_URL"},
}

// requestTimeoutEnv holds the per-request timeout in seconds
const requestTimeoutEnv = "REQUEST_TIMEOUT"

// setupViper registers defaults, the config file and environment bindings.
// Environment variables use the QUIZRUNNER_ prefix with dots as underscores
// (QUIZRUNNER_CHAIN_BUDGET=2m).
func setupViper(v *viper.Viper, configFile string) error {
	if err := setDefaults(v, model.DefaultConfig()); err != nil {
		return err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".quizrunner"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("QUIZRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envAliases {
		prefixed := "QUIZRUNNER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (configFile == "" && errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// setDefaults registers every key of cfg so env vars and flags can override it
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}

	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for key, value := range node {
			if child, ok := value.(map[string]any); ok {
				walk(prefix+key+".", child)
				continue
			}
			v.SetDefault(prefix+key, value)
		}
	}
	walk("", tree)

	// Keys omitted from YAML output still need a default to be decoded
	v.SetDefault("llm.api_key", "")
	v.SetDefault("quiz.github_repo_url", "")
	v.SetDefault("quiz.deployment_url", "")
	v.SetDefault("browser.bin", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("http.http_proxy", "")
	v.SetDefault("http.https_proxy", "")
	v.SetDefault("http.no_proxy", "")
	return nil
}

func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}
}

// loadConfig decodes the effective configuration
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if raw := os.Getenv(requestTimeoutEnv); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("%s must be a positive number of seconds, got %q", requestTimeoutEnv, raw)
		}
		cfg.Chain.RequestTimeout = time.Duration(seconds * float64(time.Second))
	}

	// Unset duration flags are registered as zero
	defaults := model.DefaultConfig()
	if cfg.Chain.Budget == 0 {
		cfg.Chain.Budget = defaults.Chain.Budget
	}
	if cfg.Chain.RequestTimeout == 0 {
		cfg.Chain.RequestTimeout = defaults.Chain.RequestTimeout
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = defaults.HTTP.UserAgent
	}
	return cfg, nil
}

// loadValidConfig loads the configuration and checks required settings
func loadValidConfig() (*model.Config, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
