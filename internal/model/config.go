package model

import (
	"fmt"
	"strings"
	"time"
)

// Config is the process-wide configuration. It is built once at startup and
// passed by pointer into every chain run; nothing mutates it afterwards.
type Config struct {
	Quiz        QuizConfig        `yaml:"quiz" mapstructure:"quiz"`
	Chain       ChainConfig       `yaml:"chain" mapstructure:"chain"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Browser     BrowserConfig     `yaml:"browser" mapstructure:"browser"`
	Artifacts   ArtifactConfig    `yaml:"artifacts" mapstructure:"artifacts"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
}

// QuizConfig holds the caller identity used in every submission
type QuizConfig struct {
	Email         string `yaml:"email" mapstructure:"email"`
	Secret        string `yaml:"secret" mapstructure:"secret"`
	GithubRepoURL string `yaml:"github_repo_url,omitempty" mapstructure:"github_repo_url"`
	DeploymentURL string `yaml:"deployment_url,omitempty" mapstructure:"deployment_url"`
}

// ChainConfig bounds a single chain run
type ChainConfig struct {
	Budget         time.Duration `yaml:"budget" mapstructure:"budget"`                   // Global deadline = start + Budget
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"` // Upper bound for one render or request
	MinStepTimeout time.Duration `yaml:"min_step_timeout" mapstructure:"min_step_timeout"`
}

// HTTPConfig configures artifact fetches and submissions
type HTTPConfig struct {
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS   bool    `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy     string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // Requests per second per domain
	RateBurst     int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	RespectRobots bool    `yaml:"respect_robots" mapstructure:"respect_robots"`

	// HostRates overrides RateLimit for specific hosts (requests per second)
	HostRates map[string]float64 `yaml:"host_rates,omitempty" mapstructure:"host_rates"`
}

// BrowserConfig configures the headless renderer
type BrowserConfig struct {
	Headless bool          `yaml:"headless" mapstructure:"headless"`
	Bin      string        `yaml:"bin,omitempty" mapstructure:"bin"`   // Chrome binary; empty lets the launcher pick
	IdleWait time.Duration `yaml:"idle_wait" mapstructure:"idle_wait"` // Network quiet period before reading the DOM
}

// ArtifactConfig configures artifact parsing
type ArtifactConfig struct {
	PDF           bool          `yaml:"pdf" mapstructure:"pdf"` // Enables the PDF table capability
	CacheTTL      time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	CacheMaxBytes int64         `yaml:"cache_max_bytes" mapstructure:"cache_max_bytes"`
}

// ServerConfig configures the acceptance endpoint
type ServerConfig struct {
	Addr          string        `yaml:"addr" mapstructure:"addr"`
	DisableSolver bool          `yaml:"disable_solver" mapstructure:"disable_solver"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace" mapstructure:"shutdown_grace"`
}

// ConcurrencyConfig bounds concurrent chains
type ConcurrencyConfig struct {
	MaxChains int `yaml:"max_chains" mapstructure:"max_chains"`
}

// LLMConfig configures the optional LLM answer fallback
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "", openai, ollama
	Model     string `yaml:"model,omitempty" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultUserAgent mimics a desktop Chrome so quiz pages render normally
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Chain: ChainConfig{
			Budget:         180 * time.Second,
			RequestTimeout: 45 * time.Second,
			MinStepTimeout: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			UserAgent:    DefaultUserAgent,
			MaxBodyBytes: 20 << 20,
			RateLimit:    5,
			RateBurst:    5,
		},
		Browser: BrowserConfig{
			Headless: true,
			IdleWait: 500 * time.Millisecond,
		},
		Artifacts: ArtifactConfig{
			PDF:           true,
			CacheTTL:      10 * time.Minute,
			CacheMaxBytes: 64 << 20,
		},
		Server: ServerConfig{
			Addr:          ":8000",
			ShutdownGrace: 15 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			MaxChains: 8,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 64,
		},
	}
}

// Validate reports missing required settings using the environment variable
// names operators set them with.
func (c *Config) Validate() error {
	var missing []string
	if c.Quiz.Secret == "" {
		missing = append(missing, "QUIZ_SECRET")
	}
	if c.Quiz.Email == "" {
		missing = append(missing, "QUIZ_EMAIL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.Chain.Budget <= 0 {
		return fmt.Errorf("chain budget must be positive, got %s", c.Chain.Budget)
	}
	if c.Chain.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.Chain.RequestTimeout)
	}
	return nil
}
