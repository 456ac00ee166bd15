package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "quizrunner",
	Short: "quizrunner - solves chained web quizzes against a deadline",
	Long: `quizrunner renders a quiz page in headless Chrome, works out where to
submit and what to answer, posts the answer and follows the next URL it is
given, until the chain ends or the time budget runs out.

Pages that ask for the sum of a "value" column are answered from the CSV,
JSON or PDF files they link to. Other pages are searched for a stated answer.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		logger = l
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quizrunner %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.quizrunner/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Chain flags shared by solve, batch and serve
	flags.Duration("budget", 0, "time budget for one chain (default 3m)")
	flags.Duration("request-timeout", 0, "upper bound for one page render (default 45s)")
	flags.Bool("headless", true, "run Chrome headless")
	flags.String("chrome-bin", "", "Chrome binary (default: found or downloaded by the launcher)")
	flags.String("ua", "", "User-Agent for renders and requests")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	flags.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	flags.Bool("respect-robots", false, "honor robots.txt for artifact downloads")
	flags.Bool("pdf", true, "parse PDF artifacts")
	flags.String("llm-provider", "", "LLM answer fallback (openai, ollama); empty disables it")
	flags.String("llm-model", "", "LLM model name")

	bindFlags(flags, map[string]string{
		"chain.request_timeout": "request-timeout",
		"chain.budget":          "budget",
		"browser.headless":      "headless",
		"browser.bin":           "chrome-bin",
		"http.user_agent":       "ua",
		"http.insecure_tls":     "insecure",
		"http.http_proxy":       "http-proxy",
		"http.https_proxy":      "https-proxy",
		"http.respect_robots":   "respect-robots",
		"artifacts.pdf":         "pdf",
		"llm.provider":          "llm-provider",
		"llm.model":             "llm-model",
	})

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setupViper(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
	}
}

// newLogger builds a production zap logger; verbose lowers the level to debug
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
