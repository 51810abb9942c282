package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "apply-queue"
)

type Config struct {
	Catalog     string `mapstructure:"catalog"`
	Candidate   string `mapstructure:"candidate"`
	ExcludeFile string `mapstructure:"exclude-file"`
	MetricsFile string `mapstructure:"metrics-file"`
	Exclude     *struct {
		Companies []string `mapstructure:"companies"`
	} `mapstructure:"exclude"`
	Matching *MatchingConfig `mapstructure:"matching"`
	Notes    *NotesConfig    `mapstructure:"notes"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type MatchingConfig struct {
	TopK          int           `mapstructure:"top-k"`
	MinSimilarity *float64      `mapstructure:"min-similarity"`
	Workers       int           `mapstructure:"workers"`
	EmbedTimeout  time.Duration `mapstructure:"embed-timeout"`
	ReasonTimeout time.Duration `mapstructure:"reason-timeout"`
}

type NotesConfig struct {
	MaxBullets int `mapstructure:"max-bullets"`
}

type AIConfig struct {
	// Provider is gemini or hash. hash runs fully offline and has no reasoner.
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	Hash     *HashConfig   `mapstructure:"hash"`
}

type GeminiConfig struct {
	APIKey         string        `mapstructure:"api-key"`
	APIKeyFile     string        `mapstructure:"api-key-file"`
	APIKeyEnv      string        `mapstructure:"api-key-env"`
	Model          string        `mapstructure:"model"`
	EmbeddingModel string        `mapstructure:"embedding-model"`
	MaxRetries     int           `mapstructure:"max-retries"`
	MaxLogLength   int           `mapstructure:"max-log-length"`
	EmbedRPS       float64       `mapstructure:"embed-rps"`
	EmbedBurst     int           `mapstructure:"embed-burst"`
	TripFailures   uint32        `mapstructure:"trip-failures"`
	BreakerTimeout time.Duration `mapstructure:"breaker-timeout"`
}

type HashConfig struct {
	Dimension int `mapstructure:"dimension"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "apply-queue ranks job postings against a candidate profile and builds an explainable apply queue",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("catalog", "APPLY_QUEUE_CATALOG"); err != nil {
		log.Fatalf("binding APPLY_QUEUE_CATALOG environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is apply-queue.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("catalog", "c", "", "job catalog file or http(s) URL")
	rootCmd.PersistentFlags().String("candidate", "", "candidate artifact pack (JSON)")
	rootCmd.PersistentFlags().StringP("exclude-file", "e", "", "special file with postings to exclude. Default is unset.")
	rootCmd.PersistentFlags().String("metrics-file", "", "write prometheus metrics to this file on exit")

	for _, name := range []string{"debug", "json", "catalog", "candidate", "exclude-file", "metrics-file"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			log.Fatalf("binding %s flag: %v", name, err)
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The default config file is optional; an explicit one must exist and parse.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}

	return config, nil
}
