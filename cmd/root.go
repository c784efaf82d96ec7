package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/refmatch/refmatch/internal/api"
	"github.com/refmatch/refmatch/internal/matching"
)

const (
	app       = "refmatch"
	envPrefix = "REFMATCH"
)

type Config struct {
	APIURL    string           `mapstructure:"api-url" validate:"required,url"`
	UserAgent string           `mapstructure:"user-agent"`
	Timeout   time.Duration    `mapstructure:"timeout" validate:"gte=0"`
	RateLimit *RateLimitConfig `mapstructure:"rate-limit"`
	Token     string           `mapstructure:"token" json:"-"`
	TokenFile string           `mapstructure:"token-file"`
	User      *UserConfig      `mapstructure:"user"`
	Matching  *MatchingConfig  `mapstructure:"matching"`
	AI        *AIConfig        `mapstructure:"ai"`
}

// RateLimitConfig throttles requests to the platform API. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests-per-second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

// UserConfig overrides the identity read from the token. Needed for opaque tokens.
type UserConfig struct {
	ID    int    `mapstructure:"id" validate:"gte=0"`
	Email string `mapstructure:"email" validate:"omitempty,email"`
	Name  string `mapstructure:"name"`
	Role  string `mapstructure:"role" validate:"omitempty,oneof=candidate employee admin"`
}

type MatchingConfig struct {
	MaxMatches       int     `mapstructure:"max-matches" validate:"gte=0,lte=50"`
	TargetCompany    string  `mapstructure:"target-company"`
	MinScore         float64 `mapstructure:"min-score" validate:"gte=0,lte=100"`
	ExcludeEmployees []int   `mapstructure:"exclude-employees"`
	ExcludeFile      string  `mapstructure:"exclude-file"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	Tone     string        `mapstructure:"tone"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key" json:"-"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "refmatch finds the employees most likely to refer you, using the platform's AI matching",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"token-file":             envPrefix + "_TOKEN_FILE",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.gemini.api-key":      "GEMINI_API_KEY",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is refmatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("api-url", "", "base URL of the referral platform API")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api-url", api.DefaultURL)
	v.SetDefault("timeout", api.DefaultTimeout)
	v.SetDefault("token", "")
	v.SetDefault("matching.max-matches", matching.DefaultMaxMatches)
	v.SetDefault("matching.min-score", 0)
	v.SetDefault("matching.target-company", "")
	v.SetDefault("matching.exclude-file", "")
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.max-retries", 3)
}

func initConfig() {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing default config is fine, an explicit or broken one is not.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if config == nil {
		config = &Config{}
	}
	if config.RateLimit == nil {
		config.RateLimit = &RateLimitConfig{}
	}
	if config.User == nil {
		config.User = &UserConfig{}
	}
	if config.Matching == nil {
		config.Matching = &MatchingConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
