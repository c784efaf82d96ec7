package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/refmatch/refmatch/internal/ai"
	"github.com/refmatch/refmatch/internal/ai/gemini"
	"github.com/refmatch/refmatch/internal/api"
	"github.com/refmatch/refmatch/internal/dashboard"
	"github.com/refmatch/refmatch/internal/filtering"
	"github.com/refmatch/refmatch/internal/logger"
	"github.com/refmatch/refmatch/internal/matching"
	"github.com/refmatch/refmatch/internal/secrets"
	"github.com/refmatch/refmatch/internal/session"
)

// env is what every command runs with once config, token and logger are resolved.
type env struct {
	config    *Config
	logger    *zap.Logger
	session   *session.Static
	client    *api.Client
	service   *matching.Service
	dashboard *dashboard.Dashboard
}

// setup builds the command environment. Errors are fatal, like any other
// startup failure of the cli.
func setup(command string) *env {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting refmatch", zap.String("version", version), zap.String("command", command))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	token, err := resolveToken(config)
	if err != nil {
		logger.Fatal(
			"loading api token",
			zap.Error(err),
			zap.String("hint", "set REFMATCH_TOKEN_FILE environment variable or the 'token-file' key in the configuration file"),
		)
	}

	sess, err := session.FromToken(token, session.User{
		ID:    config.User.ID,
		Email: config.User.Email,
		Name:  config.User.Name,
		Role:  config.User.Role,
	})
	if err != nil {
		logger.Fatal("reading session from token", zap.Error(err))
	}

	sessions := session.NewStatic(sess)
	if !sessions.HasRole(context.Background(), session.RoleCandidate) {
		logger.Warn("matching is only available to candidates",
			zap.String("role", sess.User.Role),
			zap.String("hint", "set user.role in the configuration file when the token carries no role claim"),
		)
	}

	client := api.New(sessions, logger)
	client.APIURL = config.APIURL
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}
	if config.Timeout > 0 {
		client.HTTPClient.Timeout = config.Timeout
	}
	client.SetRateLimit(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)

	service := matching.NewService(client, sessions, logger)

	return &env{
		config:  config,
		logger:  logger,
		session: sessions,
		client:  client,
		service: service,
		dashboard: dashboard.New(service, matching.SmartOptions{
			TargetCompany: config.Matching.TargetCompany,
			MaxMatches:    config.Matching.MaxMatches,
		}, logger),
	}
}

func resolveToken(config *Config) (string, error) {
	if config == nil {
		return "", fmt.Errorf("config is required")
	}

	tokenFile := strings.TrimSpace(config.TokenFile)
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("token-file"))
	}

	return secrets.Load(secrets.Source{
		Name:  "api token",
		Value: config.Token,
		File:  tokenFile,
	})
}

func prepareFilters(config *MatchingConfig, logger *zap.Logger) *filtering.Filtering {
	steps := []filtering.Filter{
		filtering.NewMinScore(config.MinScore),
		filtering.NewExcludedEmployees(config.ExcludeEmployees),
		filtering.NewExcludeFile(config.ExcludeFile),
	}

	return filtering.New(steps, logger)
}

func newDrafter(ctx context.Context, cfg *AIConfig, baseLogger *zap.Logger) (ai.Drafter, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("ai drafts are disabled (set ai.enabled)")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := baseLogger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	drafterLogger := logger.WithFields(baseLogger, logger.AIFields("gemini", generator.Model())...)

	return gemini.NewDrafter(generator, cfg.Gemini.MaxLogLength, drafterLogger), nil
}
