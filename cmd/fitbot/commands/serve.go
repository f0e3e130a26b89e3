// ABOUTME: Serve command runs the Telegram bot and its health endpoints
// ABOUTME: Wires config, storage, OpenAI client, orchestrator, dispatcher, and poller
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fitai/intake-bot/internal/api"
	"github.com/fitai/intake-bot/internal/assistant"
	"github.com/fitai/intake-bot/internal/config"
	"github.com/fitai/intake-bot/internal/core"
	"github.com/fitai/intake-bot/internal/dispatch"
	"github.com/fitai/intake-bot/internal/logging"
	"github.com/fitai/intake-bot/internal/transport/telegram"
	"github.com/fitai/intake-bot/internal/util"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram intake bot",
		Long: `Run the Telegram intake bot.

Long-polls Telegram for updates, walks new users through intake,
and relays ongoing chat to the configured OpenAI assistant.
A health server answers /healthz and /readyz on HTTP_ADDR
(default :8080; HTTP_ADDR=off disables it).

Required environment (or .env):
  TELEGRAM_BOT_KEY   Telegram bot token
  OPENAI_API_KEY     OpenAI API key
  ASSISTANT_ID       OpenAI assistant id`,
		Example: `  fitbot serve
  HTTP_ADDR=:9090 LOG_FORMAT=json fitbot serve`,
		RunE: runServe,
	}

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireServe(); err != nil {
		return err
	}

	logger, err := logging.Setup(logLevel(cfg.LogLevel), cfg.LogFormat)
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing storage")
		}
	}()

	client, err := assistant.NewClient(assistantConfig(cfg))
	if err != nil {
		return fmt.Errorf("initializing assistant client: %w", err)
	}

	bot, err := telegram.NewBot(cfg.TelegramToken, logger)
	if err != nil {
		return fmt.Errorf("connecting to Telegram: %w", err)
	}

	sender := telegram.NewSender(bot, telegram.SenderConfig{
		Rate:  cfg.TelegramSendRate,
		Burst: cfg.TelegramSendBurst,
	}, logger)

	orchestrator := core.NewOrchestrator(core.OrchestratorConfig{
		Store:     store,
		Assistant: client,
		Sender:    sender,
		Poll: util.PollConfig{
			Interval:    cfg.RunPollInterval,
			MaxInterval: cfg.RunPollMaxInterval,
			Timeout:     cfg.RunTimeout,
		},
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	dispatcher := dispatch.New(gctx, orchestrator.Handle, logger)
	poller := telegram.NewPoller(bot, dispatcher.Dispatch, logger)

	g.Go(func() error {
		defer dispatcher.Close()
		return poller.Run(gctx)
	})

	if cfg.HTTPAddr != "" {
		router := api.NewRouter(api.NewHealthHandler(store, logger))
		g.Go(func() error {
			return api.Serve(gctx, cfg.HTTPAddr, router, logger)
		})
	}

	logger.Info().Str("db", dbPathForLog(cfg)).Msg("fitbot serving")
	err = g.Wait()
	logger.Info().Msg("fitbot stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func assistantConfig(cfg *config.Config) assistant.ClientConfig {
	return assistant.ClientConfig{
		APIKey:         cfg.OpenAIKey,
		AssistantID:    cfg.AssistantID,
		BaseURL:        cfg.OpenAIBaseURL,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		RequestTimeout: cfg.Timeout,
	}
}

// logLevel applies the --verbose and --quiet overrides to the configured level
func logLevel(configured string) string {
	switch {
	case verbose:
		return "debug"
	case quiet:
		return "warn"
	default:
		return configured
	}
}

func dbPathForLog(cfg *config.Config) string {
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	return "default"
}
