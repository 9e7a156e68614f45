// Package main contains the entrypoint for the comment answering bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/commentqa/internal/article"
	"github.com/edgard/commentqa/internal/bot"
	"github.com/edgard/commentqa/internal/bot/handlers"
	"github.com/edgard/commentqa/internal/bot/tasks"
	"github.com/edgard/commentqa/internal/config"
	"github.com/edgard/commentqa/internal/database"
	"github.com/edgard/commentqa/internal/llm"
	"github.com/edgard/commentqa/internal/logger"
	"github.com/edgard/commentqa/internal/qa"
	"github.com/edgard/commentqa/internal/telegram"
	"github.com/edgard/commentqa/internal/thread"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires config, logger, store, language model, pipeline, Telegram client
// and scheduler, blocks until shutdown and returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	oracle, err := llm.New(ctx, cfg.LLM.OracleConfig(), log)
	if err != nil {
		log.Error("Failed to initialize language model client", "provider", cfg.LLM.Provider, "error", err)
		return 1
	}
	oracle = llm.WithBreaker(oracle, cfg.LLM.BreakerConfig(), log)

	var synthOpts []qa.SynthesizerOption
	if cfg.LLM.PlainText {
		synthOpts = append(synthOpts, qa.WithPlainText())
	}

	// The default handler needs the pipeline, which needs the Telegram client
	// for replies; it is assigned below, before the listener starts.
	var groupHandler tgbot.HandlerFunc
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			groupHandler(ctx, b, update)
		}),
		tgbot.WithErrorsHandler(func(err error) {
			log.Error("Telegram client error", "error", err)
		}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	sw := thread.NewSwitch(cfg.Bot.EnabledOnStart)
	orchestrator := thread.NewOrchestrator(thread.Deps{
		Logger:      log,
		Store:       store,
		Classifier:  qa.NewClassifier(oracle, cfg.LLM.ConfidenceThreshold, log),
		Synthesizer: qa.NewSynthesizer(oracle, log, synthOpts...),
		Fetcher: article.NewFetcher(log,
			article.WithHTTPClient(&http.Client{Timeout: cfg.Article.Timeout}),
			article.WithUserAgent(cfg.Article.UserAgent),
			article.WithMaxBodyBytes(cfg.Article.MaxBodyBytes),
		),
		Extractor: article.NewExtractor(log),
		Replier:   telegram.NewReplier(tg, log),
		Switch:    sw,
		Bot: thread.BotIdentity{
			ID:       cfg.Telegram.BotInfo.ID,
			Username: cfg.Telegram.BotInfo.Username,
		},
	}, cfg.Thread.PipelineConfig())

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Pipeline: orchestrator,
		Switch:   sw,
	}
	groupHandler = handlers.NewGroupMessageHandler(hDeps)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, cfg.Location(), tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, store, tg, sched)

	if cfg.Bot.NotifyAdminsOnStart {
		telegram.NotifyAdmins(ctx, tg, log, cfg.Telegram.AdminIDs, cfg.Messages.Startup)
	}

	log.Info("Starting bot...", "enabled", sw.Enabled())
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
