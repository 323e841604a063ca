package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AviaxMusic/bot"
	"AviaxMusic/cache"
	"AviaxMusic/config"
	"AviaxMusic/core/audio"
	"AviaxMusic/core/autoclean"
	"AviaxMusic/core/call"
	"AviaxMusic/core/engine"
	"AviaxMusic/core/queue"
	"AviaxMusic/core/ytres"
	"AviaxMusic/db"
	"AviaxMusic/logger"
	"AviaxMusic/repository"
	"AviaxMusic/server"
	"AviaxMusic/storage"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aviaxmusic",
	Short: "AviaxMusic streams queued tracks into Telegram voice chats.",
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: "logs/aviax.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
	defer logger.Sync()

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("redis connection failed", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	// Playback history is best-effort: the bot streams fine without mysql.
	var history repository.HistoryRepository
	if err := db.ConnectDB(cfg); err != nil {
		logger.Warn("mysql unavailable, playback history disabled", logger.ErrorField(err))
	} else {
		if err := db.InitDB(); err != nil {
			logger.Warn("schema bootstrap failed", logger.ErrorField(err))
		}
		if err := db.ConnectGormDB(cfg); err != nil {
			logger.Warn("gorm connection failed, playback history disabled", logger.ErrorField(err))
		} else {
			history = repository.NewGormHistoryRepository(db.GormDB)
		}
	}

	archive, err := storage.NewArchive(cfg)
	if err != nil {
		logger.Warn("archive unavailable, downloads will not be cached remotely", logger.ErrorField(err))
	}

	var engines [config.MaxAssistants]engine.VoiceEngine
	for i, session := range cfg.SessionStrings {
		if session == "" {
			continue
		}
		eng, err := engine.NewEngine(session)
		if err != nil {
			logger.Warn("assistant engine unavailable",
				logger.Int("slot", i+1), logger.ErrorField(err))
			continue
		}
		engines[i] = eng
	}

	chats := cache.NewChatCache()
	if err := chats.SetAutoend(context.Background(), cfg.AutoEnd); err != nil {
		logger.Warn("autoend switch init failed", logger.ErrorField(err))
	}
	resolver := ytres.NewResolver(cfg.YouTubeAPIKey, cfg.DownloadsDir, archive)
	hub := server.NewFeedHub()

	caller := call.NewCaller(cfg, call.Deps{
		Engines:    engines,
		Queues:     queue.NewStore(),
		Chats:      chats,
		Resolver:   resolver,
		Transcoder: audio.NewFFmpeg(cfg.FFmpegPath, cfg.PlaybackDir),
		History:    history,
		Feed:       hub,
	})

	tgBot, err := bot.New(cfg, caller, chats, resolver)
	if err != nil {
		logger.Fatal("bot startup failed", logger.ErrorField(err))
	}
	caller.SetMessenger(tgBot.Messenger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	caller.Start(ctx)

	go hub.Run()
	defer hub.Close()

	cleaner := autoclean.NewWatcher(cfg.DownloadsDir, time.Duration(cfg.CleanupTTL)*time.Minute)
	if err := cleaner.Start(); err != nil {
		logger.Warn("downloads watcher unavailable", logger.ErrorField(err))
	} else {
		defer cleaner.Stop()
	}

	go caller.RunAutoendSweep(ctx, 30*time.Second)

	srv := server.New(cfg, caller, chats, history, hub)
	go func() {
		if err := srv.Start(ctx); err != nil {
			logger.Error("status server stopped", logger.ErrorField(err))
		}
	}()

	go tgBot.Run(ctx)
	logger.Info("AviaxMusic started", logger.String("port", cfg.ServerPort))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
