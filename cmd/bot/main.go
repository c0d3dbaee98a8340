package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/eliseohh/reviewbot/internal/bot"
	"github.com/eliseohh/reviewbot/internal/config"
	"github.com/eliseohh/reviewbot/internal/homework"
	"github.com/eliseohh/reviewbot/internal/journal"
	"github.com/eliseohh/reviewbot/internal/logger"
	"github.com/eliseohh/reviewbot/internal/notify"
	"github.com/eliseohh/reviewbot/internal/poller"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// 1. Configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Criticalf("config: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	if !config.CheckTokens(cfg) {
		fmt.Fprintf(os.Stderr, "missing one or more tokens: %s\n", strings.Join(cfg.Missing(), ", "))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Journal (optional)
	var (
		reader   bot.Journal
		recorder poller.Recorder
	)
	if cfg.JournalPath != "" {
		db, err := journal.Open(cfg.JournalPath)
		if err != nil {
			logger.Criticalf("journal: %v", err)
			os.Exit(1)
		}
		defer db.Close()
		reader, recorder = db, db
		logger.Infof("journal at %s", cfg.JournalPath)
	}

	// 3. Bot
	b, err := bot.New(bot.Config{
		Token:   cfg.TelegramToken,
		ChatID:  cfg.ChatID,
		Offline: !cfg.CommandsEnabled,
	}, reader)
	if err != nil {
		logger.Criticalf("bot init failed: %v", err)
		os.Exit(1)
	}
	if cfg.CommandsEnabled {
		go b.Start()
		defer b.Stop()
	}

	// 4. Poll loop
	client := homework.NewClient(cfg.Endpoint, cfg.PracticumToken, cfg.RequestTimeout)
	p := poller.New(client, notify.NewTelegram(b.API(), cfg.ChatID), cfg.PollInterval)
	if recorder != nil {
		p.SetRecorder(recorder)
	}

	p.Run(ctx, poller.NewState(time.Now()))
	logger.Infof("shutting down")
}
