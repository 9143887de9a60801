package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hocy1609/spybot"
	"github.com/hocy1609/spybot/internal/config"
	"github.com/hocy1609/spybot/notify/slack"
	"github.com/hocy1609/spybot/notify/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the spybot server",
	Long:  "Start the spybot API server that runs the log monitor and the craft controller.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load config file into environment (non-destructive).
	loadConfigFileIntoEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	builder := spybot.NewBuilder().WithConfig(spybot.Config{
		ServerAddr:   cfg.ServerAddr,
		DataDir:      cfg.DataDir,
		DatabasePath: cfg.DatabasePath,
		LogPath:      cfg.LogPath,
		Webhooks:     cfg.Webhooks,
		Keywords:     cfg.Keywords,
		TriggerKey:   cfg.TriggerKey,
		ActuatorTool: cfg.ActuatorTool,
		WindowTarget: cfg.WindowTarget,
	})

	if cfg.SlackEnabled() {
		builder.WithChannel(slack.New(cfg.SlackBotToken, cfg.SlackChannel))
	}
	if cfg.TelegramEnabled() {
		tg, err := telegram.New(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("Telegram channel disabled: %v", err)
		} else {
			builder.WithChannel(tg)
		}
	}

	app, err := builder.Build()
	if err != nil {
		return fmt.Errorf("building app: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	return app.Start(ctx)
}

func loadConfigFileIntoEnv() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	path := filepath.Join(home, ".spybot", "config.env")
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
