package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/user/crewdesk/internal/api"
	"github.com/user/crewdesk/internal/channel"
	"github.com/user/crewdesk/internal/notify"
	"github.com/user/crewdesk/internal/schedule"
	"github.com/user/crewdesk/internal/session"
	"github.com/user/crewdesk/internal/tui"
)

func init() {
	rootCmd.AddCommand(consoleCmd)
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the interactive console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		// The alternate screen owns the terminal; logs go to a file.
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "console.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logFile.Close()
		slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

		client := api.New(cfg.Backend.BaseURL, cfg.Backend.Token)

		var sess *session.Session
		ch := channel.New(cfg.SocketURL(), cfg.Backend.Token,
			func(topic string) { sess.HandleChangeNotice(context.Background(), topic) },
			func(err error) { sess.HandleChannelError(err) },
		)
		sess = session.New(client, ch, cfg.Backend.SenderID)
		defer sess.Close()

		if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
			tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
			if err != nil {
				return fmt.Errorf("telegram sink: %w", err)
			}
			reg := notify.NewRegistry()
			reg.Register("update_", tg.Send)
			sess.SetNotifier(func(topic, text string) {
				if err := reg.Notify(topic, text); err != nil {
					slog.Debug("alert not delivered", "topic", topic, "error", err)
				}
			})
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := ch.Connect(ctx); err != nil {
			return fmt.Errorf("push channel: %w", err)
		}
		defer ch.Close()

		if err := sess.LoadAgents(ctx); err != nil {
			slog.Warn("initial agent load failed", "error", err)
		}

		refresher := schedule.New(cfg.Refresh.Schedule, func() {
			if agent := sess.ActiveAgent(); agent != nil {
				sess.RefreshAll(context.Background(), agent.ID)
			}
		})
		if err := refresher.Start(); err != nil {
			return err
		}
		defer refresher.Stop()

		program := tea.NewProgram(tui.New(sess), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("console: %w", err)
		}
		return nil
	},
}
