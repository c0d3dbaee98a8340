package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tele "gopkg.in/telebot.v3"

	"github.com/eliseohh/reviewbot/internal/journal"
	"github.com/eliseohh/reviewbot/internal/logger"
)

const (
	defaultHistory = 5
	maxHistory     = 20
)

// Journal is the read side of the audit journal.
type Journal interface {
	Summary(ctx context.Context) (journal.Summary, error)
	Recent(ctx context.Context, limit int) ([]journal.Notification, error)
}

type Bot struct {
	api     *tele.Bot
	journal Journal
	cfg     Config
	now     func() time.Time
}

type Config struct {
	Token  string
	ChatID string
	// Offline skips the getMe call; commands cannot be received.
	Offline bool
}

func New(cfg Config, j Journal) (*Bot, error) {
	pref := tele.Settings{
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		Offline: cfg.Offline,
		OnError: func(err error, c tele.Context) {
			logger.Errorf("telegram: %v", err)
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	return &Bot{api: b, journal: j, cfg: cfg, now: time.Now}, nil
}

// API exposes the underlying telebot bot for sending.
func (b *Bot) API() *tele.Bot {
	return b.api
}

// Start registers the commands and blocks receiving updates until Stop.
func (b *Bot) Start() {
	b.register()
	logger.Infof("bot started: @%s", b.api.Me.Username)
	b.api.Start()
}

func (b *Bot) Stop() {
	b.api.Stop()
}

func (b *Bot) register() {
	b.api.Handle("/start", b.handleStart)
	b.api.Handle("/status", b.handleStatus)
	b.api.Handle("/history", b.handleHistory)
}

// allowed reports whether the update comes from the configured chat.
func (b *Bot) allowed(c tele.Context) bool {
	chat := c.Chat()
	if chat == nil {
		return false
	}
	if strconv.FormatInt(chat.ID, 10) == b.cfg.ChatID {
		return true
	}
	return chat.Username != "" && "@"+chat.Username == b.cfg.ChatID
}

func (b *Bot) handleStart(c tele.Context) error {
	if !b.allowed(c) {
		return nil
	}
	return c.Send("👋 Watching homework reviews. Use /status or /history.")
}

func (b *Bot) handleStatus(c tele.Context) error {
	if !b.allowed(c) {
		return nil
	}
	if b.journal == nil {
		return c.Send("Journal is disabled.")
	}

	s, err := b.journal.Summary(context.Background())
	if err != nil {
		logger.Errorf("status: %v", err)
		return c.Send("⛔ Error: journal unavailable.")
	}
	return c.Send(b.renderStatus(s))
}

func (b *Bot) handleHistory(c tele.Context) error {
	if !b.allowed(c) {
		return nil
	}
	if b.journal == nil {
		return c.Send("Journal is disabled.")
	}

	limit := defaultHistory
	if args := c.Args(); len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return c.Send("Usage: /history [count]")
		}
		limit = min(n, maxHistory)
	}

	items, err := b.journal.Recent(context.Background(), limit)
	if err != nil {
		logger.Errorf("history: %v", err)
		return c.Send("⛔ Error: journal unavailable.")
	}
	if len(items) == 0 {
		return c.Send("No notifications yet.")
	}
	return c.Send(b.renderHistory(items))
}

func (b *Bot) renderStatus(s journal.Summary) string {
	if s.Polls == 0 {
		return "No polls yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Polls: %d (%d failed)\n", s.Polls, s.FailedPolls)
	fmt.Fprintf(&sb, "Notifications: %d\n", s.Notifications)
	fmt.Fprintf(&sb, "Last poll: %s", humanize.RelTime(s.LastPoll.StartedAt, b.now(), "ago", "from now"))
	if s.LastPoll.Error != "" {
		fmt.Fprintf(&sb, " (failed: %s)", s.LastPoll.ErrorKind)
	}
	sb.WriteString("\n")
	if s.LastStatus.Text != "" {
		fmt.Fprintf(&sb, "Last status: %s", s.LastStatus.Text)
	}
	return strings.TrimSpace(sb.String())
}

func (b *Bot) renderHistory(items []journal.Notification) string {
	var sb strings.Builder
	for _, n := range items {
		mark := "✅"
		if !n.Delivered {
			mark = "❌"
		}
		fmt.Fprintf(&sb, "%s [%s] %s: %s\n", mark, n.Kind,
			humanize.RelTime(n.SentAt, b.now(), "ago", "from now"), n.Text)
	}
	return strings.TrimSpace(sb.String())
}
