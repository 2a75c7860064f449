package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rigwild/raspberry-instock-check/internal/models"
	"gopkg.in/telebot.v4"
)

var ErrNoChat = errors.New("no chat configured")

// Options holds the chats and read-only sources the bot works with.
type Options struct {
	ChatID      int64
	AdminChatID int64
	// Models are the searched SKU prefixes; empty means all models.
	Models     []string
	Views      ViewSource
	Mismatches MismatchLister
}

// Bot contains the bot API instance and other information.
// It is both the alert channel and the operator channel.
type Bot struct {
	bot  API
	log  *slog.Logger
	opts Options
}

func NewBot(log *slog.Logger, token string, poller time.Duration, opts Options) (*Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poller},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on acount", "account", bot.Me.Username)

	return newBot(bot, log, opts), nil
}

func newBot(api API, log *slog.Logger, opts Options) *Bot {
	if opts.AdminChatID == 0 {
		opts.AdminChatID = opts.ChatID
	}
	botInstance := &Bot{bot: api, log: log, opts: opts}

	botInstance.registerRoutes()

	return botInstance
}

// Start launches the bot to listen for updates.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// Send posts a Markdown alert to the alert chat and returns its handle for later edits.
func (b *Bot) Send(ctx context.Context, text string) (models.MessageHandle, error) {
	const opn = "bot.Send"

	if b.opts.ChatID == 0 {
		return models.MessageHandle{}, fmt.Errorf("%s: %w", opn, ErrNoChat)
	}
	if err := ctx.Err(); err != nil {
		return models.MessageHandle{}, fmt.Errorf("%s: %w", opn, err)
	}

	msg, err := b.bot.Send(telebot.ChatID(b.opts.ChatID), text, telebot.ModeMarkdown, telebot.NoPreview)
	if err != nil {
		return models.MessageHandle{}, fmt.Errorf("%s: failed to send alert: %w", opn, err)
	}

	handle := models.MessageHandle{ChatID: b.opts.ChatID, MessageID: strconv.Itoa(msg.ID)}
	if msg.Chat != nil {
		handle.ChatID = msg.Chat.ID
	}
	return handle, nil
}

// Edit replaces the body of an alert sent earlier.
func (b *Bot) Edit(ctx context.Context, handle models.MessageHandle, text string) error {
	const opn = "bot.Edit"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	stored := &telebot.StoredMessage{MessageID: handle.MessageID, ChatID: handle.ChatID}
	if _, err := b.bot.Edit(stored, text, telebot.ModeMarkdown, telebot.NoPreview); err != nil {
		return fmt.Errorf("%s: failed to edit message %s: %w", opn, handle.MessageID, err)
	}
	return nil
}

// Notify sends a plain text notice to the operator chat.
func (b *Bot) Notify(ctx context.Context, text string) error {
	const opn = "bot.Notify"

	if b.opts.AdminChatID == 0 {
		return fmt.Errorf("%s: %w", opn, ErrNoChat)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	if _, err := b.bot.Send(telebot.ChatID(b.opts.AdminChatID), text, telebot.NoPreview); err != nil {
		return fmt.Errorf("%s: failed to notify operator: %w", opn, err)
	}
	return nil
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	// Public routes.
	b.bot.Handle("/start", b.startHandler)
	b.bot.Handle("/status", b.statusHandler)

	// Operator routes.
	b.bot.Handle("/mismatches", b.mismatchesHandler)
	b.bot.Handle("/mismatch", b.mismatchHandler)
}
