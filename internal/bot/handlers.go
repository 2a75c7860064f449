package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rigwild/raspberry-instock-check/internal/repository"
	"gopkg.in/telebot.v4"
)

const mismatchListLimit = 5

// startHandler process command /start.
func (b *Bot) startHandler(ctx telebot.Context) error {
	b.log.Info("User started the bot", "username", ctx.Sender().Username)

	watching := "all models"
	if len(b.opts.Models) > 0 {
		watching = strings.Join(b.opts.Models, ", ")
	}

	if err := ctx.Send("Hello! I post Raspberry Pi stock changes for " + watching + "."); err != nil {
		return fmt.Errorf("failed to send greeting message: %w", err)
	}

	return nil
}

// statusHandler process command /status.
func (b *Bot) statusHandler(ctx telebot.Context) error {
	reply := "No validated stock data yet."
	if b.opts.Views != nil {
		if view, ok := b.opts.Views.Latest(); ok {
			reply = fmt.Sprintf(
				"%d tracked listings in stock out of %d.\nLast update: %s",
				view.Available, len(view.Items), view.UpdatedAt.UTC().Format(time.RFC1123),
			)
		}
	}

	if err := ctx.Send(reply); err != nil {
		return fmt.Errorf("failed to send status message: %w", err)
	}

	return nil
}

// fromOperator reports whether the update comes from the operator chat.
func (b *Bot) fromOperator(ctx telebot.Context) bool {
	if ctx.Chat() == nil || ctx.Chat().ID != b.opts.AdminChatID {
		b.log.Warn("Operator command from another chat", "username", ctx.Sender().Username)
		return false
	}
	return true
}

// mismatchesHandler lists the latest validator diagnostics. Operator chat only.
func (b *Bot) mismatchesHandler(ctx telebot.Context) error {
	if !b.fromOperator(ctx) {
		return nil
	}
	if b.opts.Mismatches == nil {
		return ctx.Send("Diagnostics storage is disabled.")
	}

	list, err := b.opts.Mismatches.ListMismatches(context.Background(), mismatchListLimit)
	if err != nil {
		b.log.Error("Failed to list mismatches", "op", "bot.mismatchesHandler", "error", err)
		return ctx.Send("Failed to read diagnostics.")
	}
	if len(list) == 0 {
		return ctx.Send("No mismatching payloads recorded.")
	}

	var sb strings.Builder
	sb.WriteString("Latest mismatching payloads:")
	for _, m := range list {
		fmt.Fprintf(&sb, "\n%s %s (%d / %d bytes)",
			m.CapturedAt.UTC().Format(time.DateTime), m.ID, m.SizeA, m.SizeB)
	}

	if err = ctx.Send(sb.String()); err != nil {
		return fmt.Errorf("failed to send mismatch list: %w", err)
	}

	return nil
}

// mismatchHandler process command /mismatch <id>: it sends both payloads of one record
// as documents. Operator chat only.
func (b *Bot) mismatchHandler(ctx telebot.Context) error {
	const opn = "bot.mismatchHandler"

	if !b.fromOperator(ctx) {
		return nil
	}
	if b.opts.Mismatches == nil {
		return ctx.Send("Diagnostics storage is disabled.")
	}

	args := ctx.Args()
	if len(args) != 1 || args[0] == "" {
		return ctx.Send("Usage: /mismatch <id>")
	}
	id := args[0]

	m, err := b.opts.Mismatches.GetMismatch(context.Background(), id)
	if errors.Is(err, repository.ErrMismatchNotFound) {
		return ctx.Send("No mismatch with id " + id + ".")
	}
	if err != nil {
		b.log.Error("Failed to read mismatch", "op", opn, "id", id, "error", err)
		return ctx.Send("Failed to read diagnostics.")
	}

	docs := []struct {
		name    string
		payload []byte
	}{
		{name: m.ID + "-a.txt", payload: m.PayloadA},
		{name: m.ID + "-b.txt", payload: m.PayloadB},
	}
	for _, d := range docs {
		doc := &telebot.Document{
			File:     telebot.FromReader(bytes.NewReader(d.payload)),
			FileName: d.name,
			Caption:  fmt.Sprintf("%s (%d bytes)", d.name, len(d.payload)),
		}
		if err = ctx.Send(doc); err != nil {
			return fmt.Errorf("failed to send payload %s: %w", d.name, err)
		}
	}

	return nil
}
