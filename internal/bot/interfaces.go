package bot

import (
	"context"

	"github.com/rigwild/raspberry-instock-check/internal/models"
	"gopkg.in/telebot.v4"
)

type API interface {
	// Handle lets you set the handler for some command name or one of the supported endpoints. It also applies middleware if such passed to the function.
	Handle(endpoint interface{}, h telebot.HandlerFunc, m ...telebot.MiddlewareFunc)
	// Start brings bot into motion by consuming incoming updates (see Bot.Updates channel).
	Start()
	// Stop gracefully shuts the poller down.
	Stop()

	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	// Edit replaces the content of a message sent earlier.
	Edit(msg telebot.Editable, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// ViewSource exposes the latest validated listing set.
type ViewSource interface {
	Latest() (models.View, bool)
}

// MismatchLister reads the stored validator diagnostics.
type MismatchLister interface {
	ListMismatches(ctx context.Context, limit int) ([]models.Mismatch, error)
	GetMismatch(ctx context.Context, id string) (*models.Mismatch, error)
}
