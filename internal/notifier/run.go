package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/papapumpkin/cdd/internal/config"
	"github.com/papapumpkin/cdd/internal/debuglog"
	"github.com/papapumpkin/cdd/internal/hookinput"
	"github.com/papapumpkin/cdd/internal/project"
)

// ErrUnknownBackend is returned by New for an unsupported type.
var ErrUnknownBackend = errors.New("notifier: unknown back-end")

// Backend performs one delivery for a payload.
type Backend interface {
	Deliver(ctx context.Context, p Payload) error
}

// New returns the built-in back-end named kind.
func New(kind string, settings config.Settings) (Backend, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout()}
	switch kind {
	case "webhook":
		return &Webhook{Client: client}, nil
	case "telegram":
		return &Telegram{
			Token:  settings.TelegramBotToken,
			ChatID: settings.TelegramChatID,
			APIURL: settings.TelegramAPIURL,
			Client: client,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
}

// Run serves one notifier invocation: it waits for a payload on stdin,
// delivers it with the named back-end and reports nothing back. Missing
// payloads and delivery failures are only logged.
func Run(ctx context.Context, kind string, stdin *os.File, settings config.Settings) {
	backend, err := New(kind, settings)
	if err != nil {
		return
	}

	var p Payload
	if !hookinput.FromFileJSON(stdin, settings.NotifierStdinTimeout(), &p) {
		return
	}

	log := openLog(p.Root(), settings)
	defer log.Close()
	entry := log.Source(kind).WithField("event", p.String("event"))

	ctx, cancel := context.WithTimeout(ctx, settings.HTTPTimeout())
	defer cancel()

	switch err := backend.Deliver(ctx, p); {
	case errors.Is(err, ErrNoURL), errors.Is(err, ErrNotConfigured):
		entry.WithError(err).Debug("skipped")
	case err != nil:
		entry.WithError(err).Warn("delivery failed")
	default:
		entry.Debug("delivered")
	}
}

// openLog opens the project's debug log when the payload names a root and
// debugging is enabled by environment or config.yaml.
func openLog(root string, settings config.Settings) *debuglog.Logger {
	if root == "" {
		return debuglog.Discard()
	}
	enabled := settings.Debug
	if !enabled {
		if doc, ok := project.ReadConfig(root); ok {
			cfg, _ := project.DecodeConfig(doc)
			enabled = cfg.Debug
		}
	}
	return debuglog.Open(root, enabled)
}
