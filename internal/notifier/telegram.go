package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// ErrNotConfigured is returned when Telegram credentials are missing.
var ErrNotConfigured = errors.New("notifier: telegram bot token or chat id not set")

var eventEmoji = map[string]string{
	"stopped":          "\U0001F534",
	"needs_input":      "\U0001F7E1",
	"needs_permission": "\U0001F7E0",
	"session_started":  "\U0001F7E2",
	"scope_warning":    "⚠️",
	"running":          "\U0001F535",
}

const defaultEmoji = "ℹ️"

var markdownSpecial = regexp.MustCompile(`([_*\[\]()~` + "`" + `>#+\-=|{}.!\\])`)

// EscapeMarkdownV2 escapes Telegram MarkdownV2 special characters.
func EscapeMarkdownV2(s string) string {
	return markdownSpecial.ReplaceAllString(s, `\$1`)
}

// Telegram sends a formatted message through the Bot API.
type Telegram struct {
	Token  string
	ChatID string
	// APIURL is the Bot API base, e.g. https://api.telegram.org.
	APIURL string
	Client *http.Client
	// Location formats the message time. Nil means local time.
	Location *time.Location
}

// Format renders p as a MarkdownV2 message.
func (t *Telegram) Format(p Payload) string {
	event := firstNonEmpty(p.String("event"), "unknown")
	emoji, ok := eventEmoji[event]
	if !ok {
		emoji = defaultEmoji
	}

	project := EscapeMarkdownV2(firstNonEmpty(p.String("project"), p.String("cwd"), "unknown"))
	lines := []string{
		fmt.Sprintf("%s *CDD \\| %s*", emoji, project),
		"",
		"*Status:* " + EscapeMarkdownV2(firstNonEmpty(p.String("status"), strings.ToUpper(event))),
	}

	if phase := p.String("phase"); phase != "" {
		line := "*Phase:* " + EscapeMarkdownV2(phase)
		if module := p.String("module"); module != "" {
			line += " \\| *Module:* " + EscapeMarkdownV2(module)
		}
		if mc := p.String("modules_complete"); mc != "" {
			line += " \\(" + EscapeMarkdownV2(mc) + "\\)"
		}
		lines = append(lines, line)
	}

	if last := p.String("last_response"); last != "" {
		lines = append(lines, "", "_"+EscapeMarkdownV2(Truncate(last, MessageCap))+"_")
	}

	if ts, err := time.Parse(time.RFC3339Nano, p.String("updated_at")); err == nil {
		loc := t.Location
		if loc == nil {
			loc = time.Local
		}
		lines = append(lines, "", EscapeMarkdownV2(ts.In(loc).Format("03:04 PM")))
	}
	return strings.Join(lines, "\n")
}

// Endpoint returns the sendMessage URL.
func (t *Telegram) Endpoint() string {
	return strings.TrimRight(t.APIURL, "/") + "/bot" + t.Token + "/sendMessage"
}

// Deliver makes one sendMessage attempt.
func (t *Telegram) Deliver(ctx context.Context, p Payload) error {
	if t.Token == "" || t.ChatID == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       t.Format(p),
		"parse_mode": "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("encoding telegram message: %w", err)
	}
	return postJSON(ctx, t.Client, t.Endpoint(), body)
}
