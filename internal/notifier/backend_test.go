package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/papapumpkin/cdd/internal/config"
)

type request struct {
	path        string
	contentType string
	body        []byte
	hits        int
}

type captured struct {
	mu   sync.Mutex
	last request
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.last.path = r.URL.Path
		c.last.contentType = r.Header.Get("Content-Type")
		c.last.body = body
		c.last.hits++
		c.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func (c *captured) get() request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func TestWebhook_PostsPayloadWithoutConfig(t *testing.T) {
	t.Parallel()
	srv, c := newCaptureServer(t, http.StatusOK)

	p := Payload{
		"event":           "stopped",
		"project":         "shop",
		"notifier_config": map[string]any{"type": "webhook", "url": srv.URL + "/hook"},
	}
	if err := (&Webhook{Client: srv.Client()}).Deliver(context.Background(), p); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	got := c.get()
	if got.path != "/hook" || got.contentType != "application/json" {
		t.Errorf("path/content-type = %q/%q", got.path, got.contentType)
	}
	var sent map[string]any
	if err := json.Unmarshal(got.body, &sent); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if _, ok := sent["notifier_config"]; ok {
		t.Error("notifier_config must be stripped")
	}
	if sent["event"] != "stopped" || sent["project"] != "shop" {
		t.Errorf("sent = %v", sent)
	}
}

func TestWebhook_Body(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{
			name: "valid JSON after expansion",
			tpl:  `{"chat_id": 42, "text": "{{project}}: {{event}}"}`,
			want: `{"chat_id": 42, "text": "shop: stopped"}`,
		},
		{
			name: "multi-line message is escaped",
			tpl:  `{"text": "{{message}}"}`,
			want: `{"text": "CDD | shop\nStatus: STOPPED"}`,
		},
		{
			name: "not JSON is sent raw",
			tpl:  `event={{event}}`,
			want: `event=stopped`,
		},
	}

	p := Payload{"event": "stopped", "status": "STOPPED", "project": "shop"}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pp := p.Without()
			pp["notifier_config"] = map[string]any{"body_template": tt.tpl}
			body, err := (&Webhook{}).Body(pp)
			if err != nil {
				t.Fatalf("Body: %v", err)
			}
			if string(body) != tt.want {
				t.Errorf("Body = %s, want %s", body, tt.want)
			}
		})
	}
}

func TestWebhook_NoURL(t *testing.T) {
	t.Parallel()

	err := (&Webhook{}).Deliver(context.Background(), Payload{"notifier_config": map[string]any{}})
	if !errors.Is(err, ErrNoURL) {
		t.Errorf("err = %v, want ErrNoURL", err)
	}
}

func TestWebhook_SingleAttemptOnFailure(t *testing.T) {
	t.Parallel()
	srv, c := newCaptureServer(t, http.StatusInternalServerError)

	p := Payload{"notifier_config": map[string]any{"url": srv.URL}}
	err := (&Webhook{Client: srv.Client()}).Deliver(context.Background(), p)

	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Errorf("err = %v, want StatusError 500", err)
	}
	if hits := c.get().hits; hits != 1 {
		t.Errorf("hits = %d, want exactly one attempt", hits)
	}
}

func TestTelegram_Deliver(t *testing.T) {
	t.Parallel()
	srv, c := newCaptureServer(t, http.StatusOK)

	tg := &Telegram{Token: "123:abc", ChatID: "987", APIURL: srv.URL + "/", Client: srv.Client(), Location: time.UTC}
	p := Payload{"event": "stopped", "project": "shop", "status": "STOPPED"}
	if err := tg.Deliver(context.Background(), p); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	got := c.get()
	if got.path != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", got.path)
	}
	var sent map[string]string
	if err := json.Unmarshal(got.body, &sent); err != nil {
		t.Fatalf("body: %v", err)
	}
	if sent["chat_id"] != "987" || sent["parse_mode"] != "MarkdownV2" {
		t.Errorf("sent = %v", sent)
	}
	if !strings.Contains(sent["text"], "*CDD \\| shop*") {
		t.Errorf("text = %q", sent["text"])
	}
}

func TestTelegram_NotConfigured(t *testing.T) {
	t.Parallel()

	err := (&Telegram{ChatID: "1"}).Deliver(context.Background(), Payload{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}

func TestTelegram_ErrorHidesToken(t *testing.T) {
	t.Parallel()

	tg := &Telegram{Token: "secret-token", ChatID: "1", APIURL: "http://127.0.0.1:1", Client: &http.Client{Timeout: time.Second}}
	err := tg.Deliver(context.Background(), Payload{})
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Errorf("error leaks the token: %v", err)
	}
}

func TestTelegram_Format(t *testing.T) {
	t.Parallel()

	tg := &Telegram{Location: time.UTC}
	p := Payload{
		"event":            "needs_permission",
		"project":          "my-shop",
		"status":           "NEEDS_PERMISSION",
		"phase":            "BUILD",
		"module":           "cart_v2",
		"modules_complete": "1/3",
		"last_response":    "Run (tests)!",
		"updated_at":       "2026-05-06T14:07:00.000Z",
	}
	want := strings.Join([]string{
		"\U0001F7E0 *CDD \\| my\\-shop*",
		"",
		"*Status:* NEEDS\\_PERMISSION",
		"*Phase:* BUILD \\| *Module:* cart\\_v2 \\(1/3\\)",
		"",
		"_Run \\(tests\\)\\!_",
		"",
		"02:07 PM",
	}, "\n")
	if got := tg.Format(p); got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}
}

func TestTelegram_FormatDefaults(t *testing.T) {
	t.Parallel()

	got := (&Telegram{}).Format(Payload{"event": "custom_event"})
	want := "ℹ️ *CDD \\| unknown*\n\n*Status:* CUSTOM\\_EVENT"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	t.Parallel()

	in := `_*[]()~` + "`" + `>#+-=|{}.!\`
	got := EscapeMarkdownV2(in)
	for _, r := range in {
		if !strings.Contains(got, `\`+string(r)) {
			t.Errorf("%q not escaped in %q", r, got)
		}
	}
	if EscapeMarkdownV2("plain text 123") != "plain text 123" {
		t.Error("plain text should be unchanged")
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"webhook", "telegram"} {
		if _, err := New(kind, config.Defaults()); err != nil {
			t.Errorf("New(%q): %v", kind, err)
		}
	}
	if _, err := New("pager", config.Defaults()); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("New(pager) err = %v", err)
	}
}

func TestRun_DeliversFromStdinFile(t *testing.T) {
	t.Parallel()
	srv, c := newCaptureServer(t, http.StatusOK)

	root := filepath.Join(t.TempDir(), ".cdd")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "config.yaml"), []byte("debug: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	payload, _ := json.Marshal(map[string]any{
		"event":           "stopped",
		"cdd_root":        root,
		"notifier_config": map[string]any{"type": "webhook", "url": srv.URL},
	})
	in := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(in, payload, 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(in)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	Run(context.Background(), "webhook", f, config.Defaults())

	if hits := c.get().hits; hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
	logData, err := os.ReadFile(filepath.Join(root, "debug.log"))
	if err != nil {
		t.Fatalf("debug.log: %v", err)
	}
	if !strings.Contains(string(logData), "[webhook] delivered") {
		t.Errorf("debug.log = %s", logData)
	}
}
