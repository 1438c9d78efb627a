package notifier

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	exact := strings.Repeat("a", MessageCap)
	over := strings.Repeat("b", MessageCap+1)

	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"empty", "", 10, ""},
		{"short", "hello", 10, "hello"},
		{"exactly at cap", exact, MessageCap, exact},
		{"one over cap", over, MessageCap, strings.Repeat("b", MessageCap) + Ellipsis},
		{"excerpt cap", strings.Repeat("c", ExcerptCap+20), ExcerptCap, strings.Repeat("c", ExcerptCap) + Ellipsis},
		{"counts characters not bytes", "héllo wörld", 5, "héllo" + Ellipsis},
		{"multibyte at cap", "日本語", 3, "日本語"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Truncate(tt.in, tt.n); got != tt.want {
				t.Errorf("Truncate(%d chars, %d) = %q (%d chars), want %d chars", len([]rune(tt.in)), tt.n, got, len([]rune(got)), len([]rune(tt.want)))
			}
		})
	}
}

func TestFormatMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Payload
		want string
	}{
		{
			name: "full",
			p: Payload{
				"project": "shop", "status": "STOPPED", "phase": "BUILD",
				"module": "cart", "modules_complete": "2/5", "last_response": "All tests pass.",
			},
			want: "CDD | shop\nStatus: STOPPED\nBUILD | Module: cart | (2/5)\nLast: \"All tests pass.\"",
		},
		{
			name: "fallbacks",
			p:    Payload{"cwd": "/work/shop", "event": "needs_input"},
			want: "CDD | /work/shop\nStatus: needs_input",
		},
		{
			name: "nothing",
			p:    Payload{},
			want: "CDD | unknown\nStatus: unknown",
		},
		{
			name: "phase without module",
			p:    Payload{"project": "x", "status": "RUNNING", "phase": "PLANNING", "modules_complete": "0/3"},
			want: "CDD | x\nStatus: RUNNING\nPLANNING | (0/3)",
		},
		{
			name: "null module",
			p:    Payload{"project": "x", "status": "STARTED", "phase": "BUILD", "module": nil},
			want: "CDD | x\nStatus: STARTED\nBUILD",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatMessage(tt.p); got != tt.want {
				t.Errorf("FormatMessage =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestFormatMessage_TruncatesLastResponse(t *testing.T) {
	t.Parallel()

	msg := FormatMessage(Payload{"last_response": strings.Repeat("x", 1000)})
	want := `Last: "` + strings.Repeat("x", MessageCap) + Ellipsis + `"`
	if !strings.HasSuffix(msg, want) {
		t.Errorf("message does not end with a %d-char excerpt:\n%s", MessageCap, msg)
	}
}

func TestExpandTemplate(t *testing.T) {
	t.Parallel()

	p := Payload{
		"event":   "stopped",
		"project": "shop",
		"count":   float64(3),
		"ok":      true,
		"module":  nil,
		"notifier_config": map[string]any{
			"url":  "https://example.com",
			"tags": []any{"a", "b"},
		},
	}

	tests := []struct {
		tpl  string
		want string
	}{
		{"{{event}}", "stopped"},
		{"[{{project}}] {{event}}", "[shop] stopped"},
		{"{{notifier_config.url}}", "https://example.com"},
		{"{{notifier_config.tags}}", `["a","b"]`},
		{"{{count}} {{ok}}", "3 true"},
		{"{{missing}}|{{module}}|{{notifier_config.nope.deeper}}", "||"},
		{"{{ event }}", "{{ event }}"},
		{"{{message}}", "CDD | shop\nStatus: stopped"},
		{"no placeholders", "no placeholders"},
	}

	for _, tt := range tests {
		if got := ExpandTemplate(tt.tpl, p); got != tt.want {
			t.Errorf("ExpandTemplate(%q) = %q, want %q", tt.tpl, got, tt.want)
		}
	}
}

func TestExpandJSONTemplate_EscapesValues(t *testing.T) {
	t.Parallel()

	p := Payload{"project": `say "hi"`, "status": "STOPPED"}
	got := ExpandJSONTemplate(`{"text": "{{message}}"}`, p)
	want := `{"text": "CDD | say \"hi\"\nStatus: STOPPED"}`
	if got != want {
		t.Errorf("ExpandJSONTemplate = %s, want %s", got, want)
	}
}

func TestPayload_Lookup(t *testing.T) {
	t.Parallel()

	p := Payload{"a": map[string]any{"b": map[string]any{"c": "deep"}}, "s": "x"}
	if v, ok := p.Lookup("a.b.c"); !ok || v != "deep" {
		t.Errorf("a.b.c = %v, %v", v, ok)
	}
	if _, ok := p.Lookup("s.t"); ok {
		t.Error("lookup through a scalar should fail")
	}
	if _, ok := p.Lookup("a.x"); ok {
		t.Error("missing key should fail")
	}
}
