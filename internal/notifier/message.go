// Package notifier implements the built-in notification back-ends served by
// `cdd notifier <type>`. Each back-end reads one dispatch payload, makes a
// single delivery attempt and exits.
package notifier

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Truncation caps, in characters.
const (
	MessageCap = 300
	ExcerptCap = 500
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// Truncate cuts s to n characters and appends Ellipsis when s is longer
// than n. Text of exactly n characters is returned unchanged.
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + Ellipsis
}

// Payload is the decoded dispatch payload.
type Payload map[string]any

// Lookup resolves a dotted path such as "notifier_config.url".
func (p Payload) Lookup(path string) (any, bool) {
	var cur any = map[string]any(p)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the field as a string, or "" when missing or not a string.
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Config returns the embedded notifier_config object.
func (p Payload) Config() map[string]any {
	m, _ := p["notifier_config"].(map[string]any)
	return m
}

// ConfigString returns a string field of notifier_config.
func (p Payload) ConfigString(key string) string {
	s, _ := p.Config()[key].(string)
	return s
}

// Root returns the .cdd directory the dispatch came from.
func (p Payload) Root() string {
	return p.String("cdd_root")
}

// Without returns a copy of p without the named keys.
func (p Payload) Without(keys ...string) Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// FormatMessage renders the plain-text summary used for {{message}}:
//
//	CDD | <project>
//	Status: <status>
//	<phase> | Module: <module> | (<x/y>)
//	Last: "<last response>"
func FormatMessage(p Payload) string {
	lines := []string{
		"CDD | " + firstNonEmpty(p.String("project"), p.String("cwd"), "unknown"),
		"Status: " + firstNonEmpty(p.String("status"), p.String("event"), "unknown"),
	}

	phase, module := p.String("phase"), p.String("module")
	if phase != "" || module != "" {
		var parts []string
		if phase != "" {
			parts = append(parts, phase)
		}
		if module != "" {
			parts = append(parts, "Module: "+module)
		}
		if mc := p.String("modules_complete"); mc != "" {
			parts = append(parts, "("+mc+")")
		}
		lines = append(lines, strings.Join(parts, " | "))
	}

	if last := p.String("last_response"); last != "" {
		lines = append(lines, `Last: "`+Truncate(last, MessageCap)+`"`)
	}
	return strings.Join(lines, "\n")
}

var placeholder = regexp.MustCompile(`\{\{(\w+(?:\.\w+)*)\}\}`)

// ExpandTemplate replaces {{field}} and {{a.b}} placeholders with values
// from p. {{message}} expands to FormatMessage. Missing and null values
// expand to "", objects and arrays to their JSON encoding.
func ExpandTemplate(tpl string, p Payload) string {
	return expand(tpl, p, false)
}

// ExpandJSONTemplate is ExpandTemplate for templates whose placeholders sit
// inside JSON strings: every substituted value is JSON-string escaped.
func ExpandJSONTemplate(tpl string, p Payload) string {
	return expand(tpl, p, true)
}

func expand(tpl string, p Payload, escape bool) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		var s string
		if key == "message" {
			s = FormatMessage(p)
		} else {
			v, _ := p.Lookup(key)
			s = render(v)
		}
		if escape {
			return escapeJSONString(s)
		}
		return s
	})
}

func render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func escapeJSONString(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return string(data[1 : len(data)-1])
}
