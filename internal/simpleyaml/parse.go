// Package simpleyaml parses the small YAML subset used by .cdd documents.
//
// Supported: `key: value` pairs, nesting by indentation, block lists
// (`- item`) under a blank-valued key, inline lists (`[a, b]`), the `{}` and
// `[]` literals, single or double quoted strings (quotes stripped, no escape
// processing), true/false, null/~/empty as nil, integers, decimals, full-line
// comments and trailing ` #` comments on values. A `- key: value` item starts
// a record; deeper `key: value` lines extend it.
//
// Anything outside the subset degrades to partial output. Parse never fails.
package simpleyaml

import (
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// frame is one entry of the indentation stack. A frame with a non-empty
// list collects `- ` items into m[list].
type frame struct {
	m      *Map
	list   string
	indent int
}

type parser struct {
	lines []string
	stack []frame
}

// Parse converts text into an ordered map. Empty or unparseable input
// yields an empty map.
func Parse(text string) *Map {
	root := newMap()
	if strings.TrimSpace(text) == "" {
		return root
	}
	p := &parser{
		lines: strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"),
		stack: []frame{{m: root, indent: -1}},
	}
	for i := range p.lines {
		p.parseLine(i)
	}
	return root
}

func (p *parser) top() *frame {
	return &p.stack[len(p.stack)-1]
}

func (p *parser) push(f frame) {
	p.stack = append(p.stack, f)
}

// popForKey drops frames that cannot own a key at indent.
func (p *parser) popForKey(indent int) {
	for len(p.stack) > 1 && p.top().indent >= indent {
		p.stack = p.stack[:len(p.stack)-1]
	}
}

// popForItem drops frames that cannot own a list item at indent. A list
// frame at the same indent survives so `- ` lines may align with their key.
func (p *parser) popForItem(indent int) {
	for len(p.stack) > 1 {
		f := p.top()
		if f.indent < indent || (f.indent == indent && f.list != "") {
			return
		}
		p.stack = p.stack[:len(p.stack)-1]
	}
}

// lineShape splits a raw line into indentation and content. ok is false for
// blank and comment-only lines.
func lineShape(raw string) (indent int, content string, ok bool) {
	trimmed := strings.TrimRight(raw, " \t\r")
	content = strings.TrimLeft(trimmed, " \t")
	if content == "" || strings.HasPrefix(content, "#") {
		return 0, "", false
	}
	return len(trimmed) - len(content), content, true
}

func isItem(content string) bool {
	return content == "-" || strings.HasPrefix(content, "- ")
}

func (p *parser) parseLine(i int) {
	indent, content, ok := lineShape(p.lines[i])
	if !ok {
		return
	}

	if isItem(content) {
		rest := strings.TrimPrefix(content, "-")
		item := strings.TrimLeft(rest, " \t")
		// Column where the item body starts, used as the indent of a record's
		// first key.
		col := indent + 1 + len(rest) - len(item)
		p.parseItem(i, indent, col, strings.TrimSpace(item))
		return
	}

	key, value, ok := splitKey(content)
	if !ok {
		return
	}
	p.popForKey(indent)
	p.assign(i, p.top().m, key, value, indent)
}

func (p *parser) parseItem(i, indent, col int, content string) {
	p.popForItem(indent)
	f := p.top()
	if f.list == "" {
		// Stray item with no owning list.
		return
	}

	if key, value, ok := splitItemKey(content); ok {
		rec := newMap()
		appendItem(f.m, f.list, rec)
		p.push(frame{m: rec, indent: indent + 1})
		p.assign(i, rec, key, value, col)
		return
	}
	appendItem(f.m, f.list, parseValue(content))
}

func appendItem(m *Map, key string, v any) {
	list, _ := m.values[key].([]any)
	m.set(key, append(list, v))
}

// assign stores key in m. A blank value is resolved by looking at the next
// content line: a `- ` line makes it a list, a deeper line a nested map,
// anything else leaves it nil.
func (p *parser) assign(i int, m *Map, key, value string, indent int) {
	if value != "" {
		m.set(key, parseValue(value))
		return
	}

	nextIndent, nextContent, ok := p.peek(i + 1)
	switch {
	case ok && isItem(nextContent) && nextIndent >= indent:
		m.set(key, []any{})
		p.push(frame{m: m, list: key, indent: indent})
	case ok && nextIndent > indent:
		child := newMap()
		m.set(key, child)
		p.push(frame{m: child, indent: indent})
	default:
		m.set(key, nil)
	}
}

func (p *parser) peek(start int) (int, string, bool) {
	for j := start; j < len(p.lines); j++ {
		if indent, content, ok := lineShape(p.lines[j]); ok {
			return indent, content, true
		}
	}
	return 0, "", false
}

// splitKey splits a `key: value` line on the first colon.
func splitKey(content string) (string, string, bool) {
	idx := strings.Index(content, ":")
	if idx <= 0 {
		return "", "", false
	}
	key := unquote(strings.TrimSpace(content[:idx]))
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(content[idx+1:]), true
}

// splitItemKey recognizes list items of the form `key: value` or `key:`.
// Quoted items and bare URLs stay scalars.
func splitItemKey(content string) (string, string, bool) {
	if content == "" || content[0] == '"' || content[0] == '\'' || content[0] == '[' {
		return "", "", false
	}
	if idx := strings.Index(content, ": "); idx > 0 {
		return splitKey(content)
	}
	if strings.HasSuffix(content, ":") && !strings.ContainsAny(content, " \t") {
		return splitKey(content)
	}
	return "", "", false
}

func parseValue(s string) any {
	s = stripComment(s)
	switch {
	case s == "{}":
		return newMap()
	case s == "[]":
		return []any{}
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return parseInlineList(s)
	}
	return parseScalar(s)
}

func parseInlineList(s string) []any {
	inner := strings.TrimSpace(s[1 : len(s)-1])
	out := []any{}
	if inner == "" {
		return out
	}
	for _, item := range splitOutsideQuotes(inner, ',') {
		out = append(out, parseScalar(strings.TrimSpace(item)))
	}
	return out
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func parseScalar(s string) any {
	switch s {
	case "", "~", "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	if numberPattern.MatchString(s) {
		if !strings.Contains(s, ".") {
			if n, err := strconv.Atoi(s); err == nil {
				return n
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '"' && last == '"') || (first == '\'' && last == '\'')
}

func unquote(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}

// stripComment removes a trailing ` #` comment. A comment marker inside a
// leading quoted string is kept.
func stripComment(s string) string {
	if s == "" {
		return s
	}
	if q := s[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(s[1:], q)
		if end < 0 {
			return s
		}
		end++
		rest := strings.TrimSpace(s[end+1:])
		if strings.HasPrefix(rest, "#") {
			return s[:end+1]
		}
		return s
	}
	for i := 1; i < len(s); i++ {
		if s[i] == '#' && (s[i-1] == ' ' || s[i-1] == '\t') {
			return strings.TrimSpace(s[:i])
		}
	}
	return s
}
