// Package transcript extracts the last assistant message from a host
// session transcript (JSONL under <claude_home>/projects/<project>/).
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ExcerptCap is the maximum length, in characters, of a returned message.
const ExcerptCap = 500

const ext = ".jsonl"

// Find locates the transcript for sessionID under <home>/projects. A file
// whose name contains the session id wins; otherwise the most recently
// modified transcript is returned. ok is false when nothing is found.
func Find(home, sessionID string) (string, bool) {
	if sessionID == "" || home == "" {
		return "", false
	}
	projects := filepath.Join(home, "projects")
	dirs, err := os.ReadDir(projects)
	if err != nil {
		return "", false
	}

	var best string
	var bestMod int64
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(projects, d.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, ext) {
				continue
			}
			path := filepath.Join(dir, name)
			if strings.Contains(name, sessionID) {
				return path, true
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			if mod := info.ModTime().UnixNano(); mod > bestMod {
				best, bestMod = path, mod
			}
		}
	}
	return best, best != ""
}

type entry struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Message *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type block struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// text returns the assistant text of a transcript line. Both top-level
// role/content and the nested message form are accepted.
func (e entry) text() string {
	role, content := e.Role, e.Content
	if role == "" && e.Message != nil {
		role, content = e.Message.Role, e.Message.Content
	}
	if role != "assistant" || len(content) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(content, &s) == nil {
		return s
	}
	var blocks []block
	if json.Unmarshal(content, &blocks) != nil {
		return ""
	}
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			return b.Text
		}
	}
	return ""
}

// LastAssistantMessage reads the transcript at path and returns the text
// of the last assistant entry, truncated to ExcerptCap characters with a
// trailing "...". Malformed lines are skipped. ok is false when the file
// cannot be read or holds no assistant text.
func LastAssistantMessage(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	var last string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			var e entry
			if json.Unmarshal(line, &e) == nil {
				if t := e.text(); t != "" {
					last = t
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", false
			}
			break
		}
	}
	if last == "" {
		return "", false
	}
	return truncate(last, ExcerptCap), true
}

// ForSession resolves the transcript for a hook invocation: an explicit
// path from the hook input is preferred over a search by session id.
func ForSession(home, sessionID, explicit string) (string, bool) {
	if explicit != "" {
		if msg, ok := LastAssistantMessage(explicit); ok {
			return msg, true
		}
	}
	path, ok := Find(home, sessionID)
	if !ok {
		return "", false
	}
	return LastAssistantMessage(path)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
