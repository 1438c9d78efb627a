// Package debuglog writes diagnostic entries to .cdd/debug.log.
//
// The log is opt-in (CDD_DEBUG=1 or `debug: true` in config.yaml). When it
// is disabled, or the file cannot be opened, the returned logger discards
// everything. Logging never fails its caller.
package debuglog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// FileName is the log file name inside the .cdd directory.
const FileName = "debug.log"

// Logger is a debug logger bound to one invocation.
type Logger struct {
	*logrus.Logger
	file *os.File
}

// Open returns a logger appending to <root>/debug.log when enabled is true,
// and a discarding logger otherwise.
func Open(root string, enabled bool) *Logger {
	l := logrus.New()
	l.SetFormatter(&Formatter{})
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(io.Discard)

	if !enabled || root == "" {
		return &Logger{Logger: l}
	}

	f, err := os.OpenFile(filepath.Join(root, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &Logger{Logger: l}
	}
	l.SetOutput(f)
	return &Logger{Logger: l, file: f}
}

// Discard returns a logger that drops every entry.
func Discard() *Logger {
	return Open("", false)
}

// Source returns an entry tagged with the hook or notifier name.
func (l *Logger) Source(name string) *logrus.Entry {
	return l.WithField("source", name)
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() {
	if l == nil || l.file == nil {
		return
	}
	_ = l.file.Close()
	l.file = nil
}

// Formatter renders `[timestamp] [source] message key=value ...` lines.
type Formatter struct{}

// Format renders a single log entry.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	b.WriteString("[")
	b.WriteString(entry.Time.UTC().Format(time.RFC3339Nano))
	b.WriteString("]")

	if source, ok := entry.Data["source"]; ok {
		fmt.Fprintf(&b, " [%v]", source)
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "source" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}
