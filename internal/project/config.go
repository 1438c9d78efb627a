package project

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/papapumpkin/cdd/internal/simpleyaml"
)

// DefaultSourcePath is used when config.yaml does not set paths.source.
const DefaultSourcePath = "src"

// Config is the typed form of .cdd/config.yaml.
type Config struct {
	ProjectName   string        `mapstructure:"project_name"`
	Debug         bool          `mapstructure:"debug"`
	Paths         Paths         `mapstructure:"paths"`
	Notifications Notifications `mapstructure:"notifications"`
}

// Paths locates project directories relative to the project root.
type Paths struct {
	Source     string   `mapstructure:"source"`
	Tests      string   `mapstructure:"tests"`
	Migrations string   `mapstructure:"migrations"`
	Shared     []string `mapstructure:"shared"`
}

// Notifications is the `notifications:` block.
type Notifications struct {
	Enabled   bool             `mapstructure:"enabled"`
	Notifiers []NotifierConfig `mapstructure:"notifiers"`
}

// NotifierConfig is one configured notification back-end. Fields that only
// some back-ends use land in Extra; Raw keeps the entry as written so it can
// be forwarded to the back-end unchanged.
type NotifierConfig struct {
	Type         string          `mapstructure:"type"`
	Events       EventFilter     `mapstructure:"events"`
	Command      string          `mapstructure:"command"`
	URL          string          `mapstructure:"url"`
	BodyTemplate string          `mapstructure:"body_template"`
	Extra        map[string]any  `mapstructure:",remain"`
	Raw          *simpleyaml.Map `mapstructure:"-"`
}

// EventFilter is a notifier's event subscription: the literal "all", one
// event name, or a list of names.
type EventFilter struct {
	All   bool
	Names []string
}

// ParseEventFilter builds a filter from a parsed `events:` value. Values of
// any other shape subscribe to nothing.
func ParseEventFilter(v any) EventFilter {
	switch t := v.(type) {
	case string:
		if t == "all" {
			return EventFilter{All: true}
		}
		if t == "" {
			return EventFilter{}
		}
		return EventFilter{Names: []string{t}}
	case []any:
		var f EventFilter
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				f.Names = append(f.Names, s)
			}
		}
		return f
	case []string:
		return EventFilter{Names: append([]string(nil), t...)}
	case EventFilter:
		return t
	default:
		return EventFilter{}
	}
}

// Matches reports whether the filter subscribes to event.
func (f EventFilter) Matches(event string) bool {
	if f.All {
		return true
	}
	for _, name := range f.Names {
		if name == event {
			return true
		}
	}
	return false
}

// DefaultConfig returns the configuration used when config.yaml is missing.
func DefaultConfig() Config {
	return Config{
		Paths: Paths{Source: DefaultSourcePath},
	}
}

var eventFilterType = reflect.TypeOf(EventFilter{})

func eventFilterHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != eventFilterType {
		return data, nil
	}
	return ParseEventFilter(data), nil
}

// DecodeConfig converts a parsed config document into a Config. Fields that
// fail to decode keep their defaults; the returned error describes them, and
// the Config is usable either way.
func DecodeConfig(doc *simpleyaml.Map) (Config, error) {
	cfg := DefaultConfig()
	if doc.Len() == 0 {
		return cfg, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(eventFilterHook),
	})
	if err != nil {
		return cfg, fmt.Errorf("creating config decoder: %w", err)
	}
	decodeErr := decoder.Decode(doc.Plain())

	if cfg.Paths.Source == "" {
		cfg.Paths.Source = DefaultSourcePath
	}

	raw := doc.Map("notifications").List("notifiers")
	for i := range cfg.Notifications.Notifiers {
		if i < len(raw) {
			cfg.Notifications.Notifiers[i].Raw, _ = raw[i].(*simpleyaml.Map)
		}
	}

	if decodeErr != nil {
		return cfg, fmt.Errorf("decoding %s: %w", ConfigFile, decodeErr)
	}
	return cfg, nil
}
