package simpleyaml

import (
	"bytes"
	"encoding/json"
)

// Map is an insertion-ordered mapping from string keys to parsed values.
// Values are nil, bool, int, float64, string, []any or *Map. A nil *Map
// behaves like an empty map, so lookups can be chained without checks.
type Map struct {
	keys   []string
	values map[string]any
}

func newMap() *Map {
	return &Map{values: make(map[string]any)}
}

// set stores v under key. A repeated key keeps its first position and the
// last value.
func (m *Map) set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Len returns the number of keys in the map.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in document order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (m *Map) String(key string) (string, bool) {
	v, _ := m.Get(key)
	s, ok := v.(string)
	return s, ok
}

// Bool reports whether the value under key is the boolean true.
func (m *Map) Bool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

// Map returns the nested map under key, or nil when the value is absent or
// not a map.
func (m *Map) Map(key string) *Map {
	v, _ := m.Get(key)
	child, _ := v.(*Map)
	return child
}

// List returns the list under key, or nil when the value is absent or not a
// list.
func (m *Map) List(key string) []any {
	v, _ := m.Get(key)
	l, _ := v.([]any)
	return l
}

// Lookup follows a path of keys through nested maps.
func (m *Map) Lookup(path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		next, ok := cur.(*Map)
		if !ok {
			return nil, false
		}
		if cur, ok = next.Get(key); !ok {
			return nil, false
		}
	}
	return cur, true
}

// Plain converts the map into plain Go maps and slices, dropping key order.
// The result is suitable for decoders that expect map[string]any.
func (m *Map) Plain() map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = plain(m.values[k])
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Plain()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes the map as a JSON object with keys in document order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
