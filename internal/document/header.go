package document

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the on-disk representation of calendar dates.
const DateLayout = "2006-01-02"

// Header is an ordered set of front-matter entries. Values are kept as YAML
// nodes so keys the typed schema does not know about survive a round-trip
// untouched.
type Header struct {
	entries []entry
}

type entry struct {
	key   string
	value *yaml.Node
}

// Len reports the number of entries.
func (h Header) Len() int {
	return len(h.entries)
}

// Keys returns entry keys in document order.
func (h Header) Keys() []string {
	keys := make([]string, len(h.entries))
	for i, e := range h.entries {
		keys[i] = e.key
	}
	return keys
}

// Has reports whether key is present.
func (h Header) Has(key string) bool {
	return h.index(key) >= 0
}

// Node returns the raw YAML value for key.
func (h Header) Node(key string) (*yaml.Node, bool) {
	if i := h.index(key); i >= 0 {
		return h.entries[i].value, true
	}
	return nil, false
}

// String returns a scalar value as text. Missing, null, and non-scalar values
// yield "".
func (h Header) String(key string) string {
	n, ok := h.Node(key)
	if !ok || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

// Bool decodes a boolean value, defaulting to false.
func (h Header) Bool(key string) bool {
	n, ok := h.Node(key)
	if !ok {
		return false
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return false
	}
	return b
}

// Int decodes an integer value, defaulting to 0.
func (h Header) Int(key string) int {
	n, ok := h.Node(key)
	if !ok {
		return 0
	}
	var i int
	if err := n.Decode(&i); err != nil {
		var f float64
		if err := n.Decode(&f); err != nil {
			return 0
		}
		return int(f)
	}
	return i
}

// Strings decodes a flat list. A lone scalar becomes a one-element list.
func (h Header) Strings(key string) []string {
	n, ok := h.Node(key)
	if !ok {
		return nil
	}
	switch n.Kind {
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind == yaml.ScalarNode && item.Tag != "!!null" && item.Value != "" {
				out = append(out, item.Value)
			}
		}
		return out
	case yaml.ScalarNode:
		if n.Tag == "!!null" || n.Value == "" {
			return nil
		}
		return []string{n.Value}
	default:
		return nil
	}
}

// Date parses a YYYY-MM-DD value as a local calendar day. A missing key
// yields nil; text that cannot be parsed falls back to the day of now so
// hand-edited documents still load.
func (h Header) Date(key string, now time.Time) *time.Time {
	raw := strings.TrimSpace(h.String(key))
	if raw == "" {
		return nil
	}
	day, err := ParseDate(raw)
	if err != nil {
		day = StartOfDay(now)
	}
	return &day
}

// Set stores value under key, keeping the key's position if it already
// exists. Empty values remove the key instead.
func (h *Header) Set(key string, value any) error {
	if isEmpty(value) {
		h.Delete(key)
		return nil
	}
	var n yaml.Node
	if err := n.Encode(value); err != nil {
		return fmt.Errorf("document: encode %s: %w", key, err)
	}
	h.setNode(key, &n)
	return nil
}

// SetDate stores a calendar date, or removes key when date is nil.
func (h *Header) SetDate(key string, date *time.Time) {
	if date == nil || date.IsZero() {
		h.Delete(key)
		return
	}
	h.setNode(key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: FormatDate(*date)})
}

// SetNode stores a raw YAML node.
func (h *Header) SetNode(key string, n *yaml.Node) {
	if n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		h.Delete(key)
		return
	}
	h.setNode(key, n)
}

// Delete removes key if present.
func (h *Header) Delete(key string) {
	if i := h.index(key); i >= 0 {
		h.entries = append(h.entries[:i], h.entries[i+1:]...)
	}
}

// Without returns a copy of h minus the listed keys.
func (h Header) Without(keys ...string) Header {
	skip := make(map[string]bool, len(keys))
	for _, k := range keys {
		skip[k] = true
	}
	var out Header
	for _, e := range h.entries {
		if !skip[e.key] {
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// Merge appends every entry of other not already present in h.
func (h *Header) Merge(other Header) {
	for _, e := range other.entries {
		if !h.Has(e.key) {
			h.entries = append(h.entries, e)
		}
	}
}

// Clone returns a deep copy.
func (h Header) Clone() Header {
	var out Header
	for _, e := range h.entries {
		out.entries = append(out.entries, entry{key: e.key, value: stripPosition(e.value)})
	}
	return out
}

func (h *Header) setNode(key string, n *yaml.Node) {
	if i := h.index(key); i >= 0 {
		h.entries[i].value = n
		return
	}
	h.entries = append(h.entries, entry{key: key, value: n})
}

func (h Header) index(key string) int {
	for i, e := range h.entries {
		if e.key == key {
			return i
		}
	}
	return -1
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	case []string:
		return len(v) == 0
	case *time.Time:
		return v == nil || v.IsZero()
	default:
		return false
	}
}

// ParseDate parses YYYY-MM-DD (or a full RFC 3339 timestamp) into a local
// calendar day.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02T15:04:05", "2006/01/02"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return StartOfDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("document: invalid date %q", raw)
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
