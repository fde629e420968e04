// Package normalize maps loosely-typed backend records onto the canonical
// nocview model. Record mapping is total: it never fails and never drops a
// record. Only a body that holds no records at all is an error.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/user/nocview/internal/model"
)

// ErrUnexpectedBody is returned for a response body that is not JSON or has
// no recognised shape.
var ErrUnexpectedBody = errors.New("unexpected response body")

// Normalizer maps records whose timestamps carry relative text computed
// against its clock.
type Normalizer struct {
	now func() time.Time
}

// New returns a normalizer reading now, or the wall clock when now is nil.
func New(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// DisplayLayout is the absolute timestamp format shown in tables.
const DisplayLayout = "2006-01-02 15:04:05"

var envelopeKeys = []string{"data", "items", "results", "alerts", "tickets", "devices", "users"}

// Envelope extracts the record list from a response body that is either a
// bare JSON array or an object wrapping it under data, items or results.
func Envelope(body []byte) ([]any, error) {
	raw, err := decode(body)
	if err != nil {
		return nil, err
	}
	return unwrap(raw)
}

func decode(body []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedBody, snippet(body))
	}
	return raw, nil
}

func unwrap(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range envelopeKeys {
			inner, ok := v[key]
			if !ok {
				continue
			}
			if inner == nil {
				return []any{}, nil
			}
			return unwrap(inner)
		}
		return nil, fmt.Errorf("%w: object without a record list", ErrUnexpectedBody)
	}
	return nil, fmt.Errorf("%w: %T instead of a record list", ErrUnexpectedBody, raw)
}

// Object extracts a single record from a body that is either the object
// itself or {data: {...}}.
func Object(body []byte) (map[string]any, error) {
	raw, err := decode(body)
	if err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %T instead of an object", ErrUnexpectedBody, raw)
	}
	if inner, ok := m["data"].(map[string]any); ok {
		return inner, nil
	}
	return m, nil
}

// snippet quotes the start of a body for error messages.
func snippet(body []byte) string {
	const limit = 64
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty body"
	}
	if len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return strconv.Quote(s)
}

// Timestamp resolves the backend's timestamp union: a plain string, a
// {relative, absolute} pair or a unix epoch number.
func (n *Normalizer) Timestamp(raw any) model.Timestamp {
	switch v := raw.(type) {
	case nil:
		return missing()
	case string:
		return n.fromString(v)
	case float64:
		return n.fromEpoch(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return missing()
		}
		return n.fromEpoch(f)
	case int64:
		return n.fromEpoch(float64(v))
	case int:
		return n.fromEpoch(float64(v))
	case time.Time:
		return n.fromTime(v)
	case map[string]any:
		abs := n.fromString(String(first(v, "absolute", "timestamp", "time", "iso")))
		rel := strings.TrimSpace(String(first(v, "relative", "ago")))
		if rel != "" {
			abs.Relative = rel
			if abs.Display == model.NotAvailable {
				abs.Display = rel
			}
		}
		return abs
	}
	return missing()
}

func missing() model.Timestamp {
	return model.Timestamp{Display: model.NotAvailable, Relative: model.NotAvailable}
}

func (n *Normalizer) fromString(s string) model.Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return missing()
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return n.fromTime(t)
		}
	}
	// Unparsable strings are already display text such as "5 min ago".
	return model.Timestamp{Display: s, Relative: s}
}

func (n *Normalizer) fromEpoch(f float64) model.Timestamp {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return missing()
	}
	// Values past year 33658 in seconds are milliseconds.
	if f > 1e12 {
		return n.fromTime(time.UnixMilli(int64(f)))
	}
	return n.fromTime(time.Unix(int64(f), 0))
}

func (n *Normalizer) fromTime(t time.Time) model.Timestamp {
	if t.IsZero() {
		return missing()
	}
	return model.Timestamp{
		Time:     t,
		Display:  t.Local().Format(DisplayLayout),
		Relative: humanize.RelTime(t, n.now(), "ago", "from now"),
	}
}

// DeviceRef coerces a device reference that may be a name string, an object
// or missing altogether.
func DeviceRef(raw any) model.DeviceRef {
	ref := model.DeviceRef{Name: "Unknown", Icon: "server"}
	switch v := raw.(type) {
	case string:
		if name := strings.TrimSpace(v); name != "" {
			ref.Name = name
		}
	case map[string]any:
		if name := strings.TrimSpace(String(first(v, "name", "hostname", "device_name", "deviceName"))); name != "" {
			ref.Name = name
		}
		ref.IP = strings.TrimSpace(String(first(v, "ip", "ip_address", "ipAddress", "address")))
		if icon := strings.TrimSpace(String(first(v, "icon", "type", "kind"))); icon != "" {
			ref.Icon = strings.ToLower(icon)
		}
	}
	return ref
}

// first returns the first present, non-nil value among keys.
func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// String renders a loosely-typed scalar as a string.
func String(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case map[string]any, []any:
		return ""
	}
	return fmt.Sprint(raw)
}

// Int converts a loosely-typed number, returning def when it is not one.
func Int(raw any, def int) int {
	switch v := raw.(type) {
	case float64:
		return int(math.Round(v))
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return int(math.Round(f))
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, "%")), 64); err == nil {
			return int(math.Round(f))
		}
	}
	return def
}

// Float converts a loosely-typed number, returning def when it is not one.
func Float(raw any, def float64) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// Bool converts a loosely-typed flag.
func Bool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func label(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
