package registry

// Wire codec helpers: how payload values are parsed from and rendered to
// the JSON exchanged with stations. Stations run a mix of client stacks,
// so parsing is deliberately liberal and rendering deliberately fixed.

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// timeWire is the payload date-time form: ISO-8601 with a numeric UTC
	// offset, microsecond precision.
	timeWire = "2006-01-02T15:04:05.999999-07:00"
	// timestampWire is the event timestamp form, using the "Z" suffix.
	timestampWire = "2006-01-02T15:04:05.999999Z07:00"
)

// FormatTime renders a payload date-time.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeWire)
}

// FormatTimestamp renders an event timestamp.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampWire)
}

// ParseTime accepts the timestamp forms stations are known to send:
// offset-qualified ISO-8601, the "Z" suffix, naive date-times (taken as
// UTC), a space instead of the "T" separator, and bare dates.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	layouts := []string{
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
}

// AsString coerces a payload value to a string.
func AsString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

// AsBool coerces a payload value to a boolean.
func AsBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, fmt.Errorf("expected boolean, got %q", x)
		}
		return b, nil
	case float64:
		return x != 0, nil
	}
	return false, fmt.Errorf("expected boolean, got %T", v)
}

// AsInt coerces a payload value to an int.
func AsInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", x.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", x)
		}
		return n, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

// AsTime coerces a payload value to a time.
func AsTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return ParseTime(x)
	}
	return time.Time{}, fmt.Errorf("expected timestamp, got %T", v)
}

// AsTimePtr coerces a payload value to an optional time.
func AsTimePtr(v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := AsTime(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// AsDecimal coerces a payload value to a decimal.
func AsDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("expected decimal, got %q", x)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("expected decimal, got %q", x.String())
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	}
	return decimal.Decimal{}, fmt.Errorf("expected decimal, got %T", v)
}

// AsPK renders a payload value as a wire primary key string. JSON clients
// send integer keys as numbers or strings interchangeably.
func AsPK(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatInt(int64(x), 10), nil
	case json.Number:
		return x.String(), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	}
	return "", fmt.Errorf("expected primary key, got %T", v)
}

// FilePayload is inline file content pushed by a station.
type FilePayload struct {
	Filename string
	Content  []byte
}

// decodeInlineFile interprets a {filename, content} file value. A dict
// missing either part means the stored file must be removed, which is
// encoded as a nil payload.
func decodeInlineFile(m map[string]any) (*FilePayload, error) {
	name, _ := m["filename"].(string)
	content, _ := m["content"].(string)
	if name == "" || content == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("decode file content: %w", err)
	}
	return &FilePayload{Filename: name, Content: raw}, nil
}
