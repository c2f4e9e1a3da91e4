package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FieldKind decides how a form value is seeded, parsed and sent.
type FieldKind int

const (
	KindText FieldKind = iota
	KindUpper
	KindInt
	KindFloat
	KindRef
	KindDate
	KindDateTime
	KindEnum
	KindSecret
)

// Input representations used by the form buffer.
const (
	DateInputLayout     = "2006-01-02"
	DateTimeInputLayout = "2006-01-02T15:04"
)

var acceptedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateTimeInputLayout,
	DateInputLayout,
}

// Field describes one editable attribute of a resource.
type Field struct {
	Name        string
	Label       string
	Kind        FieldKind
	Options     []string
	Default     string
	DefaultNow  bool
	CreateOnly  bool
	NonNegative bool
}

// DefaultValue is the value a new-record buffer starts with.
func (f Field) DefaultValue(now time.Time) any {
	switch {
	case f.DefaultNow && f.Kind == KindDate:
		return now.Format(DateInputLayout)
	case f.DefaultNow && f.Kind == KindDateTime:
		return now.Format(DateTimeInputLayout)
	case f.Default != "":
		return f.Default
	case f.Kind == KindEnum && len(f.Options) > 0:
		return f.Options[0]
	}
	return ""
}

// FromEntity converts a stored value into the form representation.
// Missing values become "".
func (f Field) FromEntity(v any) any {
	if v == nil {
		return ""
	}
	switch f.Kind {
	case KindDate:
		return FormatDateInput(stringify(v))
	case KindDateTime:
		return FormatDateTimeInput(stringify(v))
	case KindInt, KindRef, KindFloat:
		parsed, err := f.Parse(v)
		if err != nil {
			return stringify(v)
		}
		return parsed
	case KindSecret:
		return ""
	}
	return stringify(v)
}

// Parse coerces user input. Empty input yields "".
func (f Field) Parse(v any) (any, error) {
	if v == nil {
		return "", nil
	}
	switch f.Kind {
	case KindInt, KindRef:
		return parseInt(f.Name, v)
	case KindFloat:
		n, err := parseFloat(f.Name, v)
		if err != nil {
			return nil, err
		}
		if fv, ok := n.(float64); ok && f.NonNegative && fv < 0 {
			return nil, fmt.Errorf("%s no puede ser negativo", f.Name)
		}
		return n, nil
	case KindUpper:
		return strings.ToUpper(stringify(v)), nil
	case KindDate:
		s := strings.TrimSpace(stringify(v))
		if s == "" {
			return "", nil
		}
		out := FormatDateInput(s)
		if _, err := time.Parse(DateInputLayout, out); err != nil {
			return nil, fmt.Errorf("%s: fecha inválida", f.Name)
		}
		return out, nil
	case KindDateTime:
		s := strings.TrimSpace(stringify(v))
		if s == "" {
			return "", nil
		}
		out := FormatDateTimeInput(s)
		if _, err := time.Parse(DateTimeInputLayout, out); err != nil {
			return nil, fmt.Errorf("%s: fecha y hora inválida", f.Name)
		}
		return out, nil
	case KindEnum:
		s := stringify(v)
		if s == "" || len(f.Options) == 0 {
			return s, nil
		}
		for _, o := range f.Options {
			if o == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%s: opción inválida %q", f.Name, s)
	}
	return stringify(v), nil
}

// IsEmpty reports whether the value fails the required-field gate.
// Zero counts as empty only for references, where it means "not selected".
func (f Field) IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case int64:
		return f.Kind == KindRef && t == 0
	case int:
		return f.Kind == KindRef && t == 0
	case float64:
		return f.Kind == KindRef && t == 0
	case json.Number:
		return strings.TrimSpace(t.String()) == "" || (f.Kind == KindRef && t.String() == "0")
	}
	return false
}

// ToPayload converts a buffer value for the wire: "" becomes null and
// datetimes are sent as RFC3339 in local time.
func (f Field) ToPayload(v any) any {
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if f.Kind == KindDateTime {
			if t, err := time.ParseInLocation(DateTimeInputLayout, s, time.Local); err == nil {
				return t.Format(time.RFC3339)
			}
		}
	}
	return v
}

// FormatDateInput renders a backend timestamp as YYYY-MM-DD. Unparseable
// input is returned unchanged.
func FormatDateInput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		if _, err := time.Parse(DateInputLayout, s[:10]); err == nil {
			return s[:10]
		}
	}
	if t, ok := parseTimestamp(s); ok {
		return t.Format(DateInputLayout)
	}
	return s
}

// FormatDateTimeInput renders a backend timestamp as YYYY-MM-DDTHH:MM in
// local time.
func FormatDateTimeInput(s string) string {
	if t, ok := parseTimestamp(s); ok {
		return t.Format(DateTimeInputLayout)
	}
	return s
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			if layout == time.RFC3339Nano {
				t = t.In(time.Local)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

func parseInt(name string, v any) (any, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		if t != math.Trunc(t) {
			return nil, fmt.Errorf("%s debe ser un número entero", name)
		}
		return int64(t), nil
	}
	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return "", nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil && f == math.Trunc(f) {
			return int64(f), nil
		}
		return nil, fmt.Errorf("%s debe ser un número entero", name)
	}
	return n, nil
}

func parseFloat(name string, v any) (any, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	}
	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return "", nil
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("%s debe ser numérico", name)
	}
	return f, nil
}

// IsBlank reports whether v is nil or a blank string.
func IsBlank(v any) bool {
	return Field{}.IsEmpty(v)
}
