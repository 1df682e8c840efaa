// internal/model/record.go
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies one of the entity collections kept in sync.
type Kind string

const (
	KindCompany    Kind = "company"
	KindUser       Kind = "user"
	KindAccessCode Kind = "access_code"
)

// Kinds lists every synchronized kind in publish order.
var Kinds = []Kind{KindCompany, KindUser, KindAccessCode}

func (k Kind) String() string {
	return string(k)
}

// Record is a loosely typed entity as it travels between stores. Field names
// may use either naming convention until the record has been normalized.
type Record map[string]any

// String returns the field as a string. Numbers are formatted without a
// trailing fraction so that numeric ids compare equal to their string form.
func (r Record) String(key string) string {
	return stringOf(r[key])
}

// Int returns the field as an int, parsing numeric strings.
func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// Bool returns the field as a bool.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Strings returns a sequence field as a string slice.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringOf(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// ID returns the record id in string form.
func (r Record) ID() string {
	return r.String("id")
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneAll deep copies a collection.
func CloneAll(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, r.Clone())
	}
	return out
}

// EqualCollections reports whether two collections hold structurally equal
// records in the same order. Values are compared through their JSON form, so
// an int read from memory equals the float64 decoded from storage.
func EqualCollections(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// Decode converts a record into one of the typed views.
func Decode[T any](r Record) (T, error) {
	var out T
	data, err := json.Marshal(r)
	if err != nil {
		return out, fmt.Errorf("marshaling record: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("unmarshaling record: %w", err)
	}
	return out, nil
}

// Encode converts a typed value into a record.
func Encode(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling value: %w", err)
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshaling value: %w", err)
	}
	return out, nil
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string{}, t...)
	case []Record:
		return CloneAll(t)
	}
	return v
}
