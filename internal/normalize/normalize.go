// Package normalize converts records between the snake_case shape used for
// persistence and remote exchange and the camelCase shape used in memory.
//
// For every known field the first non-empty spelling wins, in the order
// camelCase, snake_case, legacy aliases. When all spellings are empty the
// field's default applies. Unknown fields pass through untouched.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/model"
)

var now = time.Now

type shape int

const (
	shapeDisplay shape = iota
	shapeCanonical
	shapeBoth
)

// ToDisplay returns the record with every known field under its camelCase
// name only.
func ToDisplay(r model.Record, kind model.Kind) model.Record {
	return convert(r, kind, shapeDisplay, true)
}

// ToCanonical returns the record with every known field under its snake_case
// name only.
func ToCanonical(r model.Record, kind model.Kind) model.Record {
	return convert(r, kind, shapeCanonical, true)
}

// Normalize returns the record with every known field stored under both
// spellings. This is the shape written to either store.
func Normalize(r model.Record, kind model.Kind) model.Record {
	return convert(r, kind, shapeBoth, true)
}

// NormalizeAll normalizes every record of a collection.
func NormalizeAll(records []model.Record, kind model.Kind) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		out = append(out, Normalize(r, kind))
	}
	return out
}

// Patch normalizes a partial update. Only fields the patch mentions are
// expanded, and no defaults are filled in.
func Patch(patch model.Record, kind model.Kind) model.Record {
	return convert(patch, kind, shapeBoth, false)
}

func convert(r model.Record, kind model.Kind, target shape, fill bool) model.Record {
	fields := fieldsByKind[kind]
	out := make(model.Record, len(r)+len(fields))

	known := make(map[string]bool, len(fields)*2)
	for _, f := range fields {
		for _, name := range f.spellings() {
			known[name] = true
		}
	}
	for k, v := range r {
		if !known[k] {
			out[k] = v
		}
	}

	for _, f := range fields {
		value, present := resolve(r, f)
		if !present && !fill {
			continue
		}
		if IsEmpty(value) {
			if !fill {
				// Explicitly cleared in a patch.
				value = zero(f)
			} else if f.def != nil {
				value = f.def()
			} else {
				value = zero(f)
			}
		}
		if f.transform != nil {
			value = f.transform(value)
		}
		switch target {
		case shapeDisplay:
			out[f.Display] = value
		case shapeCanonical:
			out[f.Canonical] = value
		default:
			out[f.Display] = value
			if f.Canonical != f.Display {
				out[f.Canonical] = copyValue(value)
			}
		}
	}
	return out
}

// resolve picks the first non-empty spelling. present reports whether any
// spelling was set at all.
func resolve(r model.Record, f Field) (any, bool) {
	present := false
	for _, name := range f.spellings() {
		v, ok := r[name]
		if !ok {
			continue
		}
		present = true
		cv := coerce(v, f.class)
		if !IsEmpty(cv) {
			return cv, true
		}
	}
	return nil, present
}

func coerce(v any, class valueClass) any {
	if v == nil {
		return nil
	}
	switch class {
	case classString:
		return model.Record{"v": v}.String("v")
	case classNullable:
		s := model.Record{"v": v}.String("v")
		if s == "" {
			return nil
		}
		return s
	case classInt:
		return model.Record{"v": v}.Int("v")
	case classBool:
		return model.Record{"v": v}.Bool("v")
	case classStrings:
		return model.Record{"v": v}.Strings("v")
	}
	return v
}

func zero(f Field) any {
	switch f.class {
	case classString:
		return ""
	case classInt:
		return 0
	case classBool:
		return false
	case classStrings:
		return []string{}
	}
	return nil
}

// IsEmpty reports whether v counts as missing: nil, "", 0, false or an
// empty sequence.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case int:
		return t == 0
	case float64:
		return t == 0
	case bool:
		return !t
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

func copyValue(v any) any {
	if s, ok := v.([]string); ok {
		return append([]string{}, s...)
	}
	return v
}

// NaturalKey returns the key used to recognize the same entity on both sides
// of a merge. An empty key means the record cannot be matched.
func NaturalKey(kind model.Kind, r model.Record) string {
	switch kind {
	case model.KindAccessCode:
		return firstNonEmpty(r.String("code"), r.ID())
	case model.KindUser:
		return firstNonEmpty(r.ID(), r.String("username"), r.String("email"))
	case model.KindCompany:
		return firstNonEmpty(r.ID(), r.String("name"))
	}
	return r.ID()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IDsEqual reports whether two ids refer to the same record. It accepts a
// match on strict equality, numeric equality or string form.
func IDsEqual(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	if strictEqual(a, b) {
		return true
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok && fa == fb {
			return true
		}
	}
	sa := model.Record{"v": a}.String("v")
	return sa != "" && sa == model.Record{"v": b}.String("v")
}

func strictEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
