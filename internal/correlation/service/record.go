package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Record is one loosely-typed evidence record as delivered by an
// integration sync. Handlers pull the fields they understand; the full
// record is retained as an opaque payload for audit and debugging.
type Record map[string]any

// RawPayload serializes the record for the raw_payload column.
func (r Record) RawPayload() json.RawMessage {
	raw, err := json.Marshal(r)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}

// Email returns the record's normalized email, or "" when absent.
func (r Record) Email() string {
	return NormalizeEmail(r.String("email"))
}

// String returns the field as a trimmed string; non-string values and
// missing fields yield "".
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// FirstString returns the first non-empty value among the given keys.
// Integrations disagree on field naming, so handlers probe aliases.
func (r Record) FirstString(keys ...string) string {
	for _, key := range keys {
		if s := r.String(key); s != "" {
			return s
		}
	}
	return ""
}

// Time parses the field as RFC 3339 (with a date-only fallback); invalid or
// missing values yield nil.
func (r Record) Time(key string) *time.Time {
	s := r.String(key)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}

// Bool returns the field as *bool, distinguishing "explicitly false" from
// "absent". JSON booleans and the strings "true"/"false" are accepted.
func (r Record) Bool(key string) *bool {
	v, ok := r[key]
	if !ok {
		return nil
	}
	switch value := v.(type) {
	case bool:
		b := value
		return &b
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true":
			b := true
			return &b
		case "false":
			b := false
			return &b
		}
	}
	return nil
}

// Float returns the field as *float64; JSON numbers arrive as float64.
func (r Record) Float(key string) *float64 {
	v, ok := r[key]
	if !ok {
		return nil
	}
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}

// Int returns the field as an int, defaulting to 0.
func (r Record) Int(key string) int {
	if f := r.Float(key); f != nil {
		return int(*f)
	}
	return 0
}

// NormalizeEmail lower-cases and trims an email. All identity comparisons
// happen on normalized emails; raw emails never reach a store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// syntheticExternalID derives a deterministic external id for sources that
// provide none, so repeated syncs of the same logical record overwrite
// rather than duplicate.
func syntheticExternalID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:16])
}
