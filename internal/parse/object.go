package parse

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

type jsonKind int

const (
	kindNull jsonKind = iota
	kindString
	kindNumber
	kindBool
	kindObject
	kindArray
)

func (k jsonKind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindNumber:
		return "number"
	case kindBool:
		return "boolean"
	case kindObject:
		return "object"
	case kindArray:
		return "array"
	default:
		return "null"
	}
}

func kindOf(raw json.RawMessage) jsonKind {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return kindNull
	}
	switch raw[0] {
	case '"':
		return kindString
	case '{':
		return kindObject
	case '[':
		return kindArray
	case 't', 'f':
		return kindBool
	case 'n':
		return kindNull
	default:
		return kindNumber
	}
}

// object is one decoded JSON object plus its path from the record root,
// so every accessor can say exactly which field was wrong.
type object struct {
	path   string
	fields map[string]json.RawMessage
}

func decodeObject(path string, raw json.RawMessage) (object, error) {
	if k := kindOf(raw); k != kindObject {
		return object{}, invalid(displayPath(path), "expected object, got "+k.String())
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return object{}, invalid(displayPath(path), err.Error())
	}
	return object{path: path, fields: fields}, nil
}

func displayPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}

func (o object) at(key string) string {
	if o.path == "" {
		return key
	}
	return o.path + "." + key
}

// lookup treats JSON null the same as an absent key.
func (o object) lookup(key string) (json.RawMessage, bool) {
	raw, ok := o.fields[key]
	if !ok || kindOf(raw) == kindNull {
		return nil, false
	}
	return raw, true
}

func (o object) str(key string) (Opt[string], error) {
	raw, ok := o.lookup(key)
	if !ok {
		return Opt[string]{}, nil
	}
	s, err := decodeString(o.at(key), raw)
	if err != nil {
		return Opt[string]{}, err
	}
	return Some(s), nil
}

func (o object) requireStr(key string) (string, error) {
	v, err := o.str(key)
	if err != nil {
		return "", err
	}
	if !v.Valid {
		return "", missing(o.at(key))
	}
	return v.Value, nil
}

// text converts any non-null value to text: strings unquoted, everything
// else as its JSON source.
func (o object) text(key string) (string, bool) {
	raw, ok := o.lookup(key)
	if !ok {
		return "", false
	}
	return rawText(raw), true
}

func rawText(raw json.RawMessage) string {
	if kindOf(raw) == kindString {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(bytes.TrimSpace(raw))
}

func (o object) boolean(key string) (Opt[bool], error) {
	raw, ok := o.lookup(key)
	if !ok {
		return Opt[bool]{}, nil
	}
	if k := kindOf(raw); k != kindBool {
		return Opt[bool]{}, invalid(o.at(key), "expected boolean, got "+k.String())
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return Opt[bool]{}, invalid(o.at(key), err.Error())
	}
	return Some(b), nil
}

func (o object) requireBool(key string) (bool, error) {
	v, err := o.boolean(key)
	if err != nil {
		return false, err
	}
	if !v.Valid {
		return false, missing(o.at(key))
	}
	return v.Value, nil
}

func (o object) integer64(key string) (Opt[int64], error) {
	raw, ok := o.lookup(key)
	if !ok {
		return Opt[int64]{}, nil
	}
	n, err := decodeInt(o.at(key), raw)
	if err != nil {
		return Opt[int64]{}, err
	}
	return Some(n), nil
}

func (o object) integer(key string) (Opt[int], error) {
	v, err := o.integer64(key)
	if err != nil || !v.Valid {
		return Opt[int]{}, err
	}
	if v.Value > math.MaxInt32 || v.Value < math.MinInt32 {
		return Opt[int]{}, invalid(o.at(key), "out of range: "+strconv.FormatInt(v.Value, 10))
	}
	return Some(int(v.Value)), nil
}

// child returns the nested object under key; ok is false when absent.
func (o object) child(key string) (object, bool, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return object{}, false, nil
	}
	c, err := decodeObject(o.at(key), raw)
	if err != nil {
		return object{}, false, err
	}
	return c, true, nil
}

func (o object) array(key string) ([]json.RawMessage, bool, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return nil, false, nil
	}
	if k := kindOf(raw); k != kindArray {
		return nil, false, invalid(o.at(key), "expected array, got "+k.String())
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, invalid(o.at(key), err.Error())
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, true, nil
}

// date runs a string field through the normalizer.
func (o object) date(key string, dn DateNormalizer) (Opt[time.Time], error) {
	s, err := o.str(key)
	if err != nil || !s.Valid {
		return Opt[time.Time]{}, err
	}
	t, err := dn.Parse(o.at(key), s.Value)
	if err != nil {
		return Opt[time.Time]{}, err
	}
	return Some(t), nil
}

// Lenient accessors for chat_metadata: a wrong shape yields the default.

func (o object) strOr(key, fallback string) string {
	v, err := o.str(key)
	if err != nil {
		return fallback
	}
	return v.Or(fallback)
}

func (o object) intOr(key string, fallback int) int {
	v, err := o.integer(key)
	if err != nil {
		return fallback
	}
	return v.Or(fallback)
}

func (o object) boolOr(key string, fallback bool) bool {
	v, err := o.boolean(key)
	if err != nil {
		return fallback
	}
	return v.Or(fallback)
}

func (o object) arrayOrNil(key string) []json.RawMessage {
	items, _, err := o.array(key)
	if err != nil {
		return nil
	}
	return items
}

func (o object) mapOrNil(key string) map[string]json.RawMessage {
	c, ok, err := o.child(key)
	if err != nil || !ok {
		return nil
	}
	if c.fields == nil {
		return map[string]json.RawMessage{}
	}
	return c.fields
}

func decodeString(path string, raw json.RawMessage) (string, error) {
	if k := kindOf(raw); k != kindString {
		return "", invalid(path, "expected string, got "+k.String())
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", invalid(path, err.Error())
	}
	return s, nil
}

// decodeInt accepts integral JSON numbers, including forms like 12.0 or 1e3.
func decodeInt(path string, raw json.RawMessage) (int64, error) {
	if k := kindOf(raw); k != kindNumber {
		return 0, invalid(path, "expected number, got "+k.String())
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, invalid(path, err.Error())
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, invalid(path, "not an integer: "+n.String())
	}
	return int64(f), nil
}
