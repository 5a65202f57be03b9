// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates the branch of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// KV is a single key/value pair in an Object branch. Object preserves
// insertion order instead of falling back to Go's unordered map so that
// re-serialization and diagnostic output are deterministic.
type KV struct {
	Key   string
	Value Value
}

// Value is the open-ended document type used for defaultConfig, rule
// config fragments, and anything else the service never pins to a fixed
// schema. It mirrors the shape of arbitrary JSON/YAML without assuming
// any particular structure up front.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Array  []Value
	Object []KV
}

// Null returns the null Value.
func Null() Value { return Value{Kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// String wraps a string.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Array wraps a slice of Values.
func Array(items ...Value) Value { return Value{Kind: KindArray, Array: items} }

// Object builds an Object Value from ordered pairs.
func Object(pairs ...KV) Value { return Value{Kind: KindObject, Object: pairs} }

// IsNull reports whether v is the null value (or the zero Value).
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Get returns the value associated with key in an Object branch, and
// whether it was present. Non-object values always return (Null, false).
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Null(), false
	}
	for _, kv := range v.Object {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return Null(), false
}

// Has reports whether key is present in an Object branch.
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Keys returns the ordered keys of an Object branch, or nil otherwise.
func (v Value) Keys() []string {
	if v.Kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.Object))
	for _, kv := range v.Object {
		keys = append(keys, kv.Key)
	}
	return keys
}

// With returns a copy of v with key set to val. v must be an Object (or
// Null, treated as an empty object). The original is never mutated.
func (v Value) With(key string, val Value) Value {
	if v.Kind == KindNull {
		return Value{Kind: KindObject, Object: []KV{{Key: key, Value: val}}}
	}
	if v.Kind != KindObject {
		return v
	}
	out := make([]KV, 0, len(v.Object)+1)
	replaced := false
	for _, kv := range v.Object {
		if kv.Key == key {
			out = append(out, KV{Key: key, Value: val})
			replaced = true
			continue
		}
		out = append(out, kv)
	}
	if !replaced {
		out = append(out, KV{Key: key, Value: val})
	}
	return Value{Kind: KindObject, Object: out}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.Kind {
	case KindArray:
		items := make([]Value, len(v.Array))
		for i, item := range v.Array {
			items[i] = item.Clone()
		}
		return Value{Kind: KindArray, Array: items}
	case KindObject:
		pairs := make([]KV, len(v.Object))
		for i, kv := range v.Object {
			pairs[i] = KV{Key: kv.Key, Value: kv.Value.Clone()}
		}
		return Value{Kind: KindObject, Object: pairs}
	default:
		return v
	}
}

// FromJSON decodes raw JSON into a Value. It goes through interface{}
// (with json.Number enabled), so objects pass through
// map[string]interface{} and their key order is not preserved; use
// Value.UnmarshalJSON when key order matters.
func FromJSON(data []byte) (Value, error) {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Null(), fmt.Errorf("model: decode json: %w", err)
	}
	return fromInterface(raw), nil
}

func fromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		f, _ := t.Float64()
		return Number(f)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = fromInterface(item)
		}
		return Value{Kind: KindArray, Array: items}
	case map[string]interface{}:
		pairs := make([]KV, 0, len(t))
		for k, v := range t {
			pairs = append(pairs, KV{Key: k, Value: fromInterface(v)})
		}
		return Value{Kind: KindObject, Object: pairs}
	default:
		return Null()
	}
}

// ToInterface converts a Value back into plain interface{} for
// json.Marshal or further interop.
func (v Value) ToInterface() interface{} {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number
	case KindString:
		return v.Str
	case KindArray:
		out := make([]interface{}, len(v.Array))
		for i, item := range v.Array {
			out[i] = item.ToInterface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.Object))
		for _, kv := range v.Object {
			out[kv.Key] = kv.Value.ToInterface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler, preserving Object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindNumber:
		return json.Marshal(v.Number)
	case KindString:
		return json.Marshal(v.Str)
	case KindArray:
		buf := []byte{'['}
		for i, item := range v.Array {
			if i > 0 {
				buf = append(buf, ',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, b...)
		}
		return append(buf, ']'), nil
	case KindObject:
		buf := []byte{'{'}
		for i, kv := range v.Object {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyJSON, err := json.Marshal(kv.Key)
			if err != nil {
				return nil, err
			}
			buf = append(buf, keyJSON...)
			buf = append(buf, ':')
			valJSON, err := kv.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, valJSON...)
		}
		return append(buf, '}'), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler, preserving Object key order
// by decoding through a token stream rather than into map[string]interface{}.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Null(), err
			}
			return Value{Kind: KindArray, Array: items}, nil
		case '{':
			var pairs []KV
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, _ := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				pairs = append(pairs, KV{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Null(), err
			}
			return Value{Kind: KindObject, Object: pairs}, nil
		}
	}
	return Null(), fmt.Errorf("model: unexpected token %v", tok)
}

