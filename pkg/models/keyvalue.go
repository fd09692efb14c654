package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// KeyValueMapping maps raw key text to every value text found for it.
// Keys keep the order in which they were first added (document scan order),
// so the JSON encoding is stable across runs.
type KeyValueMapping struct {
	keys   []string
	values map[string][]string
}

// NewKeyValueMapping returns an empty mapping.
func NewKeyValueMapping() *KeyValueMapping {
	return &KeyValueMapping{values: make(map[string][]string)}
}

// Add appends value to the sequence stored under key.
func (m *KeyValueMapping) Add(key, value string) {
	m.init()
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = append(m.values[key], value)
}

// Set replaces the sequence stored under key, keeping its original position.
func (m *KeyValueMapping) Set(key string, values []string) {
	m.init()
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = append([]string(nil), values...)
}

// Keys returns the keys in insertion order.
func (m *KeyValueMapping) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Values returns the values stored under key in insertion order.
func (m *KeyValueMapping) Values(key string) []string {
	if m == nil || m.values == nil {
		return nil
	}
	return append([]string(nil), m.values[key]...)
}

// Len returns the number of distinct keys.
func (m *KeyValueMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *KeyValueMapping) init() {
	if m.values == nil {
		m.values = make(map[string][]string)
	}
}

// MarshalJSON encodes the mapping as an object of string arrays in key order.
func (m *KeyValueMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, key := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := encodeJSON(key)
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')

			values := m.values[key]
			if values == nil {
				values = []string{}
			}
			v, err := encodeJSON(values)
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object whose values are arrays or scalars, keeping
// the key order of the input. Scalars become single-element sequences.
func (m *KeyValueMapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("key-value mapping: expected object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string][]string)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("key-value mapping: expected string key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("key-value mapping: value for %q: %w", key, err)
		}
		values, err := decodeValues(raw)
		if err != nil {
			return fmt.Errorf("key-value mapping: value for %q: %w", key, err)
		}
		m.Set(key, values)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func decodeValues(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var items []interface{}
		if err := dec.Decode(&items); err != nil {
			return nil, err
		}
		values := make([]string, 0, len(items))
		for _, item := range items {
			values = append(values, scalarString(item))
		}
		return values, nil
	}

	var item interface{}
	if err := dec.Decode(&item); err != nil {
		return nil, err
	}
	return []string{scalarString(item)}, nil
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := encodeJSON(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// encodeJSON marshals v without HTML escaping, so OCR text such as "A&B" is
// written as-is.
func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
