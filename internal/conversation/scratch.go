package conversation

import (
	"encoding/json"
	"strconv"
)

// Scratch is the ordered key/value bag a flow fills step by step.
// The zero value is empty and ready to use.
type Scratch struct {
	keys   []string
	values map[string]string
}

func NewScratch() *Scratch { return &Scratch{} }

func (s *Scratch) Get(key string) (string, bool) {
	if s == nil || s.values == nil {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Value returns the value for key, or "" when absent.
func (s *Scratch) Value(key string) string {
	v, _ := s.Get(key)
	return v
}

// Int parses the value for key; ok is false when absent or not a number.
func (s *Scratch) Int(key string) (int, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// Set upserts key. A new key goes to the end; an existing key keeps its place.
func (s *Scratch) Set(key, value string) {
	if s.values == nil {
		s.values = map[string]string{}
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *Scratch) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

func (s *Scratch) Clear() {
	s.keys = nil
	s.values = nil
}

func (s *Scratch) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns keys in insertion order.
func (s *Scratch) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

func (s *Scratch) Clone() *Scratch {
	c := &Scratch{}
	if s == nil {
		return c
	}
	for _, k := range s.keys {
		c.Set(k, s.values[k])
	}
	return c
}

type scratchEntry struct {
	Key   string `json:"k"`
	Value string `json:"v"`
}

// MarshalJSON encodes the bag as an array of pairs to keep the order.
func (s *Scratch) MarshalJSON() ([]byte, error) {
	entries := make([]scratchEntry, 0, s.Len())
	if s != nil {
		for _, k := range s.keys {
			entries = append(entries, scratchEntry{Key: k, Value: s.values[k]})
		}
	}
	return json.Marshal(entries)
}

func (s *Scratch) UnmarshalJSON(b []byte) error {
	var entries []scratchEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return err
	}
	s.Clear()
	for _, e := range entries {
		s.Set(e.Key, e.Value)
	}
	return nil
}

type scratchOp struct {
	key    string
	value  string
	delete bool
}

func (op scratchOp) apply(s *Scratch) {
	if op.delete {
		s.Delete(op.key)
		return
	}
	s.Set(op.key, op.value)
}
