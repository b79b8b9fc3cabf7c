// Package rpc carries request/response commands between the planner and its collaborators.
//
// Commands and replies are Bottles: ordered lists of strings, numbers, booleans and nested
// lists. Keyed fields are encoded as a nested list whose first element is the key, e.g.
// ("pose" (x y z rx ry rz theta)).
package rpc

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// AckToken is the vocabulary token collaborators reply with on success.
const AckToken = "ack"

// Bottle is an ordered list of values.
type Bottle []interface{}

// NewBottle returns a bottle holding the given values.
func NewBottle(values ...interface{}) Bottle {
	return Bottle(values)
}

// Size returns the number of top level elements.
func (b Bottle) Size() int {
	return len(b)
}

// Get returns the i-th element or nil when out of range.
func (b Bottle) Get(i int) interface{} {
	if i < 0 || i >= len(b) {
		return nil
	}
	return b[i]
}

// String returns the i-th element if it is a string.
func (b Bottle) String(i int) (string, bool) {
	s, ok := b.Get(i).(string)
	return s, ok
}

// Float returns the i-th element as a float64 if it is numeric.
func (b Bottle) Float(i int) (float64, bool) {
	return toFloat(b.Get(i))
}

// Int returns the i-th element as an int if it is numeric.
func (b Bottle) Int(i int) (int, bool) {
	f, ok := toFloat(b.Get(i))
	return int(f), ok
}

// List returns the i-th element if it is a nested list.
func (b Bottle) List(i int) (Bottle, bool) {
	return toBottle(b.Get(i))
}

// IsVocab reports whether the i-th element is the given token.
func (b Bottle) IsVocab(i int, vocab string) bool {
	s, ok := b.String(i)
	return ok && s == vocab
}

// Find looks for a nested (key value) list and returns its value.
func (b Bottle) Find(key string) (interface{}, bool) {
	for _, v := range b {
		sub, ok := toBottle(v)
		if !ok || sub.Size() < 2 {
			continue
		}
		if sub.IsVocab(0, key) {
			return sub[1], true
		}
	}
	return nil, false
}

// FindList is Find for list values.
func (b Bottle) FindList(key string) (Bottle, bool) {
	v, ok := b.Find(key)
	if !ok {
		return nil, false
	}
	return toBottle(v)
}

// Floats returns every element as a float64, failing if any element is not numeric.
func (b Bottle) Floats() ([]float64, bool) {
	out := make([]float64, 0, len(b))
	for _, v := range b {
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

// IsExactAck reports whether the bottle is the bare acknowledgment [ack] and nothing else.
func (b Bottle) IsExactAck() bool {
	return b.Size() == 1 && b.IsVocab(0, AckToken)
}

// Text renders the bottle the way collaborators log it: (a b (c d)).
func (b Bottle) Text() string {
	parts := lo.Map(b, func(v interface{}, _ int) string {
		if sub, ok := toBottle(v); ok {
			return sub.Text()
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	})
	return "(" + strings.Join(parts, " ") + ")"
}

// FloatsBottle wraps a float slice as a nested list value.
func FloatsBottle(values []float64) Bottle {
	return lo.Map(values, func(v float64, _ int) interface{} { return v })
}

func toBottle(v interface{}) (Bottle, bool) {
	switch t := v.(type) {
	case Bottle:
		return t, true
	case []interface{}:
		return Bottle(t), true
	default:
		return nil, false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint32:
		return float64(t), true
	default:
		return 0, false
	}
}

// toWire converts nested Bottles into plain []interface{} so they can become structpb values.
func toWire(b Bottle) []interface{} {
	return lo.Map(b, func(v interface{}, _ int) interface{} {
		switch t := v.(type) {
		case Bottle:
			return toWire(t)
		case []interface{}:
			return toWire(Bottle(t))
		case uint8:
			return int(t)
		default:
			return v
		}
	})
}

// fromWire is the inverse of toWire for values decoded from structpb.
func fromWire(values []interface{}) Bottle {
	return lo.Map(values, func(v interface{}, _ int) interface{} {
		if sub, ok := v.([]interface{}); ok {
			return fromWire(sub)
		}
		return v
	})
}
