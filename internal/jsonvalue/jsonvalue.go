// Package jsonvalue represents arbitrary JSON documents as a tagged variant
// that keeps object members in document order.
package jsonvalue

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned for input that is not a single JSON value
var ErrInvalidJSON = errors.New("invalid JSON")

// Kind tags the variant held by a Value
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "invalid"
}

// Member is one key/value pair of an object
type Member struct {
	Key   string
	Value Value
}

// Value is a JSON value. Only the field matching Kind is meaningful.
type Value struct {
	Kind    Kind
	Bool    bool
	Number  float64
	Str     string
	Items   []Value
	Members []Member
}

// Parse decodes data into a Value
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.True:
		return Value{Kind: Bool, Bool: true}
	case gjson.False:
		return Value{Kind: Bool}
	case gjson.Number:
		return Value{Kind: Number, Number: r.Num}
	case gjson.String:
		return Value{Kind: String, Str: r.Str}
	case gjson.JSON:
		if r.IsArray() {
			v := Value{Kind: Array, Items: []Value{}}
			r.ForEach(func(_, item gjson.Result) bool {
				v.Items = append(v.Items, fromResult(item))
				return true
			})
			return v
		}
		v := Value{Kind: Object, Members: []Member{}}
		r.ForEach(func(key, item gjson.Result) bool {
			v.Members = append(v.Members, Member{Key: key.Str, Value: fromResult(item)})
			return true
		})
		return v
	}
	return Value{Kind: Null}
}

// Get returns the member named key of an object. With duplicate keys the
// last one wins, as in a decoded map.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != Object {
		return Value{}, false
	}
	for i := len(v.Members) - 1; i >= 0; i-- {
		if v.Members[i].Key == key {
			return v.Members[i].Value, true
		}
	}
	return Value{}, false
}

// IsContainer reports whether v is an array or an object
func (v Value) IsContainer() bool {
	return v.Kind == Array || v.Kind == Object
}

// StringValue builds a string Value
func StringValue(s string) Value {
	return Value{Kind: String, Str: s}
}

// ObjectValue builds an object Value from members in order
func ObjectValue(members ...Member) Value {
	return Value{Kind: Object, Members: members}
}

// ArrayValue builds an array Value
func ArrayValue(items ...Value) Value {
	return Value{Kind: Array, Items: items}
}
