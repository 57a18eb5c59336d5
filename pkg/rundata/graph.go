// Package rundata models the interpreter's working state for one execution as
// a reference-sharing, possibly cyclic graph, and provides the flat codec used
// to persist it.
package rundata

import "time"

// Kind discriminates the variants of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

// Value is one node of a run-data graph. Lists and objects hold pointers, so
// the same Value may be referenced from several places and graphs may contain
// cycles. The codec preserves that sharing across encode/decode.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Items  []*Value
	Fields map[string]*Value
}

// Null returns a null Value.
func Null() *Value {
	return &Value{Kind: KindNull}
}

// Bool returns a boolean Value.
func Bool(b bool) *Value {
	return &Value{Kind: KindBool, Bool: b}
}

// Number returns a numeric Value.
func Number(n float64) *Value {
	return &Value{Kind: KindNumber, Number: n}
}

// String returns a string Value.
func String(s string) *Value {
	return &Value{Kind: KindString, Str: s}
}

// List returns a list Value holding the given items.
func List(items ...*Value) *Value {
	return &Value{Kind: KindList, Items: items}
}

// Object returns an empty object Value.
func Object() *Value {
	return &Value{Kind: KindObject, Fields: make(map[string]*Value)}
}

// Set stores a field on an object Value and returns the Value for chaining.
func (v *Value) Set(key string, child *Value) *Value {
	if v.Fields == nil {
		v.Fields = make(map[string]*Value)
	}

	v.Fields[key] = child

	return v
}

// Get returns an object field, or nil when absent.
func (v *Value) Get(key string) *Value {
	if v == nil || v.Fields == nil {
		return nil
	}

	return v.Fields[key]
}

// AttachCancellation records a cancellation error inside a run-data graph so
// the next reader of the execution can see why the run ended. A nil or
// non-object root is wrapped into a fresh object first.
func AttachCancellation(root *Value, message string, at time.Time) *Value {
	if root == nil || root.Kind != KindObject {
		wrapped := Object()
		if root != nil {
			wrapped.Set("data", root)
		}

		root = wrapped
	}

	cancellation := Object()
	cancellation.Set("name", String("ExecutionCanceled"))
	cancellation.Set("message", String(message))
	cancellation.Set("timestamp", String(at.UTC().Format(time.RFC3339Nano)))

	root.Set("error", cancellation)

	return root
}
