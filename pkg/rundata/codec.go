package rundata

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrCorruptPayload indicates stored run-data bytes that cannot be decoded:
// a truncated stream, a bad version marker, or a dangling slot reference.
// Callers must surface it, never coerce it into an empty graph.
var ErrCorruptPayload = errors.New("corrupt run-data payload")

const codecVersion = 1

// envelope is the stored form of a graph: every distinct Value gets one slot,
// and children are referenced by slot index. Index -1 stands for a nil child.
type envelope struct {
	Version int        `json:"v"`
	Root    int        `json:"root"`
	Slots   []flatSlot `json:"slots"`
}

type flatSlot struct {
	Kind   Kind           `json:"k"`
	Bool   bool           `json:"b,omitempty"`
	Number float64        `json:"n,omitempty"`
	Str    string         `json:"s,omitempty"`
	Items  []int          `json:"i,omitempty"`
	Fields map[string]int `json:"f,omitempty"`
}

// Encode flattens a graph into its stored representation. The traversal is an
// explicit worklist, not structural recursion, so deep and cyclic graphs
// cannot overflow the stack: the first visit of a Value assigns it a slot and
// queues it, later visits emit the existing slot index.
func Encode(root *Value) ([]byte, error) {
	env := envelope{Version: codecVersion, Root: -1}

	if root != nil {
		slots := map[*Value]int{root: 0}
		order := []*Value{root}
		env.Root = 0

		assign := func(v *Value) int {
			if v == nil {
				return -1
			}

			if idx, ok := slots[v]; ok {
				return idx
			}

			idx := len(order)
			slots[v] = idx
			order = append(order, v)

			return idx
		}

		for cursor := 0; cursor < len(order); cursor++ {
			value := order[cursor]
			slot := flatSlot{Kind: value.Kind}

			switch value.Kind {
			case KindNull:
			case KindBool:
				slot.Bool = value.Bool
			case KindNumber:
				slot.Number = value.Number
			case KindString:
				slot.Str = value.Str
			case KindList:
				slot.Items = make([]int, 0, len(value.Items))
				for _, item := range value.Items {
					slot.Items = append(slot.Items, assign(item))
				}
			case KindObject:
				slot.Fields = make(map[string]int, len(value.Fields))

				keys := make([]string, 0, len(value.Fields))
				for key := range value.Fields {
					keys = append(keys, key)
				}

				// Sorted keys keep the byte output stable for identical graphs.
				sort.Strings(keys)

				for _, key := range keys {
					slot.Fields[key] = assign(value.Fields[key])
				}
			default:
				return nil, fmt.Errorf("cannot encode run-data value of kind %d", value.Kind)
			}

			env.Slots = append(env.Slots, slot)
		}
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run-data envelope: %w", err)
	}

	return payload, nil
}

// Decode rebuilds a graph from its stored representation. All slots are first
// materialized as empty shells, then children are patched in by resolving slot
// indexes against the shells; a shell therefore exists before any reference to
// it is resolved, which is what lets cycles decode correctly.
func Decode(payload []byte) (*Value, error) {
	var env envelope

	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptPayload, err.Error())
	}

	if env.Version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported codec version %d", ErrCorruptPayload, env.Version)
	}

	if env.Root == -1 {
		return nil, nil
	}

	shells := make([]*Value, len(env.Slots))
	for i, slot := range env.Slots {
		if slot.Kind > KindObject {
			return nil, fmt.Errorf("%w: unknown value kind %d in slot %d", ErrCorruptPayload, slot.Kind, i)
		}

		shells[i] = &Value{
			Kind:   slot.Kind,
			Bool:   slot.Bool,
			Number: slot.Number,
			Str:    slot.Str,
		}
	}

	resolve := func(idx int) (*Value, error) {
		if idx == -1 {
			return nil, nil
		}

		if idx < 0 || idx >= len(shells) {
			return nil, fmt.Errorf("%w: dangling slot reference %d", ErrCorruptPayload, idx)
		}

		return shells[idx], nil
	}

	for i, slot := range env.Slots {
		switch slot.Kind {
		case KindList:
			shells[i].Items = make([]*Value, 0, len(slot.Items))

			for _, idx := range slot.Items {
				item, err := resolve(idx)
				if err != nil {
					return nil, err
				}

				shells[i].Items = append(shells[i].Items, item)
			}
		case KindObject:
			shells[i].Fields = make(map[string]*Value, len(slot.Fields))

			for key, idx := range slot.Fields {
				field, err := resolve(idx)
				if err != nil {
					return nil, err
				}

				shells[i].Fields[key] = field
			}
		}
	}

	root, err := resolve(env.Root)
	if err != nil {
		return nil, err
	}

	return root, nil
}
