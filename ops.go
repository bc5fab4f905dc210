package rtbind

// Ops is the capability set every binding mutates state through, keeping the
// binder independent from how a host makes mutations observable.
type Ops interface {
	// Set assigns value to key on target. Targets are host objects (field
	// name keys) or an *Array (int index keys, Record values).
	Set(target any, key any, value any)
	// Add inserts record at index.
	Add(array *Array, index int, record Record)
	// Remove removes the record at index and returns it as a one-element
	// slice.
	Remove(array *Array, index int) []Record
}

// FieldSetter is implemented by host objects that own named fields.
type FieldSetter interface {
	SetField(name string, value any)
}

// DefaultOps mutates plain Go containers: map[string]any and FieldSetter
// targets for fields, *Array for sequences.
var DefaultOps Ops = plainOps{}

type plainOps struct{}

func (plainOps) Set(target any, key any, value any) {
	switch t := target.(type) {
	case *Array:
		index, ok := key.(int)
		if !ok {
			return
		}
		record, _ := value.(Record)
		t.Replace(index, record)
	case FieldSetter:
		if name, ok := key.(string); ok {
			t.SetField(name, value)
		}
	case map[string]any:
		if name, ok := key.(string); ok && t != nil {
			t[name] = value
		}
	}
}

func (plainOps) Add(array *Array, index int, record Record) {
	if array == nil {
		return
	}
	array.Insert(index, record)
}

func (plainOps) Remove(array *Array, index int) []Record {
	if array == nil {
		return nil
	}
	removed, ok := array.RemoveAt(index)
	if !ok {
		return nil
	}
	return []Record{removed}
}
