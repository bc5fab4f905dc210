package rtbind

import "reflect"

const (
	// KeyField holds the identifying key on every Record.
	KeyField = ".key"
	// ValueField holds the raw payload when it is not a mapping.
	ValueField = ".value"
)

// CreateRecord is the default Serializer. Mapping payloads are copied and gain
// KeyField; anything else is wrapped as {KeyField: key, ValueField: payload}.
// The snapshot payload is never mutated.
func CreateRecord(snapshot Snapshot) Record {
	if snapshot == nil {
		return Record{KeyField: "", ValueField: nil}
	}
	return shapeRecord(snapshot.Key(), snapshot.Val())
}

func shapeRecord(key string, value any) Record {
	if fields, ok := asMapping(value); ok {
		record := make(Record, len(fields)+1)
		for name, field := range fields {
			record[name] = field
		}
		record[KeyField] = key
		return record
	}
	return Record{KeyField: key, ValueField: value}
}

// asMapping reports whether value is a non-nil map with string keys and
// returns a shallow view of it.
func asMapping(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case nil:
		return nil, false
	case map[string]any:
		if typed == nil {
			return nil, false
		}
		return typed, true
	case Record:
		if typed == nil {
			return nil, false
		}
		return typed, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
