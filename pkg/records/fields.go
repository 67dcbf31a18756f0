package records

// Field is one named value.
type Field struct {
	Name  string
	Value Value
}

// Fields is an ordered field mapping. Order is insertion order and is
// preserved on the wire.
type Fields []Field

// Get returns the named value.
func (fs Fields) Get(name string) (Value, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the named value in place, or appends it.
func (fs Fields) Set(name string, v Value) Fields {
	for i := range fs {
		if fs[i].Name == name {
			fs[i].Value = v
			return fs
		}
	}
	return append(fs, Field{Name: name, Value: v})
}

// Names returns the field names in order.
func (fs Fields) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// Clone returns an independent copy.
func (fs Fields) Clone() Fields {
	if fs == nil {
		return nil
	}
	out := make(Fields, len(fs))
	copy(out, fs)
	return out
}
