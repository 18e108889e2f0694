package model

// Tree is the decoded lala.cgi state: section -> field -> value.
// Values are int64, float64, string or []any of those.
type Tree map[string]map[string]any

// Get returns the raw value of section.field.
func (t Tree) Get(section, field string) (any, bool) {
	if t == nil {
		return nil, false
	}
	fields, ok := t[section]
	if !ok || fields == nil {
		return nil, false
	}
	v, ok := fields[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Set patches a single field, creating the section if needed.
func (t Tree) Set(section, field string, value any) {
	if t == nil {
		return
	}
	fields, ok := t[section]
	if !ok || fields == nil {
		fields = make(map[string]any)
		t[section] = fields
	}
	fields[field] = value
}

func (t Tree) Float(section, field string) (float64, bool) {
	v, ok := t.Get(section, field)
	if !ok {
		return 0, false
	}
	return AsFloat(v)
}

func (t Tree) Int(section, field string) (int64, bool) {
	v, ok := t.Get(section, field)
	if !ok {
		return 0, false
	}
	return AsInt(v)
}

func (t Tree) String(section, field string) (string, bool) {
	v, ok := t.Get(section, field)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (t Tree) Array(section, field string) ([]any, bool) {
	v, ok := t.Get(section, field)
	if !ok {
		return nil, false
	}
	a, ok := v.([]any)
	return a, ok
}

func (t Tree) FloatAt(section, field string, idx int) (float64, bool) {
	a, ok := t.Array(section, field)
	if !ok || idx < 0 || idx >= len(a) {
		return 0, false
	}
	return AsFloat(a[idx])
}

func (t Tree) IntAt(section, field string, idx int) (int64, bool) {
	a, ok := t.Array(section, field)
	if !ok || idx < 0 || idx >= len(a) {
		return 0, false
	}
	return AsInt(a[idx])
}

// Clone copies the two map levels and any arrays so patches never alias a committed tree.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for section, fields := range t {
		f := make(map[string]any, len(fields))
		for k, v := range fields {
			if a, ok := v.([]any); ok {
				v = append([]any(nil), a...)
			}
			f[k] = v
		}
		out[section] = f
	}
	return out
}

func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func AsInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case float32:
		return int64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
