package mpt

import "encoding/json"

// Document is a platform record held as raw JSON structure. The clone rules
// copy most fields verbatim, so records keep every field the API returned
// instead of being narrowed into structs.
type Document map[string]any

// ID returns the record's top-level "id", or "" when absent.
func (d Document) ID() string {
	return d.Str("id")
}

// Str walks the given key path and returns the string value at the end, or ""
// when any step is missing or of the wrong type. A list encountered on the
// way is traversed through its first element, matching how the platform
// nests single-valued relations.
func (d Document) Str(path ...string) string {
	v := d.get(path...)
	s, _ := v.(string)
	return s
}

// Float returns the numeric value at the key path, or 0.
func (d Document) Float(path ...string) float64 {
	switch v := d.get(path...).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

// Bool returns the boolean value at the key path, or false.
func (d Document) Bool(path ...string) bool {
	b, _ := d.get(path...).(bool)
	return b
}

// Doc returns the nested object at the key path, or nil.
func (d Document) Doc(path ...string) Document {
	switch v := d.get(path...).(type) {
	case map[string]any:
		return Document(v)
	case Document:
		return v
	}
	return nil
}

// Docs returns the list of objects at the key path. A single object is
// returned as a one-element list, mirroring the platform's habit of
// collapsing single-element arrays.
func (d Document) Docs(path ...string) []Document {
	switch v := d.get(path...).(type) {
	case []any:
		out := make([]Document, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Document(m))
			}
		}
		return out
	case map[string]any:
		return []Document{Document(v)}
	}
	return nil
}

// Has reports whether the top-level key exists.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Set writes value at the key path, creating intermediate objects as needed.
func (d Document) Set(value any, path ...string) {
	cur := map[string]any(d)
	for _, key := range path[:len(path)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

// Delete removes the value at the key path. Missing intermediates are a no-op.
func (d Document) Delete(path ...string) {
	cur := map[string]any(d)
	for _, key := range path[:len(path)-1] {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, path[len(path)-1])
}

// Clone returns a deep copy via a JSON round-trip, so transforms never touch
// the source document.
func (d Document) Clone() (Document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d Document) get(path ...string) any {
	var cur any = map[string]any(d)
	for _, key := range path {
		if list, ok := cur.([]any); ok {
			if len(list) == 0 {
				return nil
			}
			cur = list[0]
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}
