// Package changes builds field-level snapshots and diffs of entities for the audit trail.
package changes

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// Snapshot is the full state of an entity keyed by its JSON field names.
type Snapshot map[string]any

// Change holds the before and after value of a single field.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Set maps field names to their change. A nil Set means "no diff".
type Set map[string]Change

// Of snapshots any JSON-serialisable value. A nil input yields a nil Snapshot.
func Of(v any) (Snapshot, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

// Diff compares every field present in newer against older. It returns nil when either
// side is absent or when no field's serialized form differs.
func Diff(older, newer Snapshot) Set {
	if older == nil || newer == nil {
		return nil
	}

	var set Set
	for field, newVal := range newer {
		oldVal := older[field]
		if sameValue(oldVal, newVal) {
			continue
		}
		if set == nil {
			set = make(Set)
		}
		set[field] = Change{Old: oldVal, New: newVal}
	}
	return set
}

func sameValue(a, b any) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		// unserialisable values are treated as changed
		return false
	}
	return bytes.Equal(ra, rb)
}

// Fields returns the names of the changed fields in sorted order.
func (s Set) Fields() []string {
	fields := make([]string, 0, len(s))
	for f := range s {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Value implements driver.Valuer for jsonb columns.
func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(map[string]any(s))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for jsonb columns.
func (s *Snapshot) Scan(src any) error {
	raw, err := scanBytes(src)
	if err != nil || raw == nil {
		*s = nil
		return err
	}
	return json.Unmarshal(raw, s)
}

// Value implements driver.Valuer for jsonb columns.
func (s Set) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(map[string]Change(s))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for jsonb columns.
func (s *Set) Scan(src any) error {
	raw, err := scanBytes(src)
	if err != nil || raw == nil {
		*s = nil
		return err
	}
	return json.Unmarshal(raw, s)
}

func scanBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("changes: unsupported scan type %T", src)
	}
}
