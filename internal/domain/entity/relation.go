package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Relation references another document by ID and optionally carries the
// expanded document. API payloads may send a relation as a number, a numeric
// string, null, or the full object; all forms normalize to the same ID.
type Relation[T any] struct {
	id  int64
	doc *T
}

// Ref creates a relation holding only an ID
func Ref[T any](id int64) Relation[T] {
	return Relation[T]{id: id}
}

// Expanded creates a relation carrying the referenced document
func Expanded[T any](id int64, doc *T) Relation[T] {
	return Relation[T]{id: id, doc: doc}
}

// ID returns the referenced ID, 0 when unset
func (r Relation[T]) ID() int64 {
	return r.id
}

// IsSet reports whether the relation points at a document
func (r Relation[T]) IsSet() bool {
	return r.id != 0
}

// Doc returns the expanded document, nil when only the ID is known
func (r Relation[T]) Doc() *T {
	return r.doc
}

// Bare drops the expanded document and keeps the ID
func (r Relation[T]) Bare() Relation[T] {
	return Relation[T]{id: r.id}
}

// Same reports whether both relations reference the same document
func (r Relation[T]) Same(other Relation[T]) bool {
	return r.id == other.id
}

// IDPtr returns the ID as a nullable value for persistence
func (r Relation[T]) IDPtr() *int64 {
	if r.id == 0 {
		return nil
	}
	id := r.id
	return &id
}

// RefPtr builds a relation from a nullable persisted ID
func RefPtr[T any](id *int64) Relation[T] {
	if id == nil {
		return Relation[T]{}
	}
	return Relation[T]{id: *id}
}

// MarshalJSON writes the expanded document when present, the ID otherwise
func (r Relation[T]) MarshalJSON() ([]byte, error) {
	if r.doc != nil {
		return json.Marshal(r.doc)
	}
	if r.id == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(r.id, 10)), nil
}

// UnmarshalJSON accepts a number, a numeric string, null or an object with an id field
func (r *Relation[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = Relation[T]{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '{':
		var ref struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(data, &ref); err != nil {
			return fmt.Errorf("relation object: %w", err)
		}
		id, err := parseRelationID(ref.ID)
		if err != nil {
			return err
		}
		if len(ref.ID) > 0 && ref.ID[0] == '"' {
			if data, err = normalizeObjectID(data, id); err != nil {
				return err
			}
		}
		var doc T
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("relation document: %w", err)
		}
		r.id = id
		r.doc = &doc
		return nil
	default:
		id, err := parseRelationID(data)
		if err != nil {
			return err
		}
		r.id = id
		return nil
	}
}

// normalizeObjectID rewrites a string id as a number so the document decodes into numeric ID fields
func normalizeObjectID(data []byte, id int64) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("relation object: %w", err)
	}
	fields["id"] = json.RawMessage(strconv.FormatInt(id, 10))
	return json.Marshal(fields)
}

func parseRelationID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("relation id: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("relation id %q is not numeric", s)
		}
		return id, nil
	}

	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("relation id: %w", err)
	}
	return id, nil
}
