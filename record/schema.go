package record

import "fmt"

// Property is a single global property declaration: the field name and wire
// type code it maps to for every schemaful class that uses it (glossary,
// "global property").
type Property struct {
	Name string
	Type byte
}

// Schema is the cached mapping from global property id to (name, type),
// fetched once at connect time and replaced only by an explicit refetch
// (spec.md §3, "Schema is created once after auth and replaced only by an
// explicit refetch").
type Schema struct {
	byID   map[int32]Property
	byName map[string]int32
}

// NewSchema builds a Schema from a global-id -> Property mapping.
func NewSchema(properties map[int32]Property) *Schema {
	cp := make(map[int32]Property, len(properties))
	byName := make(map[string]int32, len(properties))
	for id, p := range properties {
		cp[id] = p
		byName[p.Name] = id
	}
	return &Schema{byID: cp, byName: byName}
}

// lookupByName finds the global property id for a field name, if the
// schema has one registered. Global properties are not scoped to a class
// (glossary, "global property"); the class parameter is accepted for
// symmetry with callers but unused for lookup.
func (s *Schema) lookupByName(_ string, name string) (int32, Property, bool) {
	if s == nil {
		return 0, Property{}, false
	}
	id, ok := s.byName[name]
	if !ok {
		return 0, Property{}, false
	}
	return id, s.byID[id], true
}

// Len reports how many global properties the schema has cached.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byID)
}

// Lookup resolves a global property id. The returned error is
// *UnknownPropertyError (never a bare error) so callers can errors.As it.
func (s *Schema) Lookup(id int32) (Property, error) {
	if s == nil {
		return Property{}, &UnknownPropertyError{ID: id}
	}
	p, ok := s.byID[id]
	if !ok {
		return Property{}, &UnknownPropertyError{ID: id}
	}
	return p, nil
}

// UnknownPropertyError is returned when decoding references a global
// property id not present in the cached Schema (spec.md §4.2,
// "UnknownPropertyId so the caller may refetch the schema and retry").
type UnknownPropertyError struct {
	ID int32
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("record: unknown global property id %d", e.ID)
}

// FromSchemaDocument parses the "globalProperties" field of the document
// returned by fetching record #0:1 into a Schema (spec.md §4.4, "Schema
// fetch"). Each element of globalProperties is itself an embedded document
// carrying "id", "name" and "type" (an OrientDB numeric type code).
func FromSchemaDocument(doc *Document) (*Schema, error) {
	if doc == nil {
		return nil, fmt.Errorf("record: nil schema document")
	}
	v, ok := doc.Get("globalProperties")
	if !ok {
		return NewSchema(nil), nil
	}
	if v.Kind != KindList && v.Kind != KindSet {
		return nil, fmt.Errorf("record: globalProperties has unexpected kind %s", v.Kind)
	}
	elems := v.List
	if v.Kind == KindSet {
		elems = v.Set
	}

	properties := make(map[int32]Property, len(elems))
	for i, elem := range elems {
		if elem.Kind != KindDocument || elem.Doc == nil {
			return nil, fmt.Errorf("record: globalProperties[%d] is not a document", i)
		}
		idVal, ok := elem.Doc.Get("id")
		if !ok {
			return nil, fmt.Errorf("record: globalProperties[%d] missing id", i)
		}
		nameVal, ok := elem.Doc.Get("name")
		if !ok {
			return nil, fmt.Errorf("record: globalProperties[%d] missing name", i)
		}
		typeVal, ok := elem.Doc.Get("type")
		if !ok {
			return nil, fmt.Errorf("record: globalProperties[%d] missing type", i)
		}

		id, err := asInt32(idVal)
		if err != nil {
			return nil, fmt.Errorf("record: globalProperties[%d].id: %w", i, err)
		}
		typeCode, err := asInt32(typeVal)
		if err != nil {
			return nil, fmt.Errorf("record: globalProperties[%d].type: %w", i, err)
		}

		properties[id] = Property{Name: nameVal.Str, Type: byte(typeCode)}
	}

	return NewSchema(properties), nil
}

func asInt32(v Value) (int32, error) {
	switch v.Kind {
	case KindInt32:
		return v.Int32, nil
	case KindInt64:
		return int32(v.Int64), nil
	default:
		return 0, fmt.Errorf("expected an integer kind, got %s", v.Kind)
	}
}
