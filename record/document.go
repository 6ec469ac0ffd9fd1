// Package record implements the OrientDB compact binary record/document
// format: class name, an ordered field table keyed either by name or by a
// schema-resolved global property id, and a data area holding each field's
// typed value (spec.md §3, §4.2).
package record

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// RID is a Record Identifier: a cluster id and a position within that
// cluster (spec.md §3, glossary "RID").
type RID struct {
	Cluster  int16
	Position int64
}

// String renders a RID in OrientDB's literal form, "#cluster:position".
func (r RID) String() string {
	return fmt.Sprintf("#%d:%d", r.Cluster, r.Position)
}

// ParseRID parses an OrientDB RID literal such as "#9:0" or "9:0".
func ParseRID(s string) (RID, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return RID{}, fmt.Errorf("record: invalid RID literal %q", s)
	}
	cluster, err := strconv.ParseInt(parts[0], 10, 16)
	if err != nil {
		return RID{}, fmt.Errorf("record: invalid RID cluster in %q: %w", s, err)
	}
	pos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return RID{}, fmt.Errorf("record: invalid RID position in %q: %w", s, err)
	}
	return RID{Cluster: int16(cluster), Position: pos}, nil
}

// Decimal is an arbitrary-precision fixed-point value: an unscaled integer
// magnitude plus a base-10 scale (spec.md §4.2, "decimal (scale + big-endian
// two's-complement value bytes)"). math/big is standard library and is used
// here rather than a third-party decimal type — see DESIGN.md.
type Decimal struct {
	Scale    int32
	Unscaled *big.Int
}

// String renders the decimal in plain notation, e.g. Decimal{Scale: 2,
// Unscaled: big.NewInt(12345)}.String() == "123.45".
func (d Decimal) String() string {
	if d.Unscaled == nil {
		return "0"
	}
	s := d.Unscaled.String()
	if d.Scale <= 0 {
		return s + strings.Repeat("0", int(-d.Scale))
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for int64(len(s)) <= int64(d.Scale) {
		s = "0" + s
	}
	cut := len(s) - int(d.Scale)
	out := s[:cut] + "." + s[cut:]
	if neg {
		out = "-" + out
	}
	return out
}

// Kind identifies which field of Value is populated. It is a closed
// enumeration (spec.md §9, "prefer a sum type over open polymorphism") and
// mirrors the field Value union in spec.md §3 exactly.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat
	KindDouble
	KindDecimal
	KindString
	KindBytes
	KindDocument
	KindList
	KindSet
	KindMap
	KindLink
	KindLinkList
	KindLinkSet
	KindLinkMap
	KindDateTime
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindFloat:
		return "Float"
	case KindDouble:
		return "Double"
	case KindDecimal:
		return "Decimal"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindDocument:
		return "EmbeddedDocument"
	case KindList:
		return "List"
	case KindSet:
		return "Set"
	case KindMap:
		return "Map"
	case KindLink:
		return "Link"
	case KindLinkList:
		return "LinkList"
	case KindLinkSet:
		return "LinkSet"
	case KindLinkMap:
		return "LinkMap"
	case KindDateTime:
		return "DateTime"
	case KindDate:
		return "Date"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is a single field value: a closed tagged union over every shape the
// wire format can carry (spec.md §3). Only the field(s) matching Kind are
// meaningful; the zero Value is KindNull.
type Value struct {
	Kind Kind

	Bool    bool
	Int32   int32
	Int64   int64
	Float32 float32
	Float64 float64
	Decimal Decimal
	Str     string
	Bytes   []byte
	Doc     *Document
	List    []Value
	Set     []Value
	Map     []MapEntry
	Link    RID
	Links   []RID
	LinkMap []LinkMapEntry
	Time    time.Time
}

// MapEntry is one key/value pair of an EmbeddedMap; order is preserved on
// decode the way Document field order is.
type MapEntry struct {
	Key   string
	Value Value
}

// LinkMapEntry is one key/RID pair of a LinkMap.
type LinkMapEntry struct {
	Key  string
	Link RID
}

func Null() Value                 { return Value{Kind: KindNull} }
func Bool(v bool) Value           { return Value{Kind: KindBool, Bool: v} }
func Int32(v int32) Value         { return Value{Kind: KindInt32, Int32: v} }
func Int64(v int64) Value         { return Value{Kind: KindInt64, Int64: v} }
func Float(v float32) Value       { return Value{Kind: KindFloat, Float32: v} }
func Double(v float64) Value      { return Value{Kind: KindDouble, Float64: v} }
func String(v string) Value       { return Value{Kind: KindString, Str: v} }
func Bytes(v []byte) Value        { return Value{Kind: KindBytes, Bytes: v} }
func EmbeddedDoc(v *Document) Value { return Value{Kind: KindDocument, Doc: v} }
func List(v []Value) Value        { return Value{Kind: KindList, List: v} }
func Set(v []Value) Value         { return Value{Kind: KindSet, Set: v} }
func Map(v []MapEntry) Value      { return Value{Kind: KindMap, Map: v} }
func Link(v RID) Value            { return Value{Kind: KindLink, Link: v} }
func LinkList(v []RID) Value      { return Value{Kind: KindLinkList, Links: v} }
func LinkSet(v []RID) Value       { return Value{Kind: KindLinkSet, Links: v} }
func LinkMapVal(v []LinkMapEntry) Value {
	return Value{Kind: KindLinkMap, LinkMap: v}
}
func DateTime(v time.Time) Value { return Value{Kind: KindDateTime, Time: v} }
func Date(v time.Time) Value     { return Value{Kind: KindDate, Time: v} }

// Field is one entry of a Document's ordered field table.
type Field struct {
	Name  string
	Value Value
}

// Document is a record: a class name (possibly empty, meaning schemaless),
// an ordered field table, and, once loaded from or saved to the server, a
// RID and version (spec.md §3).
type Document struct {
	Class   string
	Fields  []Field
	RID     *RID
	Version int32
}

// New creates an empty document of the given class ("" for schemaless).
func New(class string) *Document {
	return &Document{Class: class}
}

// Set appends or replaces a field, preserving the position of an existing
// field with the same name.
func (d *Document) Set(name string, v Value) *Document {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			d.Fields[i].Value = v
			return d
		}
	}
	d.Fields = append(d.Fields, Field{Name: name, Value: v})
	return d
}

// Get returns the named field's value and whether it was present.
func (d *Document) Get(name string) (Value, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}
