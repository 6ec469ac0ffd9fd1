package record

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/mickamy/orientgo/wire"
)

// headerVersion is the single supported record serialization header byte.
const headerVersion byte = 0

const dayMillis = 86_400_000

// Encode serializes a document to its compact binary form (spec.md §4.2):
// header_version || class_name || field_table || data_area. Field-table
// entries are written with a placeholder offset and patched once the data
// area's absolute layout is known (spec.md, "Encoding constraint").
//
// When schema is non-nil and has a global property registered under a
// field's name (whatever the document's class), that field is written as a
// global-property reference instead of a named entry.
func Encode(doc *Document, schema *Schema) ([]byte, error) {
	buf := []byte{headerVersion}
	buf = append(buf, encodeCompactString(doc.Class)...)

	type pendingField struct {
		offsetPos int // index into buf of the 4-byte placeholder
		value     Value
	}
	pending := make([]pendingField, 0, len(doc.Fields))

	for _, f := range doc.Fields {
		typeCode, ok := kindToTypeCode(f.Value.Kind)
		if f.Value.Kind != KindNull && !ok {
			return nil, fmt.Errorf("record: field %q has unsupported kind %s", f.Name, f.Value.Kind)
		}

		id, rp, found := schema.lookupByName(doc.Class, f.Name)
		if found {
			buf = append(buf, wire.EncodeVarint(-(int64(id) + 1))...)
			if f.Value.Kind == KindNull {
				typeCode = rp.Type // no value bytes to infer a type from; trust the schema
			} else if rp.Type != typeCode {
				return nil, fmt.Errorf("record: field %q type %s does not match schema type for global id %d", f.Name, f.Value.Kind, id)
			}
		} else {
			buf = append(buf, wire.EncodeVarint(int64(len(f.Name)))...)
			buf = append(buf, f.Name...)
			if f.Value.Kind == KindNull {
				typeCode = typeString // no schema and no value; a placeholder type code, never consulted on decode since offset stays 0
			}
		}

		offsetPos := len(buf)
		buf = append(buf, 0, 0, 0, 0) // offset placeholder
		buf = append(buf, typeCode)

		pending = append(pending, pendingField{offsetPos: offsetPos, value: f.Value})
	}
	buf = append(buf, wire.EncodeVarint(0)...) // field-table terminator

	for _, pf := range pending {
		if pf.value.Kind == KindNull {
			continue // offset stays 0
		}
		absOffset := len(buf)
		valBytes, err := encodeValue(pf.value, schema)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBytes...)
		off := wire.EncodeInt32(int32(absOffset)) //nolint:gosec // record payloads stay well under 2GiB
		copy(buf[pf.offsetPos:pf.offsetPos+4], off)
	}

	return buf, nil
}

// Decode parses a document from its compact binary form. It returns the
// unconsumed suffix of b as rest on every outcome so the connection's
// streaming decoder can keep going (spec.md §4.3). wire.ErrNeedMore is
// returned, with rest == b, if the buffer is too short to contain a full
// record; decoding is restarted from scratch once more bytes arrive.
//
// A field whose global property id is not in schema produces an
// *UnknownPropertyError without aborting the parse of sibling fields or the
// record's overall length, so rest is still correctly positioned and a
// retry of the very same bytes succeeds once schema is refreshed (spec.md
// §8, property 6).
func Decode(b []byte, schema *Schema) (*Document, []byte, error) {
	if len(b) < 1 {
		return nil, b, wire.ErrNeedMore
	}
	if b[0] != headerVersion {
		return nil, b, fmt.Errorf("record: unsupported header version %d", b[0])
	}
	cur := b[1:]

	class, cur, err := decodeCompactString(cur)
	if err != nil {
		return nil, b, needMoreFrom(b, err)
	}

	type entry struct {
		name       string
		resolveErr error
		offset     int32
		typeCode   byte
	}
	var entries []entry

	for {
		tag, next, err := wire.DecodeVarint(cur)
		if err != nil {
			return nil, b, needMoreFrom(b, err)
		}
		cur = next
		if tag == 0 {
			break
		}

		var e entry
		if tag > 0 {
			n := int(tag)
			if len(cur) < n {
				return nil, b, wire.ErrNeedMore
			}
			e.name = string(cur[:n])
			cur = cur[n:]
		} else {
			id := int32(-tag - 1)
			prop, lookupErr := schema.Lookup(id)
			if lookupErr != nil {
				e.resolveErr = lookupErr
			} else {
				e.name = prop.Name
			}
		}

		offset, next, err := wire.DecodeInt32(cur)
		if err != nil {
			return nil, b, needMoreFrom(b, err)
		}
		cur = next
		if len(cur) < 1 {
			return nil, b, wire.ErrNeedMore
		}
		e.offset = offset
		e.typeCode = cur[0]
		cur = cur[1:]

		entries = append(entries, e)
	}

	tableEnd := len(b) - len(cur)
	maxEnd := tableEnd
	fields := make([]Field, 0, len(entries))
	var firstErr error

	for _, e := range entries {
		if e.offset == 0 {
			if e.resolveErr != nil && firstErr == nil {
				firstErr = e.resolveErr
			} else if e.resolveErr == nil {
				fields = append(fields, Field{Name: e.name, Value: Null()})
			}
			continue
		}

		kind, ok := typeCodeToKind(e.typeCode)
		if !ok {
			return nil, b, fmt.Errorf("record: unsupported type code %d", e.typeCode)
		}

		valueBytes := b[e.offset:]
		v, rest, err := decodeValue(kind, valueBytes, schema)
		if err != nil {
			var upe *UnknownPropertyError
			if !errors.As(err, &upe) {
				return nil, b, needMoreFrom(b, err)
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		consumed := len(valueBytes) - len(rest)
		if end := int(e.offset) + consumed; end > maxEnd {
			maxEnd = end
		}

		if e.resolveErr != nil {
			if firstErr == nil {
				firstErr = e.resolveErr
			}
			continue
		}
		fields = append(fields, Field{Name: e.name, Value: v})
	}

	rest := b[maxEnd:]
	if firstErr != nil {
		return nil, rest, firstErr
	}
	return &Document{Class: class, Fields: fields}, rest, nil
}

func needMoreFrom(b []byte, err error) error {
	if errors.Is(err, wire.ErrNeedMore) {
		return wire.ErrNeedMore
	}
	return err
}

// encodeCompactString encodes a string with a varint length prefix (the
// record serializer's compact in-record string form, distinct from the
// protocol layer's i32-length-prefixed wire.EncodeString).
func encodeCompactString(s string) []byte {
	buf := wire.EncodeVarint(int64(len(s)))
	return append(buf, s...)
}

func decodeCompactString(b []byte) (string, []byte, error) {
	n, rest, err := wire.DecodeVarint(b)
	if err != nil {
		return "", b, err
	}
	if n < 0 || int64(len(rest)) < n {
		return "", b, wire.ErrNeedMore
	}
	return string(rest[:n]), rest[n:], nil
}

func encodeRID(r RID) []byte {
	buf := wire.EncodeInt16(r.Cluster)
	return append(buf, wire.EncodeVarint(r.Position)...)
}

func decodeRID(b []byte) (RID, []byte, error) {
	cluster, rest, err := wire.DecodeInt16(b)
	if err != nil {
		return RID{}, b, err
	}
	pos, rest, err := wire.DecodeVarint(rest)
	if err != nil {
		return RID{}, b, err
	}
	return RID{Cluster: cluster, Position: pos}, rest, nil
}

func encodeValue(v Value, schema *Schema) ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return wire.EncodeBool(v.Bool), nil
	case KindInt32:
		return wire.EncodeVarint(int64(v.Int32)), nil
	case KindInt64:
		return wire.EncodeVarint(v.Int64), nil
	case KindFloat:
		return wire.EncodeFloat(v.Float32), nil
	case KindDouble:
		return wire.EncodeDouble(v.Float64), nil
	case KindDateTime:
		return wire.EncodeVarint(v.Time.UnixMilli()), nil
	case KindDate:
		days := v.Time.UTC().Truncate(24 * time.Hour).Unix() / (dayMillis / 1000)
		return wire.EncodeVarint(days), nil
	case KindString:
		return encodeCompactString(v.Str), nil
	case KindBytes:
		buf := wire.EncodeVarint(int64(len(v.Bytes)))
		return append(buf, v.Bytes...), nil
	case KindDocument:
		if v.Doc == nil {
			return nil, fmt.Errorf("record: nil embedded document")
		}
		return Encode(v.Doc, schema)
	case KindList, KindSet:
		elems := v.List
		if v.Kind == KindSet {
			elems = v.Set
		}
		buf := wire.EncodeVarint(int64(len(elems)))
		for _, e := range elems {
			tc, ok := kindToTypeCode(e.Kind)
			if !ok {
				return nil, fmt.Errorf("record: collection element has unsupported kind %s", e.Kind)
			}
			buf = append(buf, tc)
			eb, err := encodeValue(e, schema)
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		return buf, nil
	case KindMap:
		buf := wire.EncodeVarint(int64(len(v.Map)))
		for _, entry := range v.Map {
			buf = append(buf, encodeCompactString(entry.Key)...)
			tc, ok := kindToTypeCode(entry.Value.Kind)
			if !ok {
				return nil, fmt.Errorf("record: map value has unsupported kind %s", entry.Value.Kind)
			}
			buf = append(buf, tc)
			vb, err := encodeValue(entry.Value, schema)
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		return buf, nil
	case KindLink:
		return encodeRID(v.Link), nil
	case KindLinkList, KindLinkSet:
		buf := wire.EncodeVarint(int64(len(v.Links)))
		for _, l := range v.Links {
			buf = append(buf, encodeRID(l)...)
		}
		return buf, nil
	case KindLinkMap:
		buf := wire.EncodeVarint(int64(len(v.LinkMap)))
		for _, entry := range v.LinkMap {
			buf = append(buf, encodeCompactString(entry.Key)...)
			buf = append(buf, encodeRID(entry.Link)...)
		}
		return buf, nil
	case KindDecimal:
		scale := wire.EncodeVarint(int64(v.Decimal.Scale))
		unscaled := v.Decimal.Unscaled
		if unscaled == nil {
			unscaled = big.NewInt(0)
		}
		magnitude := unscaled.Bytes()
		if unscaled.Sign() >= 0 && len(magnitude) > 0 && magnitude[0]&0x80 != 0 {
			magnitude = append([]byte{0}, magnitude...)
		}
		if unscaled.Sign() < 0 {
			magnitude = twosComplement(unscaled)
		}
		buf := append(scale, wire.EncodeInt32(int32(len(magnitude)))...) //nolint:gosec // decimals stay small
		return append(buf, magnitude...), nil
	}
	return nil, fmt.Errorf("record: unsupported kind %s", v.Kind)
}

func decodeValue(kind Kind, b []byte, schema *Schema) (Value, []byte, error) {
	switch kind {
	case KindBool:
		bv, rest, err := wire.DecodeBool(b)
		return Bool(bv), rest, err
	case KindInt32:
		n, rest, err := wire.DecodeVarint(b)
		return Int32(int32(n)), rest, err //nolint:gosec // wire value originates from an int32
	case KindInt64:
		n, rest, err := wire.DecodeVarint(b)
		return Int64(n), rest, err
	case KindFloat:
		f, rest, err := wire.DecodeFloat(b)
		return Float(f), rest, err
	case KindDouble:
		d, rest, err := wire.DecodeDouble(b)
		return Double(d), rest, err
	case KindDateTime:
		ms, rest, err := wire.DecodeVarint(b)
		if err != nil {
			return Value{}, b, err
		}
		return DateTime(time.UnixMilli(ms).UTC()), rest, nil
	case KindDate:
		days, rest, err := wire.DecodeVarint(b)
		if err != nil {
			return Value{}, b, err
		}
		return Date(time.UnixMilli(days * dayMillis).UTC()), rest, nil
	case KindString:
		s, rest, err := decodeCompactString(b)
		return String(s), rest, err
	case KindBytes:
		n, rest, err := wire.DecodeVarint(b)
		if err != nil {
			return Value{}, b, err
		}
		if n < 0 || int64(len(rest)) < n {
			return Value{}, b, wire.ErrNeedMore
		}
		return Bytes(append([]byte(nil), rest[:n]...)), rest[n:], nil
	case KindDocument:
		doc, rest, err := Decode(b, schema)
		if err != nil {
			return Value{}, rest, err
		}
		return EmbeddedDoc(doc), rest, nil
	case KindList, KindSet:
		n, rest, err := wire.DecodeVarint(b)
		if err != nil {
			return Value{}, b, err
		}
		elems := make([]Value, 0, n)
		var firstErr error
		for i := int64(0); i < n; i++ {
			if len(rest) < 1 {
				return Value{}, b, wire.ErrNeedMore
			}
			tc := rest[0]
			rest = rest[1:]
			ek, ok := typeCodeToKind(tc)
			if !ok {
				return Value{}, b, fmt.Errorf("record: unsupported collection element type code %d", tc)
			}
			ev, next, err := decodeValue(ek, rest, schema)
			if err != nil {
				var upe *UnknownPropertyError
				if !errors.As(err, &upe) {
					return Value{}, b, err
				}
				if firstErr == nil {
					firstErr = err
				}
			}
			rest = next
			elems = append(elems, ev)
		}
		if kind == KindSet {
			return Value{Kind: KindSet, Set: elems}, rest, firstErr
		}
		return Value{Kind: KindList, List: elems}, rest, firstErr
	case KindMap:
		n, rest, err := wire.DecodeVarint(b)
		if err != nil {
			return Value{}, b, err
		}
		entries := make([]MapEntry, 0, n)
		var firstErr error
		for i := int64(0); i < n; i++ {
			key, next, err := decodeCompactString(rest)
			if err != nil {
				return Value{}, b, err
			}
			rest = next
			if len(rest) < 1 {
				return Value{}, b, wire.ErrNeedMore
			}
			tc := rest[0]
			rest = rest[1:]
			ek, ok := typeCodeToKind(tc)
			if !ok {
				return Value{}, b, fmt.Errorf("record: unsupported map value type code %d", tc)
			}
			ev, next2, err := decodeValue(ek, rest, schema)
			if err != nil {
				var upe *UnknownPropertyError
				if !errors.As(err, &upe) {
					return Value{}, b, err
				}
				if firstErr == nil {
					firstErr = err
				}
			}
			rest = next2
			entries = append(entries, MapEntry{Key: key, Value: ev})
		}
		return Map(entries), rest, firstErr
	case KindLink:
		r, rest, err := decodeRID(b)
		return Link(r), rest, err
	case KindLinkList, KindLinkSet:
		n, rest, err := wire.DecodeVarint(b)
		if err != nil {
			return Value{}, b, err
		}
		links := make([]RID, 0, n)
		for i := int64(0); i < n; i++ {
			r, next, err := decodeRID(rest)
			if err != nil {
				return Value{}, b, err
			}
			rest = next
			links = append(links, r)
		}
		if kind == KindLinkSet {
			return Value{Kind: KindLinkSet, Links: links}, rest, nil
		}
		return Value{Kind: KindLinkList, Links: links}, rest, nil
	case KindLinkMap:
		n, rest, err := wire.DecodeVarint(b)
		if err != nil {
			return Value{}, b, err
		}
		entries := make([]LinkMapEntry, 0, n)
		for i := int64(0); i < n; i++ {
			key, next, err := decodeCompactString(rest)
			if err != nil {
				return Value{}, b, err
			}
			rest = next
			r, next2, err := decodeRID(rest)
			if err != nil {
				return Value{}, b, err
			}
			rest = next2
			entries = append(entries, LinkMapEntry{Key: key, Link: r})
		}
		return LinkMapVal(entries), rest, nil
	case KindDecimal:
		scale, rest, err := wire.DecodeVarint(b)
		if err != nil {
			return Value{}, b, err
		}
		n, rest, err := wire.DecodeInt32(rest)
		if err != nil {
			return Value{}, b, err
		}
		if n < 0 || int64(len(rest)) < int64(n) {
			return Value{}, b, wire.ErrNeedMore
		}
		raw := rest[:n]
		unscaled := new(big.Int)
		if len(raw) > 0 && raw[0]&0x80 != 0 {
			unscaled.SetBytes(raw)
			borrow := new(big.Int).Lsh(big.NewInt(1), uint(len(raw)*8))
			unscaled.Sub(unscaled, borrow)
		} else {
			unscaled.SetBytes(raw)
		}
		return Value{Kind: KindDecimal, Decimal: Decimal{Scale: int32(scale), Unscaled: unscaled}}, rest[n:], nil
	}
	return Value{}, b, fmt.Errorf("record: unsupported kind %s", kind)
}

func twosComplement(v *big.Int) []byte {
	mag := new(big.Int).Neg(v)
	nBytes := len(mag.Bytes())
	if nBytes == 0 {
		nBytes = 1
	}
	pow := new(big.Int).Lsh(big.NewInt(1), uint(nBytes*8))
	res := new(big.Int).Add(pow, v) // v is negative
	b := res.Bytes()
	for len(b) > 0 && len(b) < nBytes {
		b = append([]byte{0}, b...)
	}
	if len(b) > 0 && b[0]&0x80 == 0 {
		b = append([]byte{0xff}, b...)
	}
	return b
}
