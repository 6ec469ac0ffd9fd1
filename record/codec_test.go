package record_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/mickamy/orientgo/record"
)

func mustDecode(t *testing.T, b []byte, schema *record.Schema) *record.Document {
	t.Helper()
	doc, rest, err := record.Decode(b, schema)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("leftover bytes after Decode: %d", len(rest))
	}
	return doc
}

func TestRoundTripSchemaless(t *testing.T) {
	doc := record.New("Person")
	doc.Set("name", record.String("ana"))
	doc.Set("age", record.Int32(31))
	doc.Set("active", record.Bool(true))
	doc.Set("nickname", record.Null())

	enc, err := record.Encode(doc, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := mustDecode(t, enc, nil)
	if got.Class != "Person" {
		t.Fatalf("Class = %q", got.Class)
	}
	wantOrder := []string{"name", "age", "active", "nickname"}
	if len(got.Fields) != len(wantOrder) {
		t.Fatalf("got %d fields, want %d", len(got.Fields), len(wantOrder))
	}
	for i, name := range wantOrder {
		if got.Fields[i].Name != name {
			t.Fatalf("field %d name = %q, want %q (order not preserved)", i, got.Fields[i].Name, name)
		}
	}

	name, _ := got.Get("name")
	if name.Kind != record.KindString || name.Str != "ana" {
		t.Fatalf("name = %+v", name)
	}
	age, _ := got.Get("age")
	if age.Kind != record.KindInt32 || age.Int32 != 31 {
		t.Fatalf("age = %+v", age)
	}
	nick, _ := got.Get("nickname")
	if nick.Kind != record.KindNull {
		t.Fatalf("nickname = %+v, want Null", nick)
	}
}

func TestRoundTripGlobalProperty(t *testing.T) {
	schema := record.NewSchema(map[int32]record.Property{
		5: {Name: "name", Type: 7}, // typeString
	})

	doc := record.New("Person")
	doc.Set("name", record.String("ivan"))

	enc, err := record.Encode(doc, schema)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := mustDecode(t, enc, schema)
	name, ok := got.Get("name")
	if !ok || name.Str != "ivan" {
		t.Fatalf("name = %+v, ok=%v", name, ok)
	}
}

func TestUnknownPropertyRetrySucceeds(t *testing.T) {
	schema := record.NewSchema(map[int32]record.Property{
		5: {Name: "name", Type: 7},
	})

	doc := record.New("Person")
	doc.Set("name", record.String("ivan"))
	doc.Set("extra", record.Int32(7)) // named field, decodes fine regardless of schema

	enc, err := record.Encode(doc, schema)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Decoding against an empty schema fails to resolve the "name" global
	// property id but must still report the correct tail.
	_, rest, err := record.Decode(enc, record.NewSchema(nil))
	var upe *record.UnknownPropertyError
	if !errors.As(err, &upe) {
		t.Fatalf("err = %v, want *UnknownPropertyError", err)
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %d bytes, want 0 (tail must still land at end of record)", len(rest))
	}

	// The very same bytes succeed once schema is populated.
	doc2, rest2, err := record.Decode(enc, schema)
	if err != nil {
		t.Fatalf("retry Decode: %v", err)
	}
	if len(rest2) != 0 {
		t.Fatalf("retry rest = %d bytes", len(rest2))
	}
	name, _ := doc2.Get("name")
	if name.Str != "ivan" {
		t.Fatalf("name = %+v", name)
	}
}

func TestDecodeStreamingChunks(t *testing.T) {
	doc := record.New("Person")
	doc.Set("name", record.String("a long enough name to span chunks"))
	doc.Set("age", record.Int32(99))

	enc, err := record.Encode(doc, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	for i := 0; i < len(enc); i++ {
		_, _, err := record.Decode(enc[:i], nil)
		if err == nil {
			t.Fatalf("Decode(%d of %d bytes) unexpectedly succeeded", i, len(enc))
		}
	}

	got := mustDecode(t, enc, nil)
	name, _ := got.Get("name")
	if name.Str != "a long enough name to span chunks" {
		t.Fatalf("name = %+v", name)
	}
}

func TestRoundTripNestedDocument(t *testing.T) {
	inner := record.New("Address")
	inner.Set("city", record.String("Prague"))

	doc := record.New("Person")
	doc.Set("home", record.EmbeddedDoc(inner))
	doc.Set("tags", record.List([]record.Value{record.String("a"), record.Int32(1)}))

	enc, err := record.Encode(doc, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := mustDecode(t, enc, nil)
	home, ok := got.Get("home")
	if !ok || home.Kind != record.KindDocument || home.Doc == nil {
		t.Fatalf("home = %+v", home)
	}
	city, _ := home.Doc.Get("city")
	if city.Str != "Prague" {
		t.Fatalf("city = %+v", city)
	}

	tags, _ := got.Get("tags")
	if len(tags.List) != 2 || tags.List[0].Str != "a" || tags.List[1].Int32 != 1 {
		t.Fatalf("tags = %+v", tags.List)
	}
}

func TestRoundTripLinksAndMaps(t *testing.T) {
	doc := record.New("Person")
	doc.Set("best", record.Link(record.RID{Cluster: 9, Position: 42}))
	doc.Set("friends", record.LinkList([]record.RID{
		{Cluster: 9, Position: 1},
		{Cluster: 9, Position: 2},
	}))
	doc.Set("props", record.Map([]record.MapEntry{
		{Key: "k1", Value: record.String("v1")},
		{Key: "k2", Value: record.Int64(-5)},
	}))
	doc.Set("linkmap", record.LinkMapVal([]record.LinkMapEntry{
		{Key: "owner", Link: record.RID{Cluster: 3, Position: 7}},
	}))

	enc, err := record.Encode(doc, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := mustDecode(t, enc, nil)
	best, _ := got.Get("best")
	if best.Link != (record.RID{Cluster: 9, Position: 42}) {
		t.Fatalf("best = %+v", best.Link)
	}
	friends, _ := got.Get("friends")
	if len(friends.Links) != 2 || friends.Links[1].Position != 2 {
		t.Fatalf("friends = %+v", friends.Links)
	}
	props, _ := got.Get("props")
	if len(props.Map) != 2 || props.Map[0].Key != "k1" || props.Map[1].Value.Int64 != -5 {
		t.Fatalf("props = %+v", props.Map)
	}
	linkmap, _ := got.Get("linkmap")
	if len(linkmap.LinkMap) != 1 || linkmap.LinkMap[0].Link.Cluster != 3 {
		t.Fatalf("linkmap = %+v", linkmap.LinkMap)
	}
}

func TestRoundTripDecimalAndDates(t *testing.T) {
	doc := record.New("Invoice")
	doc.Set("total", record.Value{Kind: record.KindDecimal, Decimal: record.Decimal{
		Scale:    2,
		Unscaled: big.NewInt(-12345),
	}})
	when := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	doc.Set("when", record.DateTime(when))
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	doc.Set("day", record.Date(day))

	enc, err := record.Encode(doc, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := mustDecode(t, enc, nil)
	total, _ := got.Get("total")
	if total.Decimal.String() != "-123.45" {
		t.Fatalf("total = %s", total.Decimal.String())
	}
	when2, _ := got.Get("when")
	if !when2.Time.Equal(when) {
		t.Fatalf("when = %v, want %v", when2.Time, when)
	}
	day2, _ := got.Get("day")
	if !day2.Time.Equal(day) {
		t.Fatalf("day = %v, want %v", day2.Time, day)
	}
}

func TestDecimalStringFormatting(t *testing.T) {
	cases := []struct {
		scale    int32
		unscaled int64
		want     string
	}{
		{0, 100, "100"},
		{2, 100, "1.00"},
		{2, -5, "-0.05"},
		{3, 0, "0.000"},
	}
	for _, c := range cases {
		d := record.Decimal{Scale: c.scale, Unscaled: big.NewInt(c.unscaled)}
		if got := d.String(); got != c.want {
			t.Fatalf("Decimal{%d,%d}.String() = %q, want %q", c.scale, c.unscaled, got, c.want)
		}
	}
}

func TestParseRID(t *testing.T) {
	cases := []struct {
		in   string
		want record.RID
	}{
		{"#9:0", record.RID{Cluster: 9, Position: 0}},
		{"9:0", record.RID{Cluster: 9, Position: 0}},
		{"#-1:-1", record.RID{Cluster: -1, Position: -1}},
	}
	for _, c := range cases {
		got, err := record.ParseRID(c.in)
		if err != nil {
			t.Fatalf("ParseRID(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseRID(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}

	if _, err := record.ParseRID("not-a-rid"); err == nil {
		t.Fatalf("ParseRID(invalid) succeeded unexpectedly")
	}
}
