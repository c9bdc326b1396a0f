package storage

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// TimeFormat is fixed width so that timestamps stored as text sort correctly.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

type serverTimestamp struct{}

// ServerTimestamp, used as a top-level field value, is replaced with the
// store's clock when the write is applied.
var ServerTimestamp any = serverTimestamp{}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeFormat, s)
}

// Prepare resolves server timestamps and normalises fields into plain JSON
// values, so every store hands back the same shapes (numbers as float64).
func Prepare(fields Fields, now time.Time) (Fields, error) {
	resolved := make(Fields, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = FormatTime(now)
		}
		resolved[k] = v
	}
	return normalize(resolved)
}

func normalize(fields Fields) (Fields, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, nil
}

// Encode turns a json-tagged struct into document fields.
func Encode(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return out, nil
}

// Decode fills out from document fields.
func Decode(fields Fields, out any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decode into %T: %w", out, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode into %T: %w", out, err)
	}
	return nil
}

// Clone deep-copies fields that were produced by Prepare.
func Clone(fields Fields) Fields {
	out, err := normalize(fields)
	if err != nil {
		// Prepared fields always round-trip.
		panic(err)
	}
	return out
}

// Merge returns base with the top-level keys of patch replaced.
func Merge(base, patch Fields) Fields {
	out := make(Fields, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Matches reports whether fields satisfy every equality filter.
func Matches(fields Fields, where []Filter) (bool, error) {
	for _, f := range where {
		want, err := normalizeValue(f.Value)
		if err != nil {
			return false, err
		}
		if !reflect.DeepEqual(fields[f.Field], want) {
			return false, nil
		}
	}
	return true, nil
}

func normalizeValue(v any) (any, error) {
	n, err := normalize(Fields{"v": v})
	if err != nil {
		return nil, err
	}
	return n["v"], nil
}

// SortDocuments orders docs by q.OrderBy, breaking ties by path.
func SortDocuments(docs []*Document, q Query) {
	sort.SliceStable(docs, func(i, j int) bool {
		if q.OrderBy != "" {
			c := compareValues(docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy])
			if c != 0 {
				if q.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		return docs[i].Path < docs[j].Path
	})
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return 0
}

// EncodeDocument is Encode without the top-level "id" key, which lives in
// the document path instead.
func EncodeDocument(v any) (Fields, error) {
	fields, err := Encode(v)
	if err != nil {
		return nil, err
	}
	delete(fields, "id")
	return fields, nil
}

// DecodeDocument is Decode with the document id exposed as "id".
func DecodeDocument(doc *Document, out any) error {
	return Decode(Merge(doc.Fields, Fields{"id": doc.ID}), out)
}
