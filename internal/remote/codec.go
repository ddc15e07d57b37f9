package remote

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Server-generated columns and joined projections never travel in a write.
var generatedColumns = []string{"id", "created_at", "updated_at"}

// Optional date columns are sent as NULL rather than an empty string.
var nullableColumns = map[string]bool{
	"date_of_birth":   true,
	"performed_at":    true,
	"prescribed_date": true,
}

// Decode converts rows into out, which must be a pointer to a slice of
// structs tagged with `db`.
func Decode(rows []Row, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			timeHook,
		),
		Result: out,
	})
	if err != nil {
		return fmt.Errorf("build row decoder: %w", err)
	}
	if rows == nil {
		rows = []Row{}
	}
	if err := dec.Decode(rows); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}

// DecodeRow converts one row into out.
func DecodeRow(row Row, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		DecodeHook:       timeHook,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build row decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(row)); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	return nil
}

// Encode turns a tagged struct into a writable row: generated fields and
// joined projections are dropped, empty optional dates become NULL.
func Encode(v any) (Row, error) {
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "db",
		Result:  &out,
	})
	if err != nil {
		return nil, fmt.Errorf("build row encoder: %w", err)
	}
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}

	row := Row{}
	for k, val := range out {
		if k == "" || k == "-" {
			continue
		}
		switch val.(type) {
		case map[string]any, nil:
			// joined projection, or a nil pointer to one
			continue
		}
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Slice {
			continue
		}
		if nullableColumns[k] && val == "" {
			row[k] = nil
			continue
		}
		row[k] = val
	}
	for _, k := range generatedColumns {
		delete(row, k)
	}
	return row, nil
}

func timeHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("parse time %q", v)
	case time.Time:
		return v, nil
	case nil:
		return time.Time{}, nil
	}
	return data, nil
}
