package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/arloliu/cper/errs"
)

var unmarshalerType = reflect.TypeFor[json.Unmarshaler]()

// DecodeStrict decodes a JSON tree into v, rejecting trees that do not match
// the shape of v.
//
// Every struct field without omitempty is required; a missing key or an
// explicit null is reported as ErrInvalidTree with the JSON path of the field.
// Unknown keys and type mismatches are reported the same way. Types that
// implement json.Unmarshaler are checked for presence only and validate their
// own content.
//
// Parameters:
//   - data: JSON document
//   - v: pointer to the destination value
//
// Returns:
//   - error: nil on success, an ErrInvalidTree otherwise
func DecodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return errs.InvalidTree("malformed JSON: %v", err)
	}

	if err := checkRequired(reflect.TypeOf(v), generic, "$"); err != nil {
		return err
	}

	dec = json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, errs.ErrInvalidTree) {
			return err
		}

		return errs.InvalidTree("%v", err)
	}

	return nil
}

func checkRequired(t reflect.Type, val any, path string) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if reflect.PointerTo(t).Implements(unmarshalerType) || t.Implements(unmarshalerType) {
		return nil
	}

	switch t.Kind() {
	case reflect.Struct:
		obj, ok := val.(map[string]any)
		if !ok {
			// Left for the decoder to report as a type mismatch.
			return nil
		}

		return checkStruct(t, obj, path)

	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return nil
		}
		items, ok := val.([]any)
		if !ok {
			return nil
		}
		for i, item := range items {
			if err := checkRequired(t.Elem(), item, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkStruct(t reflect.Type, obj map[string]any, path string) error {
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := checkStruct(ft, obj, path); err != nil {
					return err
				}

				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}

		child, present := obj[name]
		if !present || child == nil {
			if strings.Contains(opts, "omitempty") || strings.Contains(opts, "omitzero") {
				continue
			}

			return errs.InvalidTree("%s.%s: missing required field", path, name)
		}

		if err := checkRequired(f.Type, child, path+"."+name); err != nil {
			return err
		}
	}

	return nil
}
