package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/format"
	"github.com/arloliu/cper/internal/pool"
)

// cborEnc uses Core Deterministic Encoding so the same tree always produces
// identical bytes.
var cborEnc cbor.EncMode

// cborDec decodes maps as map[string]any so the result converts to JSON.
var cborDec cbor.DecMode

func init() {
	var err error

	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ir: CBOR encoder initialization failed: " + err.Error())
	}

	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("ir: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalJSON renders v as JSON. A non-empty indent pretty-prints the output.
// HTML characters are not escaped, so decoded text fields read as they were
// stored.
func MarshalJSON(v any, indent string) ([]byte, error) {
	buf := pool.GetTreeBuffer()
	defer pool.PutTreeBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.Clone(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Render renders v in the requested tree format.
//
// Parameters:
//   - v: tree value (any value accepted by encoding/json)
//   - f: output format
//   - indent: JSON indent; YAML always uses block style and CBOR is binary
//
// Returns:
//   - []byte: rendered tree
//   - error: marshalling error or unknown format
func Render(v any, f format.TreeFormat, indent string) ([]byte, error) {
	data, err := MarshalJSON(v, indent)
	if err != nil {
		return nil, err
	}

	switch f {
	case format.TreeJSON:
		return data, nil
	case format.TreeYAML:
		return jsonToYAML(data)
	case format.TreeCBOR:
		return jsonToCBOR(data)
	default:
		return nil, fmt.Errorf("unsupported tree format: %s", f)
	}
}

// ToJSON converts a tree document in format f to plain JSON so it can be
// decoded with DecodeStrict. JSON input may carry comments and trailing
// commas.
func ToJSON(data []byte, f format.TreeFormat) ([]byte, error) {
	switch f {
	case format.TreeJSON:
		return jsonc.ToJSON(data), nil

	case format.TreeYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, errs.InvalidTree("malformed YAML: %v", err)
		}

		return json.Marshal(v)

	case format.TreeCBOR:
		var v any
		if err := cborDec.Unmarshal(data, &v); err != nil {
			return nil, errs.InvalidTree("malformed CBOR: %v", err)
		}

		return json.Marshal(v)

	default:
		return nil, fmt.Errorf("unsupported tree format: %s", f)
	}
}

// Detect guesses the format of a tree document from its first significant byte.
func Detect(data []byte) format.TreeFormat {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	for _, b := range data {
		switch {
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			continue
		case b == '{' || b == '[' || b == '/':
			return format.TreeJSON
		case b >= 0xA0 && b <= 0xBF, b == 0xD9:
			// CBOR map header or self-describe tag.
			return format.TreeCBOR
		default:
			return format.TreeYAML
		}
	}

	return format.TreeJSON
}

func jsonToYAML(data []byte) ([]byte, error) {
	// JSON is a subset of YAML; decoding into a node keeps key order.
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func jsonToCBOR(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return cborEnc.Marshal(exactNumbers(v))
}

// exactNumbers replaces json.Number values with integers where they fit, so
// 64-bit register values survive the trip through CBOR.
func exactNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = exactNumbers(e)
		}

		return t
	case []any:
		for i, e := range t {
			t[i] = exactNumbers(e)
		}

		return t
	case json.Number:
		if u, err := strconv.ParseUint(string(t), 10, 64); err == nil {
			return u
		}
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return i
		}
		f, _ := t.Float64()

		return f
	default:
		return v
	}
}
