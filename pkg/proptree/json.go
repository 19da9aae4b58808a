package proptree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FromJSON parses a JSON document into a PropTree using the same mapping
// rules as the original's yajl-driven SAX parser:
//   - object -> map-shaped node, keys preserved in document order
//   - array  -> array-shaped node whose children are keyed by their decimal
//     index ("0", "1", ...); this is an implementation artifact kept only
//     so that re-ingesting a previously emitted document round-trips
//     byte-for-byte, and these keys are never emitted back out (see ToJSON)
//   - null    -> empty-string leaf
//   - bool    -> "0"/"1"
//   - number  -> its lexical form, unchanged
//   - string  -> itself
//
// It is implemented as a recursive walk over encoding/json.Decoder's
// streaming Token() API — the standard library's event-driven tokenizer,
// the direct Go analogue of the yajl SAX parser the original consumes as a
// collaborator library — rather than unmarshalling into interface{}, which
// would lose both property order and the array-index-as-key behavior above.
func FromJSON(text string) (*PropTree, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	root := &PropTree{}
	if err := decodeValue(dec, root); err != nil {
		return nil, fmt.Errorf("unable to parse command input as JSON: %w", err)
	}
	return root, nil
}

func decodeValue(dec *json.Decoder, editing *PropTree) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec, editing)
		case '[':
			return decodeArray(dec, editing)
		default:
			return fmt.Errorf("unexpected delimiter %q", v)
		}
	case string:
		editing.SetData(v)
	case json.Number:
		editing.SetData(v.String())
	case bool:
		if v {
			editing.SetData("1")
		} else {
			editing.SetData("0")
		}
	case nil:
		editing.SetData("")
	}
	return nil
}

func decodeObject(dec *json.Decoder, node *PropTree) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		if err := decodeValue(dec, node.At(key)); err != nil {
			return err
		}
	}
	// consume the closing '}'
	_, err := dec.Token()
	return err
}

func decodeArray(dec *json.Decoder, node *PropTree) error {
	idx := 0
	for dec.More() {
		key := strconv.Itoa(idx)
		idx++
		// the decimal key is stored on the child but kept out of the keyed
		// index, so the node stays array-shaped (IsArray) and emits as an array
		v := &PropTree{}
		node.children = append(node.children, child{key: key, value: v})
		if err := decodeValue(dec, v); err != nil {
			return err
		}
	}
	// consume the closing ']'
	_, err := dec.Token()
	return err
}

// ToJSON renders the tree as pretty-printed JSON: a childless node emits as
// a JSON string, an array-shaped node emits as a JSON array (positionally,
// ignoring keys), and a map-shaped node emits as a JSON object, skipping any
// entry whose key is empty.
func (t *PropTree) ToJSON() string {
	var buf bytes.Buffer
	writeNode(&buf, t, 0)
	return buf.String()
}

func writeNode(buf *bytes.Buffer, t *PropTree, depth int) {
	if !t.HasChildren() {
		writeJSONString(buf, t.Data())
		return
	}
	indent := strings.Repeat("    ", depth+1)
	closeIndent := strings.Repeat("    ", depth)
	if t.IsArray() {
		buf.WriteString("[\n")
		first := true
		for _, c := range t.children {
			if !first {
				buf.WriteString(",\n")
			}
			first = false
			buf.WriteString(indent)
			writeNode(buf, c.value, depth+1)
		}
		buf.WriteString("\n")
		buf.WriteString(closeIndent)
		buf.WriteString("]")
		return
	}
	buf.WriteString("{\n")
	first := true
	for _, c := range t.children {
		if c.key == "" {
			continue
		}
		if !first {
			buf.WriteString(",\n")
		}
		first = false
		buf.WriteString(indent)
		writeJSONString(buf, c.key)
		buf.WriteString(": ")
		writeNode(buf, c.value, depth+1)
	}
	buf.WriteString("\n")
	buf.WriteString(closeIndent)
	buf.WriteString("}")
}

// writeJSONString escapes a string the same way escapeJsonString in the
// original agent does: backslash, quote, forward-slash, and the standard
// control-character escapes.
func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			buf.WriteString(`\\`)
		case '"':
			buf.WriteString(`\"`)
		case '/':
			buf.WriteString(`\/`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
