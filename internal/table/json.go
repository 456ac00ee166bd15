package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ParseJSON normalizes a JSON document into a table. An array of objects
// yields one row per object and a single object yields one row. Nested
// objects are flattened into dotted column names ("a.b"); arrays and scalars
// nested inside a record stay as cell values. Columns appear in first-seen
// order.
func ParseJSON(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var records []map[string]any
	switch v := doc.(type) {
	case map[string]any:
		records = []map[string]any{v}
	case []any:
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d is not an object", i)
			}
			records = append(records, obj)
		}
	default:
		return nil, errors.New("document is neither an object nor an array of objects")
	}

	// encoding/json does not keep key order, so re-read keys in document order
	orders, err := keyOrders(data)
	if err != nil {
		return nil, err
	}

	t := &Table{}
	index := make(map[string]int)
	flat := make([]map[string]any, len(records))

	for i, rec := range records {
		flat[i] = make(map[string]any)
		var order *keyOrder
		if i < len(orders) {
			order = orders[i]
		}
		flatten("", rec, order, flat[i], func(col string) {
			if _, seen := index[col]; !seen {
				index[col] = len(t.Columns)
				t.Columns = append(t.Columns, col)
			}
		})
	}

	for _, rec := range flat {
		row := make([]any, len(t.Columns))
		for col, val := range rec {
			row[index[col]] = val
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// keyOrder is the document order of an object's keys, with nested objects
type keyOrder struct {
	keys     []string
	children map[string]*keyOrder
}

// flatten writes obj into out under dotted names, calling seen for every
// column in document order.
func flatten(prefix string, obj map[string]any, order *keyOrder, out map[string]any, seen func(string)) {
	keys := orderedKeys(obj, order)
	for _, key := range keys {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}

		if nested, ok := obj[key].(map[string]any); ok && len(nested) > 0 {
			var child *keyOrder
			if order != nil {
				child = order.children[key]
			}
			flatten(name, nested, child, out, seen)
			continue
		}

		seen(name)
		out[name] = obj[key]
	}
}

// orderedKeys returns obj's keys in document order when known
func orderedKeys(obj map[string]any, order *keyOrder) []string {
	if order == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		return keys
	}

	keys := make([]string, 0, len(obj))
	used := make(map[string]bool, len(obj))
	for _, k := range order.keys {
		if _, ok := obj[k]; ok && !used[k] {
			used[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// keyOrders reads the key order of the top-level record(s) of data
func keyOrders(data []byte) ([]*keyOrder, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	switch tok {
	case json.Delim('{'):
		order, err := readObjectOrder(dec)
		if err != nil {
			return nil, err
		}
		return []*keyOrder{order}, nil
	case json.Delim('['):
		var orders []*keyOrder
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("decode: %w", err)
			}
			if tok != json.Delim('{') {
				return nil, errors.New("array element is not an object")
			}
			order, err := readObjectOrder(dec)
			if err != nil {
				return nil, err
			}
			orders = append(orders, order)
		}
		return orders, nil
	default:
		return nil, errors.New("document is neither an object nor an array of objects")
	}
}

// readObjectOrder consumes an object whose '{' was already read
func readObjectOrder(dec *json.Decoder) (*keyOrder, error) {
	order := &keyOrder{children: make(map[string]*keyOrder)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("object key is not a string")
		}
		order.keys = append(order.keys, key)

		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		switch tok {
		case json.Delim('{'):
			child, err := readObjectOrder(dec)
			if err != nil {
				return nil, err
			}
			order.children[key] = child
		case json.Delim('['):
			if err := skipValue(dec, 1); err != nil {
				return nil, err
			}
		}
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return order, nil
}

// skipValue consumes tokens until depth open delimiters are closed
func skipValue(dec *json.Decoder, depth int) error {
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
	return nil
}
