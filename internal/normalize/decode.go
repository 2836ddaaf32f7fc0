package normalize

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

var errNotObject = errors.New("not an object")

// member is one key of a JSON object, kept in document order.
type member struct {
	Key   string
	Value json.RawMessage
}

// objectMembers decodes a JSON object preserving key order. A repeated key
// keeps its first position and its last value, matching encoding/json.
func objectMembers(raw json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	var out []member
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if i, seen := index[key]; seen {
			out[i].Value = v
			continue
		}
		index[key] = len(out)
		out = append(out, member{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func firstByte(raw json.RawMessage) byte {
	s := bytes.TrimSpace(raw)
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

// parseTable reads an object whose values are numbers, nulls or nested
// objects of the same form.
func parseTable(raw json.RawMessage) (*Table, error) {
	members, err := objectMembers(raw)
	if err != nil {
		return nil, err
	}
	t := &Table{Rows: make([]Row, 0, len(members))}
	for _, m := range members {
		row, err := parseRow(m)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func parseRow(m member) (Row, error) {
	switch firstByte(m.Value) {
	case '{':
		sub, err := parseTable(m.Value)
		if err != nil {
			return Row{}, err
		}
		return Row{Name: m.Key, Sub: sub}, nil
	case 'n':
		return Row{Name: m.Key}, nil
	}
	var v float64
	if err := json.Unmarshal(m.Value, &v); err != nil {
		return Row{}, errors.New(m.Key + ": not a number")
	}
	return Row{Name: m.Key, Value: &v}, nil
}

// parseFlatTable is parseTable without nesting.
func parseFlatTable(raw json.RawMessage) (*Table, error) {
	t, err := parseTable(raw)
	if err != nil {
		return nil, err
	}
	for _, r := range t.Rows {
		if r.Sub != nil {
			return nil, errors.New(r.Name + ": nested table where a number was expected")
		}
	}
	return t, nil
}

// decodeImage validates a base64 image field. A data: URI prefix is
// tolerated and stripped.
func decodeImage(raw json.RawMessage) (*Image, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("image is not a string")
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	if s == "" {
		return nil, errors.New("image is empty")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("image is not valid base64")
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}
	return &Image{MIME: mime, Base64: s}, nil
}
