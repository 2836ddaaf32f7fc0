package normalize

import (
	"encoding/json"
)

// EntryKind tells rendering how to present an entry.
type EntryKind string

const (
	KindImage EntryKind = "image"
	KindTable EntryKind = "table"
)

// Image is an embedded raster image.
type Image struct {
	MIME   string `json:"mime"`
	Base64 string `json:"base64"`
}

// DataURI returns the image as a data: URI.
func (i Image) DataURI() string {
	return "data:" + i.MIME + ";base64," + i.Base64
}

// Row is one line of a metrics table: either a numeric value or a nested
// sub-table. Value is nil when the backend sent null.
type Row struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value,omitempty"`
	Sub   *Table   `json:"sub,omitempty"`
}

// Table is an ordered label/value listing.
type Table struct {
	Rows []Row `json:"rows"`
}

// Entry is one displayable artifact.
type Entry struct {
	Key   string
	Label string
	Kind  EntryKind
	Image *Image
	Table *Table
}

// Content returns the entry payload for its kind.
func (e Entry) Content() any {
	if e.Kind == KindImage {
		return e.Image
	}
	return e.Table
}

// MarshalJSON emits {key, label, kind, content}.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key     string    `json:"key"`
		Label   string    `json:"label"`
		Kind    EntryKind `json:"kind"`
		Content any       `json:"content"`
	}{e.Key, e.Label, e.Kind, e.Content()})
}

// DisplayBundle is the normalized, order-stable form of an evaluation bundle.
type DisplayBundle struct {
	Entries []Entry `json:"entries"`
}

// Len returns the number of entries.
func (b DisplayBundle) Len() int { return len(b.Entries) }

// Keys returns the entry keys in order.
func (b DisplayBundle) Keys() []string {
	keys := make([]string, 0, len(b.Entries))
	for _, e := range b.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}
