package dispatch

import (
	"encoding/json"
	"strings"
)

// UnsetText is how an unknown field is rendered in marker descriptions
const UnsetText = "N/D"

// Text is a CRM text field that may not have been populated yet.
// The zero value is unset.
type Text struct {
	value string
	set   bool
}

// Known wraps a populated value
func Known(v string) Text {
	return Text{value: v, set: true}
}

// Unset returns the "not yet known" value
func Unset() Text {
	return Text{}
}

// TextFrom treats blank strings as unset
func TextFrom(v string) Text {
	if strings.TrimSpace(v) == "" {
		return Unset()
	}
	return Known(v)
}

// IsSet reports whether the field was populated
func (t Text) IsSet() bool {
	return t.set
}

// Value returns the raw value ("" when unset)
func (t Text) Value() string {
	return t.value
}

// Or returns the value, or def when unset
func (t Text) Or(def string) string {
	if !t.set {
		return def
	}
	return t.value
}

// String renders unset fields as UnsetText
func (t Text) String() string {
	return t.Or(UnsetText)
}

// MarshalText lets Text serialize as a plain string, empty when unset
func (t Text) MarshalText() ([]byte, error) {
	return []byte(t.value), nil
}

// MarshalJSON renders unset fields as null
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("null"), nil
	}
	return json.Marshal(t.value)
}
