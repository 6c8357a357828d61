package asset

import (
	"fmt"
	"maps"
)

// Reference is a named field of an asset pointing to another asset.
type Reference struct {
	Field  string
	Target Key
	// Owner is true for the ownership reference (collection → team, monitor → collection).
	Owner bool
}

// Asset represents a declared configuration asset domain object.
// Payload is the JSON object sent to the remote API.
type Asset struct {
	key        Key
	name       string
	source     string
	references []Reference
	payload    map[string]any
}

// New creates a new Asset domain object.
func New(key Key, name string, source string, references []Reference, payload map[string]any) *Asset {
	return &Asset{
		key:        key,
		name:       name,
		source:     source,
		references: references,
		payload:    payload,
	}
}

func (a *Asset) Key() Key       { return a.key }
func (a *Asset) Kind() Kind     { return a.key.Kind }
func (a *Asset) Slug() string   { return a.key.Slug }
func (a *Asset) Name() string   { return a.name }
func (a *Asset) Source() string { return a.source }

// References returns the references declared by the asset, owner first.
func (a *Asset) References() []Reference {
	return append([]Reference(nil), a.references...)
}

// Owner returns the ownership reference if the asset kind has one.
func (a *Asset) Owner() (Reference, bool) {
	for _, ref := range a.references {
		if ref.Owner {
			return ref, true
		}
	}
	return Reference{}, false
}

// Payload returns a copy of the payload to prevent external mutation.
func (a *Asset) Payload() map[string]any {
	payload := make(map[string]any, len(a.payload))
	maps.Copy(payload, a.payload)
	return payload
}

// Field returns a top-level payload field.
func (a *Asset) Field(name string) (any, bool) {
	v, ok := a.payload[name]
	return v, ok
}

// StringField returns a top-level payload field as a string, empty when unset or not a string.
func (a *Asset) StringField(name string) string {
	s, _ := a.payload[name].(string)
	return s
}

// String provides a string representation for debugging
func (a *Asset) String() string {
	return fmt.Sprintf("Asset{key: %s, source: %s}", a.key, a.source)
}
