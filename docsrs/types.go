package docsrs

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Crate is a decoded rustdoc JSON document. It is a slim view of the
// rustdoc output: only the fields needed for module listings, item
// lookup, and name search are decoded. Values are immutable once decoded
// and safe to share between goroutines.
type Crate struct {
	Root          int64                `json:"root"`
	CrateVersion  string               `json:"crate_version"`
	FormatVersion int                  `json:"format_version"`
	Index         map[string]*Item     `json:"index"`
	Paths         map[string]ItemEntry `json:"paths"`
}

// Item is a single documented item in the crate index.
type Item struct {
	Name       *string         `json:"name"`
	Docs       *string         `json:"docs"`
	Visibility json.RawMessage `json:"visibility"`
	Inner      ItemInner       `json:"inner"`
}

// ItemInner discriminates the item kind. Exactly one field is non-nil
// for the kinds this package understands.
type ItemInner struct {
	Module    *Module         `json:"module"`
	Struct    json.RawMessage `json:"struct"`
	Enum      json.RawMessage `json:"enum"`
	Trait     json.RawMessage `json:"trait"`
	Function  json.RawMessage `json:"function"`
	TypeAlias json.RawMessage `json:"type_alias"`
	Constant  json.RawMessage `json:"constant"`
	Macro     json.RawMessage `json:"macro"`
	ProcMacro json.RawMessage `json:"proc_macro"`
	Use       json.RawMessage `json:"use"`
}

// Module holds the child item IDs of a module.
type Module struct {
	Items []int64 `json:"items"`
}

// ItemEntry is a path-table entry mapping an item ID to its full path.
type ItemEntry struct {
	Path []string `json:"path"`
	Kind string   `json:"kind"`
}

// Kind returns the item kind as a lowercase string, or "other".
func (it *Item) Kind() string {
	switch {
	case it.Inner.Module != nil:
		return "module"
	case it.Inner.Struct != nil:
		return "struct"
	case it.Inner.Enum != nil:
		return "enum"
	case it.Inner.Trait != nil:
		return "trait"
	case it.Inner.Function != nil:
		return "function"
	case it.Inner.TypeAlias != nil:
		return "type_alias"
	case it.Inner.Constant != nil:
		return "constant"
	case it.Inner.Macro != nil, it.Inner.ProcMacro != nil:
		return "macro"
	case it.Inner.Use != nil:
		return "use"
	default:
		return "other"
	}
}

// IsPublic reports whether the item is visible in the public API.
// rustdoc encodes visibility as "public", "default", "crate", or a
// restricted-path object.
func (it *Item) IsPublic() bool {
	return bytes.Equal(it.Visibility, []byte(`"public"`)) ||
		bytes.Equal(it.Visibility, []byte(`"default"`))
}

// RootItem returns the crate's root module item.
func (c *Crate) RootItem() *Item {
	return c.Index[strconv.FormatInt(c.Root, 10)]
}

// Lookup returns the item with the given numeric ID.
func (c *Crate) Lookup(id int64) *Item {
	return c.Index[strconv.FormatInt(id, 10)]
}
