package protocol

import (
	"strconv"

	"rmate/internal/document"
)

// Variable is one "key: value" line of a frame.
type Variable struct {
	Key   string
	Value string
}

// Variables is an ordered key/value block.  Order is preserved on the
// wire; a repeated key replaces the earlier value in place.
type Variables []Variable

// Set stores value under key, keeping the original position when key
// is already present.
func (vs *Variables) Set(key, value string) {
	for i := range *vs {
		if (*vs)[i].Key == key {
			(*vs)[i].Value = value
			return
		}
	}
	*vs = append(*vs, Variable{Key: key, Value: value})
}

// Lookup returns the value stored under key.
func (vs Variables) Lookup(key string) (string, bool) {
	for _, v := range vs {
		if v.Key == key {
			return v.Value, true
		}
	}
	return "", false
}

// Get returns the value stored under key, or "".
func (vs Variables) Get(key string) string {
	v, _ := vs.Lookup(key)
	return v
}

// Len returns the number of variables.
func (vs Variables) Len() int { return len(vs) }

// setPresent stores value only when it is non-empty.  Absent values are
// never sent as empty strings.
func (vs *Variables) setPresent(key, value string) {
	if value != "" {
		vs.Set(key, value)
	}
}

// OpenVariables builds the variable block of an "open" frame for d, in
// wire order.  The data length is not part of the block.
func OpenVariables(d *document.Descriptor) Variables {
	var vs Variables
	vs.setPresent(KeyDisplayName, d.DisplayName)
	vs.setPresent(KeyFileType, d.FileType)
	vs.setPresent(KeyRealPath, d.RealPath())
	if d.Line > 0 {
		vs.Set(KeySelection, strconv.Itoa(d.Line))
	}
	vs.Set(KeyToken, d.Token())
	vs.Set(KeyDataOnSave, "yes")
	vs.Set(KeyReActivate, "yes")
	return vs
}
