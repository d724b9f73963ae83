package record

import "github.com/bricker/vivial-sub003/pkg/types"

// Atom is one normalized, typed event destined for the warehouse. Atoms are
// immutable after construction and write-once: constructed per incoming
// payload, appended, then discarded.
type Atom interface {
	// Row returns the warehouse row for this atom as nested maps and lists,
	// omitting absent fields. Every key appears in the atom table's schema.
	Row() map[string]interface{}

	// ViewSpecs returns the virtual-event views implied by this atom over
	// its table, empty when the atom implies none.
	ViewSpecs(datasetID string, table types.TableSpec) []types.ViewSpec
}

// Decoder turns one raw payload into a typed atom. A missing discriminating
// field is the only decode failure; everything else decodes tolerantly to
// nil fields.
type Decoder func(payload map[string]interface{}, dec Decrypter) (Atom, error)
