package store

import (
	"github.com/aleksaelezovic/hexastore/pkg/triple"
)

// ValueCodec serializes the triple stored as the value of every index entry.
// Marshal must be deterministic: the same triple always yields the same bytes.
type ValueCodec interface {
	// Marshal encodes a triple
	Marshal(t triple.Triple) ([]byte, error)

	// Unmarshal decodes bytes produced by Marshal
	Unmarshal(data []byte) (triple.Triple, error)

	// Name identifies the format; it is recorded when a store is created
	Name() string
}
