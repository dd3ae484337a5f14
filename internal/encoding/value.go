package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aleksaelezovic/hexastore/pkg/triple"
	"github.com/zeebo/xxh3"
)

const (
	// ValueVersion is the first byte of every encoded value
	ValueVersion byte = 1

	// Size of the xxh3 checksum trailer
	checksumSize = 8
)

var ErrCorruptValue = errors.New("corrupt triple value")

// ValueCodec serializes triples into the value stored under every index key.
// Layout: version | uvarint len | subject | uvarint len | predicate |
// uvarint len | object | xxh3-64 of everything before (big endian).
type ValueCodec struct{}

func NewValueCodec() *ValueCodec {
	return &ValueCodec{}
}

// Name identifies the codec format
func (c *ValueCodec) Name() string {
	return "binary-xxh3-v1"
}

// Marshal encodes t. The output is byte-for-byte deterministic.
func (c *ValueCodec) Marshal(t triple.Triple) ([]byte, error) {
	size := 1 + checksumSize
	for f := triple.Subject; f < triple.FieldCount; f++ {
		size += binary.MaxVarintLen64 + len(t.Get(f))
	}

	buf := make([]byte, 0, size)
	buf = append(buf, ValueVersion)
	for f := triple.Subject; f < triple.FieldCount; f++ {
		v := t.Get(f)
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		buf = append(buf, v...)
	}
	buf = binary.BigEndian.AppendUint64(buf, xxh3.Hash(buf))
	return buf, nil
}

// Unmarshal decodes data produced by Marshal, verifying the checksum
func (c *ValueCodec) Unmarshal(data []byte) (triple.Triple, error) {
	if len(data) < 1+checksumSize {
		return triple.Triple{}, fmt.Errorf("%w: %d bytes is too short", ErrCorruptValue, len(data))
	}

	body := data[:len(data)-checksumSize]
	sum := binary.BigEndian.Uint64(data[len(data)-checksumSize:])
	if xxh3.Hash(body) != sum {
		return triple.Triple{}, fmt.Errorf("%w: checksum mismatch", ErrCorruptValue)
	}
	if body[0] != ValueVersion {
		return triple.Triple{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptValue, body[0])
	}

	var fields [triple.FieldCount]string
	rest := body[1:]
	for f := triple.Subject; f < triple.FieldCount; f++ {
		n, read := binary.Uvarint(rest)
		if read <= 0 {
			return triple.Triple{}, fmt.Errorf("%w: bad length for %s", ErrCorruptValue, f)
		}
		rest = rest[read:]
		if n > uint64(len(rest)) {
			return triple.Triple{}, fmt.Errorf("%w: %s overruns value", ErrCorruptValue, f)
		}
		fields[f] = string(rest[:n])
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return triple.Triple{}, fmt.Errorf("%w: %d trailing bytes", ErrCorruptValue, len(rest))
	}

	return triple.NewTriple(fields[triple.Subject], fields[triple.Predicate], fields[triple.Object]), nil
}
