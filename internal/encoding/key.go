package encoding

import (
	"bytes"
	"errors"

	"github.com/aleksaelezovic/hexastore/pkg/triple"
)

var ErrMalformedKey = errors.New("malformed index key")

// EncodeKey encodes values into an index key. Every value is followed by
// one separator byte, so a full triple key is f0 SEP f1 SEP f2 SEP.
// Values must not contain the separator (see triple.ValidateValue).
func EncodeKey(values ...string) []byte {
	size := len(values)
	for _, v := range values {
		size += len(v)
	}
	key := make([]byte, 0, size)
	for _, v := range values {
		key = append(key, v...)
		key = append(key, triple.Separator)
	}
	return key
}

// EncodePrefix encodes the leading bound values of a key for a prefix scan.
// Every value ends with a separator and no value contains one, so the keys
// starting with the prefix are exactly those whose leading values equal
// values: "b" never matches a stored "banana", and an empty value is a lone
// separator that still matches.
func EncodePrefix(values ...string) []byte {
	return EncodeKey(values...)
}

// EncodeTripleKey encodes t as a full key in the given ordering
func EncodeTripleKey(t triple.Triple, o triple.Ordering) []byte {
	v := t.Reorder(o)
	return EncodeKey(v[0], v[1], v[2])
}

// DecodeKey splits a key produced by EncodeKey back into its values
func DecodeKey(key []byte) ([]string, error) {
	if len(key) == 0 {
		return nil, nil
	}
	if key[len(key)-1] != triple.Separator {
		return nil, ErrMalformedKey
	}
	parts := bytes.Split(key[:len(key)-1], []byte{triple.Separator})
	values := make([]string, len(parts))
	for i, p := range parts {
		values[i] = string(p)
	}
	return values, nil
}

// DecodeTripleKey decodes a full key stored under ordering o back into the
// triple it was projected from.
func DecodeTripleKey(key []byte, o triple.Ordering) (triple.Triple, error) {
	values, err := DecodeKey(key)
	if err != nil {
		return triple.Triple{}, err
	}
	if len(values) != len(o) {
		return triple.Triple{}, ErrMalformedKey
	}
	var fields [triple.FieldCount]string
	for i, f := range o {
		fields[f] = values[i]
	}
	return triple.NewTriple(fields[triple.Subject], fields[triple.Predicate], fields[triple.Object]), nil
}
