package triple

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Separator delimits field values inside index keys. It can never occur in
// valid UTF-8, which is why field values are required to be valid UTF-8.
const Separator byte = 0xFF

var ErrInvalidField = errors.New("invalid field value")

// Field identifies one of the three positions of a triple
type Field uint8

const (
	Subject Field = iota
	Predicate
	Object

	// Total number of fields
	FieldCount
)

func (f Field) String() string {
	switch f {
	case Subject:
		return "subject"
	case Predicate:
		return "predicate"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Letter returns the single-letter abbreviation used in ordering names
func (f Field) Letter() byte {
	switch f {
	case Subject:
		return 's'
	case Predicate:
		return 'p'
	case Object:
		return 'o'
	default:
		return '?'
	}
}

// Triple is a subject-predicate-object fact
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

func NewTriple(subject, predicate, object string) Triple {
	return Triple{Subject: subject, Predicate: predicate, Object: object}
}

// Get returns the value stored in field f
func (t Triple) Get(f Field) string {
	switch f {
	case Subject:
		return t.Subject
	case Predicate:
		return t.Predicate
	case Object:
		return t.Object
	default:
		return ""
	}
}

// Reorder returns the field values of t arranged in the given ordering
func (t Triple) Reorder(o Ordering) [3]string {
	return [3]string{t.Get(o[0]), t.Get(o[1]), t.Get(o[2])}
}

// Validate reports whether every field can be used inside an index key
func (t Triple) Validate() error {
	for f := Subject; f < FieldCount; f++ {
		if err := ValidateValue(f, t.Get(f)); err != nil {
			return err
		}
	}
	return nil
}

func (t Triple) String() string {
	return fmt.Sprintf("(%q, %q, %q)", t.Subject, t.Predicate, t.Object)
}

// ValidateValue checks a single value destined for field f
func ValidateValue(f Field, value string) error {
	if strings.IndexByte(value, Separator) >= 0 {
		return fmt.Errorf("%w: %s contains separator byte 0x%X", ErrInvalidField, f, Separator)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidField, f)
	}
	return nil
}

// FieldSet is a set of fields, typically the fields bound by a query
type FieldSet uint8

func NewFieldSet(fields ...Field) FieldSet {
	var s FieldSet
	for _, f := range fields {
		s = s.Add(f)
	}
	return s
}

func (s FieldSet) Add(f Field) FieldSet {
	return s | 1<<f
}

func (s FieldSet) Has(f Field) bool {
	return s&(1<<f) != 0
}

func (s FieldSet) Len() int {
	n := 0
	for f := Subject; f < FieldCount; f++ {
		if s.Has(f) {
			n++
		}
	}
	return n
}

func (s FieldSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for f := Subject; f < FieldCount; f++ {
		if !s.Has(f) {
			continue
		}
		if b.Len() > 1 {
			b.WriteByte(',')
		}
		b.WriteString(f.String())
	}
	b.WriteByte('}')
	return b.String()
}
