package store

import (
	"strings"

	"github.com/aleksaelezovic/hexastore/internal/encoding"
	"github.com/aleksaelezovic/hexastore/pkg/triple"
)

// Criteria is an exact-match query over zero to three fields
type Criteria struct {
	values [triple.FieldCount]string
	bound  triple.FieldSet
}

// CriteriaBuilder builds a Criteria fluently:
//
//	c := store.NewCriteria().WithPredicate("knows").WithObject("bob").Build()
type CriteriaBuilder struct {
	c Criteria
}

// NewCriteria starts a criteria with no bound fields
func NewCriteria() CriteriaBuilder {
	return CriteriaBuilder{}
}

func (b CriteriaBuilder) WithSubject(subject string) CriteriaBuilder {
	return b.with(triple.Subject, subject)
}

func (b CriteriaBuilder) WithPredicate(predicate string) CriteriaBuilder {
	return b.with(triple.Predicate, predicate)
}

func (b CriteriaBuilder) WithObject(object string) CriteriaBuilder {
	return b.with(triple.Object, object)
}

func (b CriteriaBuilder) with(f triple.Field, value string) CriteriaBuilder {
	b.c.values[f] = value
	b.c.bound = b.c.bound.Add(f)
	return b
}

func (b CriteriaBuilder) Build() Criteria {
	return b.c
}

// MatchTriple returns a criteria binding all three fields of t
func MatchTriple(t triple.Triple) Criteria {
	return NewCriteria().WithSubject(t.Subject).WithPredicate(t.Predicate).WithObject(t.Object).Build()
}

// Value returns the required value of field f, if bound
func (c Criteria) Value(f triple.Field) (string, bool) {
	if !c.bound.Has(f) {
		return "", false
	}
	return c.values[f], true
}

// Bound returns the set of fields with a required value
func (c Criteria) Bound() triple.FieldSet {
	return c.bound
}

// Validate checks that every bound value can be encoded into a key prefix
func (c Criteria) Validate() error {
	for f := triple.Subject; f < triple.FieldCount; f++ {
		if v, ok := c.Value(f); ok {
			if err := triple.ValidateValue(f, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// UsableOrderings returns the indexes into triple.Hexagon of every ordering
// that can answer c with a single prefix scan, in priority order.
// For 0 or 3 bound fields that is all six; for 1 or 2 it is exactly two.
func (c Criteria) UsableOrderings() []int {
	var usable []int
	for i, o := range triple.Hexagon {
		if o.Serves(c.bound) {
			usable = append(usable, i)
		}
	}
	return usable
}

// Plan picks the ordering used to answer c: the first usable one in
// triple.Hexagon order. The choice ignores selectivity.
func (c Criteria) Plan() int {
	for i, o := range triple.Hexagon {
		if o.Serves(c.bound) {
			return i
		}
	}
	// every bound set has a serving ordering, see UsableOrderings
	panic("store: no usable ordering for " + c.bound.String())
}

// Prefix encodes the bound values in the field sequence of o, for a prefix
// scan. Encoding stops at the first unbound field of o.
func (c Criteria) Prefix(o triple.Ordering) []byte {
	values := make([]string, 0, len(o))
	for _, f := range o {
		v, ok := c.Value(f)
		if !ok {
			break
		}
		values = append(values, v)
	}
	return encoding.EncodePrefix(values...)
}

// Matches reports whether t satisfies every bound field of c
func (c Criteria) Matches(t triple.Triple) bool {
	for f := triple.Subject; f < triple.FieldCount; f++ {
		if v, ok := c.Value(f); ok && t.Get(f) != v {
			return false
		}
	}
	return true
}

func (c Criteria) String() string {
	parts := make([]string, 0, triple.FieldCount)
	for f := triple.Subject; f < triple.FieldCount; f++ {
		if v, ok := c.Value(f); ok {
			parts = append(parts, f.String()+"="+v)
		} else {
			parts = append(parts, f.String()+"=?")
		}
	}
	return "{" + strings.Join(parts, " ") + "}"
}
