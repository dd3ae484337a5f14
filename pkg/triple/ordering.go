package triple

// Ordering is a permutation of the three fields. Position 0 is the most
// significant part of an index key.
type Ordering [3]Field

var (
	SPO = Ordering{Subject, Predicate, Object}
	SOP = Ordering{Subject, Object, Predicate}
	POS = Ordering{Predicate, Object, Subject}
	PSO = Ordering{Predicate, Subject, Object}
	OSP = Ordering{Object, Subject, Predicate}
	OPS = Ordering{Object, Predicate, Subject}
)

// Hexagon lists every ordering in planner priority order. Index i of this
// array is the stable identifier of the ordering.
var Hexagon = [6]Ordering{SPO, SOP, POS, PSO, OSP, OPS}

// Name returns the lowercase name of the ordering, e.g. "pos"
func (o Ordering) Name() string {
	return string([]byte{o[0].Letter(), o[1].Letter(), o[2].Letter()})
}

func (o Ordering) String() string {
	return o.Name()
}

// Leading returns the set of the first k fields of the ordering
func (o Ordering) Leading(k int) FieldSet {
	var s FieldSet
	for i := 0; i < k && i < len(o); i++ {
		s = s.Add(o[i])
	}
	return s
}

// Serves reports whether a prefix scan over this ordering can answer a
// query binding exactly the fields in bound.
func (o Ordering) Serves(bound FieldSet) bool {
	return o.Leading(bound.Len()) == bound
}
