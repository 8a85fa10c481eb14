package forwarding

import "sort"

// A Route is where a node sends frames for a destination.
type Route struct {
	Port    int
	NextHop string
}

// Origin tells how a binding got into a table.
type Origin int

// The possible origins.
const (
	Static Origin = iota
	Learned
)

func (o Origin) String() string {
	if o == Learned {
		return "learned"
	}

	return "static"
}

// A Binding is a row of a forwarding table.
type Binding struct {
	Destination string
	Route       Route
	Origin      Origin
}

// Table maps destinations to routes. Static bindings overwrite any existing
// binding. Learned bindings never overwrite. Bindings are never evicted.
type Table struct {
	t map[string]Binding
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{t: make(map[string]Binding)}
}

// Lookup finds the route to the destination.
func (t *Table) Lookup(dst string) (Route, bool) {
	e, found := t.t[dst]
	return e.Route, found
}

// Bind statically binds the destination to the route.
func (t *Table) Bind(dst string, r Route) {
	t.t[dst] = Binding{Destination: dst, Route: r, Origin: Static}
}

// Learn binds the destination to the route only if the destination is not
// bound yet. It returns true if the binding is added.
func (t *Table) Learn(dst string, r Route) bool {
	if _, found := t.t[dst]; found {
		return false
	}

	t.t[dst] = Binding{Destination: dst, Route: r, Origin: Learned}

	return true
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	return len(t.t)
}

// Bindings returns all the bindings sorted by destination.
func (t *Table) Bindings() []Binding {
	bindings := make([]Binding, 0, len(t.t))
	for _, b := range t.t {
		bindings = append(bindings, b)
	}

	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].Destination < bindings[j].Destination
	})

	return bindings
}
