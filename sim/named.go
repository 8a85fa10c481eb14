package sim

import "strings"

// A Named object is an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NameMustBeValid panics if the name is not a valid name. A valid name is a
// non-empty series of dot-separated tokens without spaces.
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}

	for _, token := range strings.Split(name, ".") {
		if token == "" {
			panic("name token must not be empty: " + name)
		}

		if strings.ContainsAny(token, " \t\n") {
			panic("name must not contain white spaces: " + name)
		}
	}
}
