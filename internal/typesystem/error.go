package typesystem

import "fmt"

// MismatchError is returned by Unify when two types cannot be made identical.
type MismatchError struct {
	Expected Type
	Actual   Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %s, found %s", e.Expected, e.Actual)
}

// OccursError is returned when solving a meta would build an infinite type.
type OccursError struct {
	Meta *Meta
	Type Type
}

func (e *OccursError) Error() string {
	return fmt.Sprintf("infinite type: %s occurs in %s", e.Meta, e.Type)
}

// BoundError is returned when a meta constrained by a bound is solved with a
// type that does not satisfy it.
type BoundError struct {
	Bound Bound
	Type  Type
}

func (e *BoundError) Error() string {
	return fmt.Sprintf("%s does not satisfy %s", e.Type, e.Bound)
}
